// Package textutil provides the pure text transforms shared by all content
// adapters: markdown stripping, extraction helpers and thread splitting.
package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reImage      = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)[^)]*\)`)
	reLink       = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)[^)]*\)`)
	reHeading    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reBold       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBoldUnder  = regexp.MustCompile(`__(.+?)__`)
	reItalic     = regexp.MustCompile(`\*([^*]+)\*`)
	reItalicU    = regexp.MustCompile(`_([^_]+)_`)
	reInlineCode = regexp.MustCompile("`([^`]+)`")
	reFence      = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\n?(.*?)```")
	reQuote      = regexp.MustCompile(`(?m)^>\s?`)
	reListMarker = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s+`)
	reHRule      = regexp.MustCompile(`(?m)^(?:-{3,}|\*{3,}|_{3,})\s*$`)
	reBlankRuns  = regexp.MustCompile(`\n{3,}`)
	reSpaces     = regexp.MustCompile(`[ \t]+`)
)

// Image is an image reference extracted from markdown.
type Image struct {
	URL string
	Alt string
}

// Link is a hyperlink extracted from markdown.
type Link struct {
	Text string
	URL  string
}

// StripMarkdown reduces markdown to plain text: formatting markers are
// removed, link text is kept, images are dropped entirely.
func StripMarkdown(md string) string {
	s := strings.ReplaceAll(md, "\r\n", "\n")
	s = reFence.ReplaceAllString(s, "$1")
	s = reImage.ReplaceAllString(s, "")
	s = reLink.ReplaceAllString(s, "$1")
	s = reHeading.ReplaceAllString(s, "")
	s = reBold.ReplaceAllString(s, "$1")
	s = reBoldUnder.ReplaceAllString(s, "$1")
	s = reItalic.ReplaceAllString(s, "$1")
	s = reItalicU.ReplaceAllString(s, "$1")
	s = reInlineCode.ReplaceAllString(s, "$1")
	s = reQuote.ReplaceAllString(s, "")
	s = reListMarker.ReplaceAllString(s, "")
	s = reHRule.ReplaceAllString(s, "")
	s = reBlankRuns.ReplaceAllString(s, "\n\n")
	s = reSpaces.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// FirstParagraph returns the first paragraph of text whose length is at least
// minLen characters, skipping short boilerplate lines. Falls back to the
// first non-empty paragraph when nothing qualifies.
func FirstParagraph(text string, minLen int) string {
	var fallback string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if fallback == "" {
			fallback = para
		}
		if len(para) >= minLen {
			return para
		}
	}
	return fallback
}

// ExtractImages returns every image reference in md in document order.
func ExtractImages(md string) []Image {
	matches := reImage.FindAllStringSubmatch(md, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]Image, 0, len(matches))
	for _, m := range matches {
		out = append(out, Image{Alt: m[1], URL: m[2]})
	}
	return out
}

// ExtractLinks returns every non-image hyperlink in md in document order.
func ExtractLinks(md string) []Link {
	withoutImages := reImage.ReplaceAllString(md, "")
	matches := reLink.FindAllStringSubmatch(withoutImages, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]Link, 0, len(matches))
	for _, m := range matches {
		out = append(out, Link{Text: m[1], URL: m[2]})
	}
	return out
}

// WordCount counts whitespace-separated words in the plain-text rendering of
// md.
func WordCount(md string) int {
	return len(strings.Fields(StripMarkdown(md)))
}

// TruncateAtWord shortens s to at most max bytes, breaking at the last
// space at or after 80% of the budget when one exists, otherwise cutting
// mid-word on a rune boundary. The ellipsis counts against the budget; a
// budget too small to hold one cuts plain.
func TruncateAtWord(s string, max int) string {
	if max <= 3 {
		return cutToRune(s, max)
	}
	if len(s) <= max {
		return s
	}
	cut := cutToRune(s, max-3)
	if idx := strings.LastIndex(cut, " "); idx >= (max-3)*8/10 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ") + "..."
}

// cutToRune cuts s to at most max bytes without splitting a multi-byte rune.
func cutToRune(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
