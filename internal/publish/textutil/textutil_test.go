package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"heading", "# Title\n\nbody", "Title\n\nbody"},
		{"bold", "some **bold** text", "some bold text"},
		{"italic", "some *italic* text", "some italic text"},
		{"inline code", "run `go build` now", "run go build now"},
		{"link keeps text", "see [the docs](https://example.com) here", "see the docs here"},
		{"image dropped", "before ![alt](https://example.com/a.png) after", "before after"},
		{"quote", "> quoted line", "quoted line"},
		{"list", "- one\n- two", "one\ntwo"},
		{"plain", "nothing to strip", "nothing to strip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkdown(tt.input); got != tt.want {
				t.Errorf("StripMarkdown(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripMarkdownCodeFence(t *testing.T) {
	input := "intro\n\n```go\nfmt.Println(1)\n```\n\noutro"
	got := StripMarkdown(input)
	if strings.Contains(got, "```") {
		t.Errorf("fence markers survived: %q", got)
	}
	if !strings.Contains(got, "fmt.Println(1)") {
		t.Errorf("fence content dropped: %q", got)
	}
}

func TestFirstParagraph(t *testing.T) {
	text := "Short.\n\nThis paragraph is comfortably longer than fifty characters in total.\n\nTail."
	got := FirstParagraph(text, 50)
	if !strings.HasPrefix(got, "This paragraph") {
		t.Errorf("FirstParagraph skipped wrong paragraph: %q", got)
	}
}

func TestFirstParagraphFallback(t *testing.T) {
	got := FirstParagraph("tiny\n\nalso tiny", 50)
	if got != "tiny" {
		t.Errorf("expected fallback to first paragraph, got %q", got)
	}
}

func TestExtractImages(t *testing.T) {
	md := "![cover](https://example.com/cover.png) and ![](https://example.com/b.jpg)"
	images := ExtractImages(md)
	if len(images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(images))
	}
	if images[0].URL != "https://example.com/cover.png" || images[0].Alt != "cover" {
		t.Errorf("unexpected first image: %+v", images[0])
	}
	if images[1].Alt != "" {
		t.Errorf("expected empty alt, got %q", images[1].Alt)
	}
}

func TestExtractLinks(t *testing.T) {
	md := "see [docs](https://example.com/docs) but not ![img](https://example.com/i.png)"
	links := ExtractLinks(md)
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(links))
	}
	if links[0].Text != "docs" || links[0].URL != "https://example.com/docs" {
		t.Errorf("unexpected link: %+v", links[0])
	}
}

func TestWordCount(t *testing.T) {
	if got := WordCount("# Title\n\nfour more words here"); got != 5 {
		t.Errorf("WordCount = %d, want 5", got)
	}
	if got := WordCount(""); got != 0 {
		t.Errorf("WordCount(empty) = %d, want 0", got)
	}
}

func TestTruncateAtWord(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"fits", "short text", 20, "short text"},
		{"word boundary", "aaaa bbbb cccc dddd eeee", 20, "aaaa bbbb cccc..."},
		{"no usable space", strings.Repeat("x", 40), 20, strings.Repeat("x", 17) + "..."},
		{"budget below ellipsis", "abcdef", 2, "ab"},
		{"budget equals ellipsis", "abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateAtWord(tt.input, tt.max)
			if got != tt.want {
				t.Errorf("TruncateAtWord(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
			}
			if len(got) > tt.max {
				t.Errorf("result exceeds budget: %d > %d", len(got), tt.max)
			}
		})
	}
}

// Cuts inside multi-byte text must land on rune boundaries; a byte-indexed
// slice through the middle of a rune yields invalid UTF-8.
func TestTruncateAtWordMultiByte(t *testing.T) {
	s := strings.Repeat("あ", 200)

	got := TruncateAtWord(s, 281)
	if !utf8.ValidString(got) {
		t.Fatalf("result is not valid UTF-8: %q", got)
	}
	if len(got) > 281 {
		t.Errorf("result exceeds budget: %d bytes", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("missing ellipsis: %q", got)
	}

	got = TruncateAtWord(s, 2)
	if !utf8.ValidString(got) {
		t.Errorf("tiny budget produced invalid UTF-8: %q", got)
	}
	if len(got) > 2 {
		t.Errorf("tiny budget overrun: %d bytes", len(got))
	}
}
