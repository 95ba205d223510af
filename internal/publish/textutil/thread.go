package textutil

import "strings"

const (
	paragraphSep = "\n\n"
	sentenceSep  = ". "
)

// SplitThread breaks text into ordered segments of at most limit characters
// for platforms whose post size is smaller than the content.
//
// Paragraphs are packed greedily: the running segment absorbs the next
// paragraph while the joined length stays within limit, then flushes. A
// paragraph that alone exceeds limit is packed the same way on sentence
// boundaries. A single sentence that still exceeds limit is hard-truncated on
// a rune boundary to limit-3 bytes with a trailing ellipsis (plain to limit
// when the limit cannot hold an ellipsis); that is the only case where
// content is dropped.
func SplitThread(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}

	var segments []string
	var buf strings.Builder

	flush := func() {
		if buf.Len() > 0 {
			segments = append(segments, buf.String())
			buf.Reset()
		}
	}

	for _, para := range strings.Split(text, paragraphSep) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if fits(buf.Len(), len(paragraphSep), len(para), limit) {
			appendPart(&buf, paragraphSep, para)
			continue
		}
		flush()
		if len(para) <= limit {
			buf.WriteString(para)
			continue
		}
		segments = append(segments, splitSentences(para, limit)...)
	}
	flush()

	return segments
}

// splitSentences packs one oversized paragraph into limit-sized segments on
// ". " boundaries, preserving the delimiter on each non-final sentence.
func splitSentences(para string, limit int) []string {
	parts := strings.Split(para, sentenceSep)
	sentences := make([]string, 0, len(parts))
	for i, p := range parts {
		if i < len(parts)-1 {
			p += sentenceSep
		}
		if p != "" {
			sentences = append(sentences, p)
		}
	}

	var segments []string
	var buf strings.Builder
	for _, sentence := range sentences {
		if len(sentence) > limit {
			if buf.Len() > 0 {
				segments = append(segments, strings.TrimSpace(buf.String()))
				buf.Reset()
			}
			if limit <= 3 {
				segments = append(segments, cutToRune(sentence, limit))
			} else {
				segments = append(segments, cutToRune(sentence, limit-3)+"...")
			}
			continue
		}
		if buf.Len()+len(sentence) <= limit {
			buf.WriteString(sentence)
			continue
		}
		segments = append(segments, strings.TrimSpace(buf.String()))
		buf.Reset()
		buf.WriteString(sentence)
	}
	if buf.Len() > 0 {
		segments = append(segments, strings.TrimSpace(buf.String()))
	}
	return segments
}

func fits(current, sep, next, limit int) bool {
	if current == 0 {
		return next <= limit
	}
	return current+sep+next <= limit
}

func appendPart(buf *strings.Builder, sep, part string) {
	if buf.Len() > 0 {
		buf.WriteString(sep)
	}
	buf.WriteString(part)
}
