package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitThreadShortText(t *testing.T) {
	segments := SplitThread("fits in one post", 300)
	if len(segments) != 1 || segments[0] != "fits in one post" {
		t.Errorf("unexpected segments: %q", segments)
	}
}

func TestSplitThreadEmpty(t *testing.T) {
	if segments := SplitThread("   \n\n  ", 300); segments != nil {
		t.Errorf("expected nil for blank text, got %q", segments)
	}
}

func TestSplitThreadParagraphPacking(t *testing.T) {
	paragraphs := []string{
		strings.Repeat("a", 290),
		strings.Repeat("b", 290),
		strings.Repeat("c", 290),
	}
	text := strings.Join(paragraphs, "\n\n")

	segments := SplitThread(text, 300)
	if len(segments) < 3 {
		t.Fatalf("expected at least 3 segments for 3 oversized-joined paragraphs, got %d", len(segments))
	}
	for i, seg := range segments {
		if len(seg) > 300 {
			t.Errorf("segment %d exceeds limit: %d chars", i, len(seg))
		}
	}
}

func TestSplitThreadJoinsSmallParagraphs(t *testing.T) {
	text := "one\n\ntwo\n\n" + strings.Repeat("x", 400)
	segments := SplitThread(text, 300)
	if len(segments) == 0 {
		t.Fatal("no segments")
	}
	if segments[0] != "one\n\ntwo" {
		t.Errorf("small paragraphs not packed together: %q", segments[0])
	}
}

func TestSplitThreadSentenceFallback(t *testing.T) {
	sentence := strings.Repeat("word ", 20) + "end"
	para := strings.TrimSpace(strings.Repeat(sentence+". ", 6))

	segments := SplitThread(para, 150)
	if len(segments) < 2 {
		t.Fatalf("oversized paragraph should split on sentences, got %d segments", len(segments))
	}
	for i, seg := range segments {
		if len(seg) > 150 {
			t.Errorf("segment %d exceeds limit: %d chars", i, len(seg))
		}
	}
	joined := strings.Join(segments, " ")
	if !strings.Contains(joined, "end.") {
		t.Errorf("sentence boundaries lost: %q", joined)
	}
}

func TestSplitThreadHardTruncation(t *testing.T) {
	// One unbroken run with no paragraph or sentence boundary.
	text := strings.Repeat("z", 500)
	segments := SplitThread(text, 100)
	if len(segments) != 1 {
		t.Fatalf("expected single truncated segment, got %d", len(segments))
	}
	if len(segments[0]) != 100 {
		t.Errorf("truncated segment is %d chars, want 100", len(segments[0]))
	}
	if !strings.HasSuffix(segments[0], "...") {
		t.Errorf("missing ellipsis: %q", segments[0])
	}
}

// A limit too small to hold an ellipsis falls back to a plain cut instead of
// slicing past the end of the text.
func TestSplitThreadTinyLimit(t *testing.T) {
	for _, limit := range []int{1, 2, 3} {
		segments := SplitThread("abcdefgh", limit)
		if len(segments) == 0 {
			t.Fatalf("limit %d: no segments", limit)
		}
		for i, seg := range segments {
			if len(seg) > limit {
				t.Errorf("limit %d: segment %d exceeds limit: %q", limit, i, seg)
			}
			if strings.Contains(seg, "...") {
				t.Errorf("limit %d: ellipsis does not fit but appeared: %q", limit, seg)
			}
		}
	}
}

func TestSplitThreadMultiByte(t *testing.T) {
	text := strings.Repeat("あ", 200)
	segments := SplitThread(text, 301)
	if len(segments) == 0 {
		t.Fatal("no segments")
	}
	for i, seg := range segments {
		if !utf8.ValidString(seg) {
			t.Errorf("segment %d is not valid UTF-8: %q", i, seg)
		}
		if len(seg) > 301 {
			t.Errorf("segment %d exceeds limit: %d bytes", i, len(seg))
		}
	}
	if !strings.HasSuffix(segments[len(segments)-1], "...") {
		t.Errorf("hard-truncated segment lost its ellipsis: %q", segments[len(segments)-1])
	}
}

// Everything except the hard-truncation case must preserve the original
// words in order.
func TestSplitThreadPreservesContent(t *testing.T) {
	text := "First paragraph with a few words.\n\n" +
		"Second paragraph carries more text than the first one does.\n\n" +
		"Third paragraph closes the piece with a final thought."

	segments := SplitThread(text, 60)
	joined := strings.Join(segments, " ")
	for _, word := range strings.Fields(strings.ReplaceAll(text, "\n\n", " ")) {
		if !strings.Contains(joined, strings.TrimSuffix(word, ".")) {
			t.Errorf("word %q missing from rejoined thread", word)
		}
	}
}

func TestSplitThreadNineHundredChars(t *testing.T) {
	text := strings.Join([]string{
		strings.Repeat("a", 298),
		strings.Repeat("b", 298),
		strings.Repeat("c", 290),
		strings.Repeat("d", 8),
	}, "\n\n")
	if len(text) != 900 {
		t.Fatalf("fixture drifted: %d chars", len(text))
	}

	segments := SplitThread(text, 300)
	if len(segments) < 3 {
		t.Errorf("expected at least 3 segments, got %d", len(segments))
	}
	for i, seg := range segments {
		if len(seg) > 300 {
			t.Errorf("segment %d exceeds 300 chars: %d", i, len(seg))
		}
	}
}
