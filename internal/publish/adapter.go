package publish

import (
	"regexp"
	"strings"

	"github.com/crosspub/crosspub/internal/publish/textutil"
)

// Adapter turns a generic content record into a platform-legal payload.
// Implementations are pure transforms over the given snapshot: they never
// mutate their input and hold no state between calls.
type Adapter interface {
	Platform() Platform

	// Adapt builds a fresh AdaptedContent. It returns an error only when the
	// transformation is structurally impossible (for example an empty body);
	// missing optional fields are never an error.
	Adapt(content *ContentInput, opts AdaptOptions) (*AdaptedContent, error)

	// Validate checks an AdaptedContent against the platform's structural
	// rules. It accepts hand-built payloads, independent of Adapt, and never
	// returns an error: malformed input yields an invalid result.
	Validate(adapted *AdaptedContent) ValidationResult
}

const (
	// TeaserLimit is the platform-agnostic budget for social teasers.
	TeaserLimit = 280

	// teaserMinParagraph skips short boilerplate lines when hunting for the
	// first meaningful paragraph.
	teaserMinParagraph = 50

	defaultAltText = "Image"
)

var reTagStrip = regexp.MustCompile(`[^a-z0-9]`)

// OptimizeTags normalizes tags for a platform: lower-cased, stripped to
// [a-z0-9], empties dropped, de-duplicated preserving first occurrence, and
// capped at max. Idempotent.
func OptimizeTags(tags []string, max int) []string {
	if max <= 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		cleaned := reTagStrip.ReplaceAllString(strings.ToLower(tag), "")
		if cleaned == "" {
			continue
		}
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		out = append(out, cleaned)
		if len(out) == max {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// OptimizeMedia returns a copy of media where every attachment carries
// non-empty alt text, defaulting missing descriptions for accessibility.
func OptimizeMedia(media []MediaAttachment) []MediaAttachment {
	if len(media) == 0 {
		return nil
	}
	out := make([]MediaAttachment, len(media))
	copy(out, media)
	for i := range out {
		if strings.TrimSpace(out[i].AltText) == "" {
			out[i].AltText = defaultAltText
		}
	}
	return out
}

// ContentTags reads the comma-separated "tags" entry of a content record's
// metadata. Tags live in the open metadata map because the generic content
// shape has no first-class tag field; adapters cap and clean them per
// platform.
func ContentTags(content *ContentInput) []string {
	raw, ok := content.Metadata["tags"]
	if !ok {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// SocialTeaser derives a short plain-text teaser: the excerpt when present,
// otherwise the first meaningful paragraph of the body, truncated to
// TeaserLimit characters at a word boundary.
func SocialTeaser(content *ContentInput) string {
	teaser := strings.TrimSpace(content.Excerpt)
	if teaser == "" {
		plain := textutil.StripMarkdown(content.Body)
		teaser = textutil.FirstParagraph(plain, teaserMinParagraph)
	}
	return textutil.TruncateAtWord(teaser, TeaserLimit)
}
