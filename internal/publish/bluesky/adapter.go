// Package bluesky publishes to the AT protocol network. Posts above the
// character limit become threads of chained replies; rich-text facets are
// computed client-side as byte-offset spans.
package bluesky

import (
	"errors"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/crosspub/crosspub/internal/publish"
	"github.com/crosspub/crosspub/internal/publish/textutil"
)

const (
	// MaxPostLen is the network-wide per-post limit, counted in grapheme
	// clusters rather than bytes.
	MaxPostLen = 300

	// MaxImages is the per-post image embed limit.
	MaxImages = 4

	maxHashtags = 3
)

// Adapter shapes generic content into Bluesky post text. The platform has no
// title field, so title and body collapse into a single plain text.
type Adapter struct{}

// NewAdapter constructs the Bluesky adapter.
func NewAdapter() *Adapter { return &Adapter{} }

// Platform identifies the destination.
func (a *Adapter) Platform() publish.Platform { return publish.Bluesky }

// Adapt strips the body to plain text, prefixes the title as the opening
// line and appends up to three hashtags. Whether the result is posted as a
// single post or a thread is the client's decision at publish time.
func (a *Adapter) Adapt(content *publish.ContentInput, opts publish.AdaptOptions) (*publish.AdaptedContent, error) {
	if content == nil || strings.TrimSpace(content.Body) == "" {
		return nil, errors.New("bluesky: cannot adapt empty body")
	}

	var parts []string
	if title := strings.TrimSpace(content.Title); title != "" {
		parts = append(parts, title)
	}
	parts = append(parts, textutil.StripMarkdown(content.Body))

	tags := publish.OptimizeTags(publish.ContentTags(content), maxHashtags)
	if len(tags) > 0 {
		hashtags := make([]string, 0, len(tags))
		for _, tag := range tags {
			hashtags = append(hashtags, "#"+tag)
		}
		parts = append(parts, strings.Join(hashtags, " "))
	}

	metadata := map[string]string{}
	if opts.ForceThread {
		metadata["thread"] = "force"
	}
	if opts.Language != "" {
		metadata["language"] = opts.Language
	}

	media := publish.OptimizeMedia(content.Media)
	images := media[:0:0]
	for _, m := range media {
		if m.Kind == publish.MediaImage {
			images = append(images, m)
		}
	}
	if len(images) > MaxImages {
		images = images[:MaxImages]
	}

	return &publish.AdaptedContent{
		Body:     strings.Join(parts, "\n\n"),
		Tags:     tags,
		Media:    images,
		Metadata: metadata,
	}, nil
}

// Validate enforces Bluesky's structural rules. Long bodies are legal and
// become threads, so length produces a warning, not an error.
func (a *Adapter) Validate(adapted *publish.AdaptedContent) publish.ValidationResult {
	result := publish.OKResult()
	if adapted == nil {
		result.AddError("no content")
		return result
	}
	if strings.TrimSpace(adapted.Body) == "" {
		result.AddError("post text is required")
	}
	if adapted.Title != "" {
		result.AddError("bluesky posts have no title field")
	}
	if len(adapted.Media) > MaxImages {
		result.AddError("at most %d images allowed, got %d", MaxImages, len(adapted.Media))
	}
	for _, m := range adapted.Media {
		if m.Kind != publish.MediaImage {
			result.AddError("unsupported media kind %q", m.Kind)
		}
		if strings.TrimSpace(m.AltText) == "" {
			result.AddError("image %q requires alt text", m.URL)
		}
	}
	if uniseg.GraphemeClusterCount(adapted.Body) > MaxPostLen {
		result.AddWarning("text exceeds %d characters and will be posted as a thread", MaxPostLen)
	}
	return result
}

var _ publish.Adapter = (*Adapter)(nil)
