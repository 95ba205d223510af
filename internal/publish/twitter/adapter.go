// Package twitter publishes to X. Long content threads via chained replies.
package twitter

import (
	"errors"
	"strings"

	"github.com/crosspub/crosspub/internal/publish"
	"github.com/crosspub/crosspub/internal/publish/textutil"
)

const (
	// MaxPostLen is the standard per-tweet character limit.
	MaxPostLen = 280

	// MaxMedia is the per-tweet media attachment limit.
	MaxMedia = 4

	maxHashtags = 2
)

// Adapter shapes generic content into tweet text.
type Adapter struct{}

// NewAdapter constructs the X adapter.
func NewAdapter() *Adapter { return &Adapter{} }

// Platform identifies the destination.
func (a *Adapter) Platform() publish.Platform { return publish.Twitter }

// Adapt collapses title and plain-text body into one text with at most two
// trailing hashtags.
func (a *Adapter) Adapt(content *publish.ContentInput, opts publish.AdaptOptions) (*publish.AdaptedContent, error) {
	if content == nil || strings.TrimSpace(content.Body) == "" {
		return nil, errors.New("twitter: cannot adapt empty body")
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

	media := publish.OptimizeMedia(content.Media)
	if len(media) > MaxMedia {
		media = media[:MaxMedia]
	}

	return &publish.AdaptedContent{
		Body:     strings.Join(parts, "\n\n"),
		Tags:     tags,
		Media:    media,
		Metadata: metadata,
	}, nil
}

// Validate enforces X's structural rules; overlength text threads, so it
// only warns.
func (a *Adapter) Validate(adapted *publish.AdaptedContent) publish.ValidationResult {
	result := publish.OKResult()
	if adapted == nil {
		result.AddError("no content")
		return result
	}
	if strings.TrimSpace(adapted.Body) == "" {
		result.AddError("tweet text is required")
	}
	if adapted.Title != "" {
		result.AddError("tweets have no title field")
	}
	if len(adapted.Media) > MaxMedia {
		result.AddError("at most %d media attachments allowed, got %d", MaxMedia, len(adapted.Media))
	}
	for _, m := range adapted.Media {
		if m.Kind == publish.MediaDocument || m.Kind == publish.MediaAudio {
			result.AddError("unsupported media kind %q", m.Kind)
		}
	}
	if len(adapted.Body) > MaxPostLen {
		result.AddWarning("text exceeds %d characters and will be posted as a thread", MaxPostLen)
	}
	return result
}

var _ publish.Adapter = (*Adapter)(nil)
