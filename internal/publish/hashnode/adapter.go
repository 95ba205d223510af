// Package hashnode publishes articles to the Hashnode blogging network via
// its GraphQL API.
package hashnode

import (
	"errors"
	"maps"
	"strings"

	"github.com/crosspub/crosspub/internal/publish"
)

const (
	// MaxTitleLen and MaxTags are Hashnode's documented article limits.
	MaxTitleLen = 250
	MaxTags     = 5
)

// Adapter shapes generic content into a Hashnode article payload.
type Adapter struct{}

// NewAdapter constructs the Hashnode adapter.
func NewAdapter() *Adapter { return &Adapter{} }

// Platform identifies the destination.
func (a *Adapter) Platform() publish.Platform { return publish.Hashnode }

// Adapt builds an article payload: markdown body is kept as-is, the excerpt
// becomes the subtitle, and the first image attachment becomes the cover.
func (a *Adapter) Adapt(content *publish.ContentInput, opts publish.AdaptOptions) (*publish.AdaptedContent, error) {
	if content == nil || strings.TrimSpace(content.Body) == "" {
		return nil, errors.New("hashnode: cannot adapt empty body")
	}

	metadata := map[string]string{}
	maps.Copy(metadata, content.Metadata)
	if opts.SeriesID != "" {
		metadata["series_id"] = opts.SeriesID
	}
	if opts.CanonicalURL != "" {
		metadata["canonical_url"] = opts.CanonicalURL
	}
	if opts.Draft {
		metadata["draft"] = "true"
	}

	media := publish.OptimizeMedia(content.Media)
	if len(media) > 0 && media[0].Kind == publish.MediaImage {
		metadata["cover_image"] = media[0].URL
	}

	return &publish.AdaptedContent{
		Title:    strings.TrimSpace(content.Title),
		Body:     content.Body,
		Excerpt:  publish.SocialTeaser(content),
		Tags:     publish.OptimizeTags(publish.ContentTags(content), MaxTags),
		Media:    media,
		Metadata: metadata,
	}, nil
}

// Validate enforces Hashnode's structural article rules.
func (a *Adapter) Validate(adapted *publish.AdaptedContent) publish.ValidationResult {
	result := publish.OKResult()
	if adapted == nil {
		result.AddError("no content")
		return result
	}
	if strings.TrimSpace(adapted.Title) == "" {
		result.AddError("title is required")
	} else if len(adapted.Title) > MaxTitleLen {
		result.AddError("title exceeds %d characters", MaxTitleLen)
	}
	if strings.TrimSpace(adapted.Body) == "" {
		result.AddError("body is required")
	}
	if len(adapted.Tags) > MaxTags {
		result.AddError("at most %d tags allowed, got %d", MaxTags, len(adapted.Tags))
	}
	if len(adapted.Tags) == 0 {
		result.AddWarning("articles without tags get less distribution")
	}
	return result
}

var _ publish.Adapter = (*Adapter)(nil)
