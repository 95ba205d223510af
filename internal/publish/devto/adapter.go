// Package devto publishes articles to the DEV developer community via its
// REST API. The API has no delete endpoint; Delete returns the
// unsupported-result shape.
package devto

import (
	"errors"
	"maps"
	"strings"

	"github.com/crosspub/crosspub/internal/publish"
)

const (
	// MaxTitleLen and MaxTags are DEV's documented article limits.
	MaxTitleLen = 128
	MaxTags     = 4
)

// Adapter shapes generic content into a DEV article payload.
type Adapter struct{}

// NewAdapter constructs the DEV adapter.
func NewAdapter() *Adapter { return &Adapter{} }

// Platform identifies the destination.
func (a *Adapter) Platform() publish.Platform { return publish.DevTo }

// Adapt keeps the markdown body, derives the description from the teaser and
// uses the first image attachment as the article's main image.
func (a *Adapter) Adapt(content *publish.ContentInput, opts publish.AdaptOptions) (*publish.AdaptedContent, error) {
	if content == nil || strings.TrimSpace(content.Body) == "" {
		return nil, errors.New("devto: cannot adapt empty body")
	}

	metadata := map[string]string{}
	maps.Copy(metadata, content.Metadata)
	if opts.CanonicalURL != "" {
		metadata["canonical_url"] = opts.CanonicalURL
	}
	if opts.SeriesID != "" {
		metadata["series"] = opts.SeriesID
	}
	if opts.Draft {
		metadata["draft"] = "true"
	}

	media := publish.OptimizeMedia(content.Media)
	if len(media) > 0 && media[0].Kind == publish.MediaImage {
		metadata["main_image"] = media[0].URL
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

// Validate enforces DEV's structural article rules.
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
	for _, tag := range adapted.Tags {
		if strings.ContainsAny(tag, " -_") {
			result.AddError("tag %q must be alphanumeric", tag)
		}
	}
	return result
}

var _ publish.Adapter = (*Adapter)(nil)
