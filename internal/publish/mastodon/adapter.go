// Package mastodon publishes statuses to an instance-hosted Mastodon server.
// Character and media limits are instance-configurable, so the client fetches
// them at authentication time; the adapter validates against conservative
// defaults only.
package mastodon

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/crosspub/crosspub/internal/publish"
)

const (
	// DefaultMaxChars and DefaultMaxMedia apply when the instance query
	// fails; mastodon.social ships these values.
	DefaultMaxChars = 500
	DefaultMaxMedia = 4

	maxHashtags = 3
)

// Adapter shapes generic content into a Mastodon status.
type Adapter struct{}

// NewAdapter constructs the Mastodon adapter.
func NewAdapter() *Adapter { return &Adapter{} }

// Platform identifies the destination.
func (a *Adapter) Platform() publish.Platform { return publish.Mastodon }

// Adapt collapses title and teaser into a single status text with trailing
// hashtags. The full body never fits a status, so the teaser stands in for
// it; a canonical link back to the article is appended when available.
func (a *Adapter) Adapt(content *publish.ContentInput, opts publish.AdaptOptions) (*publish.AdaptedContent, error) {
	if content == nil || (strings.TrimSpace(content.Body) == "" && strings.TrimSpace(content.Title) == "") {
		return nil, errors.New("mastodon: cannot adapt empty content")
	}

	var parts []string
	if title := strings.TrimSpace(content.Title); title != "" {
		parts = append(parts, title)
	}
	if teaser := publish.SocialTeaser(content); teaser != "" {
		parts = append(parts, teaser)
	}
	if opts.CanonicalURL != "" {
		parts = append(parts, opts.CanonicalURL)
	}

	tags := publish.OptimizeTags(publish.ContentTags(content), maxHashtags)
	if len(tags) > 0 {
		hashtags := make([]string, 0, len(tags))
		for _, tag := range tags {
			hashtags = append(hashtags, "#"+tag)
		}
		parts = append(parts, strings.Join(hashtags, " "))
	}

	metadata := map[string]string{}
	if opts.Visibility != "" {
		metadata["visibility"] = opts.Visibility
	}
	if opts.ContentWarning != "" {
		metadata["spoiler_text"] = opts.ContentWarning
	}
	if opts.Language != "" {
		metadata["language"] = opts.Language
	}

	media := publish.OptimizeMedia(content.Media)
	if len(media) > DefaultMaxMedia {
		media = media[:DefaultMaxMedia]
	}

	// no truncation here: the binding character limit belongs to the
	// authenticated instance and is enforced by the client.
	return &publish.AdaptedContent{
		Body:     strings.Join(parts, "\n\n"),
		Tags:     tags,
		Media:    media,
		Metadata: metadata,
	}, nil
}

// Validate enforces the structural rules known without an instance: the
// client re-checks against the authenticated instance's real limits.
func (a *Adapter) Validate(adapted *publish.AdaptedContent) publish.ValidationResult {
	result := publish.OKResult()
	if adapted == nil {
		result.AddError("no content")
		return result
	}
	if strings.TrimSpace(adapted.Body) == "" {
		result.AddError("status text is required")
	}
	if adapted.Title != "" {
		result.AddError("mastodon statuses have no title field")
	}
	if len(adapted.Media) > DefaultMaxMedia {
		result.AddError("at most %d attachments allowed, got %d", DefaultMaxMedia, len(adapted.Media))
	}
	for _, m := range adapted.Media {
		if m.Kind == publish.MediaDocument {
			result.AddError("unsupported media kind %q", m.Kind)
		}
	}
	if utf8.RuneCountInString(adapted.Body) > DefaultMaxChars {
		result.AddWarning("text exceeds the common %d character limit; the instance may allow more", DefaultMaxChars)
	}
	return result
}

var _ publish.Adapter = (*Adapter)(nil)
