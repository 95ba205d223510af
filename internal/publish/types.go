// Package publish defines the shared types and contracts for fanning a single
// piece of content out to multiple third-party publishing platforms.
package publish

import (
	"fmt"
	"sort"
	"time"
)

// Platform identifies a publishing destination.
type Platform string

const (
	Hashnode Platform = "hashnode"
	DevTo    Platform = "devto"
	Bluesky  Platform = "bluesky"
	Mastodon Platform = "mastodon"
	Twitter  Platform = "twitter"
)

// Platforms returns every known platform in stable order.
func Platforms() []Platform {
	out := []Platform{Bluesky, DevTo, Hashnode, Mastodon, Twitter}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParsePlatform maps a user-supplied name to a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case Hashnode, DevTo, Bluesky, Mastodon, Twitter:
		return Platform(s), nil
	}
	return "", fmt.Errorf("unsupported platform %q", s)
}

// ContentType classifies the authored content.
type ContentType string

const (
	ContentArticle ContentType = "article"
	ContentNote    ContentType = "note"
)

// MediaKind classifies an attachment.
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
)

// MediaAttachment references a media file by URL or local path.
type MediaAttachment struct {
	URL     string
	AltText string
	Caption string
	Kind    MediaKind
}

// ContentInput is the generic article handed to an adapter. Adapters treat it
// as an immutable snapshot and never modify it.
type ContentInput struct {
	Title    string
	Body     string // markdown
	Excerpt  string
	Type     ContentType
	Metadata map[string]string
	Media    []MediaAttachment
}

// AdaptedContent is the platform-shaped payload produced by an adapter.
// Produced fresh per (content, platform) pair; re-adapt rather than patch.
type AdaptedContent struct {
	Title    string // empty for platforms without a title field
	Body     string
	Excerpt  string
	Tags     []string
	Media    []MediaAttachment
	Metadata map[string]string
}

// AdaptOptions carries the cross-platform knobs a caller may set when
// adapting. Platform-specific publish options travel in PlatformConfig
// instead; these are the fields the adaptation logic itself understands.
type AdaptOptions struct {
	CanonicalURL   string
	SeriesID       string
	Language       string
	Visibility     string
	ContentWarning string
	ForceThread    bool
	Draft          bool
}

// CredentialKind discriminates how a platform authenticates.
type CredentialKind string

const (
	CredAPIKey           CredentialKind = "api-key"
	CredOAuth            CredentialKind = "oauth"
	CredBearerToken      CredentialKind = "bearer-token"
	CredUsernamePassword CredentialKind = "username-password"
)

// Credentials holds one platform's secrets. The payload stays an open map at
// this boundary because each platform names its own keys.
type Credentials struct {
	Kind   CredentialKind
	Values map[string]string
}

// Get returns the named credential value, or "".
func (c Credentials) Get(key string) string {
	return c.Values[key]
}

// String redacts the payload so credentials never leak through logging.
func (c Credentials) String() string {
	return fmt.Sprintf("credentials(%s, %d values)", c.Kind, len(c.Values))
}

// PlatformConfig is the open map of platform-native publish options (series
// id, visibility, content warning, language) passed through to a client.
type PlatformConfig map[string]string

// Get returns the named option, or "".
func (c PlatformConfig) Get(key string) string {
	if c == nil {
		return ""
	}
	return c[key]
}

// ValidationResult reports blocking errors and advisory warnings.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// OKResult returns a passing validation result.
func OKResult() ValidationResult {
	return ValidationResult{Valid: true}
}

// AddError records a blocking violation and marks the result invalid.
func (v *ValidationResult) AddError(format string, args ...any) {
	v.Valid = false
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// AddWarning records a non-blocking advisory.
func (v *ValidationResult) AddWarning(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

// Merge folds other into v.
func (v *ValidationResult) Merge(other ValidationResult) {
	if !other.Valid {
		v.Valid = false
	}
	v.Errors = append(v.Errors, other.Errors...)
	v.Warnings = append(v.Warnings, other.Warnings...)
}

// PublishResult is the single return shape for publish, update and delete.
// Expected failures travel here as Success=false, never as an error value.
type PublishResult struct {
	Platform Platform
	Success  bool
	PostID   string
	URL      string
	Error    string
	Response map[string]any // raw platform payload kept for diagnostics
}

// Failure builds a failed result with a formatted message.
func Failure(platform Platform, format string, args ...any) PublishResult {
	return PublishResult{Platform: platform, Error: fmt.Sprintf(format, args...)}
}

// Unsupported builds the result returned when a platform's API has no
// endpoint for the requested operation. Callers branch on the result, not on
// an error type.
func Unsupported(platform Platform, op, reason string) PublishResult {
	return PublishResult{
		Platform: platform,
		Error:    fmt.Sprintf("%s does not support %s: %s", platform, op, reason),
	}
}

// RateLimit describes a platform's request budget for display purposes. The
// publisher never throttles on it.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// PlatformMetadata is the profile and capability snapshot a client reports
// after authenticating.
type PlatformMetadata struct {
	Platform    Platform
	Username    string
	DisplayName string
	ProfileURL  string
	MaxChars    int
	MaxMedia    int
	MaxTags     int
	RateLimit   RateLimit
	Extra       map[string]string
}
