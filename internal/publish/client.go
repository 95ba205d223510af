package publish

import "context"

// Client performs authenticated network operations against one platform.
//
// Error returns carry only programmer-facing conditions such as calling
// Publish before Authenticate. Every expected business outcome (a platform
// rejection, a validation failure, an operation the platform's API does not
// support) comes back as a PublishResult with Success=false so callers can
// aggregate outcomes without per-platform error handling.
//
// A client instance moves unauthenticated → authenticated via Authenticate;
// a failed attempt leaves it unauthenticated with no partial state. Session
// state is owned by the instance and must not be shared across concurrent
// orchestrator calls.
type Client interface {
	Platform() Platform

	// Authenticate establishes a session with the given credentials.
	Authenticate(ctx context.Context, creds Credentials) error

	// ValidateCredentials probes credentials without mutating client state.
	ValidateCredentials(ctx context.Context, creds Credentials) ValidationResult

	// Publish sends adapted content to the platform. Clients re-validate the
	// payload against their own limits even though the adapter already did;
	// they are the last line of defense against platform-specific caps.
	Publish(ctx context.Context, adapted *AdaptedContent, cfg PlatformConfig) (PublishResult, error)

	// Update edits a published post, or returns the unsupported-result shape
	// for platforms whose API cannot edit.
	Update(ctx context.Context, id string, adapted *AdaptedContent, cfg PlatformConfig) (PublishResult, error)

	// Delete removes a published post, or returns the unsupported-result
	// shape for platforms whose API cannot delete.
	Delete(ctx context.Context, id string) (PublishResult, error)

	// Metadata reports profile and capability information for display.
	Metadata(ctx context.Context) (*PlatformMetadata, error)
}
