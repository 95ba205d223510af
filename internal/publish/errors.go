package publish

import (
	"fmt"
	"strings"
)

// MissingEnvError is returned when required configuration is missing.
type MissingEnvError struct {
	Platform  Platform
	Variables []string
}

func (e MissingEnvError) Error() string {
	if len(e.Variables) == 0 {
		return fmt.Sprintf("%s credentials not configured", e.Platform)
	}
	return fmt.Sprintf("%s credentials not configured (missing %s)", e.Platform, strings.Join(e.Variables, ", "))
}

// AuthenticationError reports rejected or missing credentials, or an
// operation attempted before Authenticate succeeded.
type AuthenticationError struct {
	Platform Platform
	Reason   string
}

func (e AuthenticationError) Error() string {
	return fmt.Sprintf("%s authentication failed: %s", e.Platform, e.Reason)
}

// ErrNotAuthenticated builds the error for an operation that requires an
// authenticated client.
func ErrNotAuthenticated(platform Platform) error {
	return AuthenticationError{Platform: platform, Reason: "call Authenticate before publishing"}
}

// ValidationError captures platform-specific structural violations detected
// before any network call.
type ValidationError struct {
	Platform   Platform
	Violations []string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed: %s", e.Platform, strings.Join(e.Violations, "; "))
}

// PublishingError wraps a failed network call or a platform-side rejection.
type PublishingError struct {
	Platform Platform
	Op       string
	Err      error
}

func (e PublishingError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Platform, e.Op, e.Err)
}

func (e PublishingError) Unwrap() error { return e.Err }
