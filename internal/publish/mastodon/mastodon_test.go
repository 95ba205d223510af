package mastodon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/crosspub/crosspub/internal/publish"
)

func TestCheckCredentials(t *testing.T) {
	err := checkCredentials(publish.Credentials{Kind: publish.CredAPIKey})
	if err == nil || !strings.Contains(err.Error(), "expected bearer-token") {
		t.Errorf("unexpected error: %v", err)
	}

	err = checkCredentials(publish.Credentials{
		Kind:   publish.CredBearerToken,
		Values: map[string]string{"server": "https://mastodon.example"},
	})
	if err == nil || !strings.Contains(err.Error(), "access_token") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPublishBeforeAuthenticate(t *testing.T) {
	client := NewClient()
	_, err := client.Publish(context.Background(), &publish.AdaptedContent{Body: "hi"}, nil)

	var authErr publish.AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
}

func TestFetchInstanceLimits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/instance" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"configuration": map[string]any{
				"statuses": map[string]any{
					"max_characters":        5000,
					"max_media_attachments": 6,
				},
			},
		})
	}))
	defer server.Close()

	client := NewClient()
	limits := client.fetchInstanceLimits(context.Background(), server.URL)
	if limits.MaxChars != 5000 || limits.MaxMedia != 6 {
		t.Errorf("limits = %+v, want {5000 6}", limits)
	}
}

func TestFetchInstanceLimitsFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient()
	limits := client.fetchInstanceLimits(context.Background(), server.URL)
	if limits.MaxChars != DefaultMaxChars || limits.MaxMedia != DefaultMaxMedia {
		t.Errorf("limits = %+v, want defaults", limits)
	}
}

func TestValidateForInstance(t *testing.T) {
	client := NewClient()
	client.limits = instanceLimits{MaxChars: 1000, MaxMedia: 2}

	// over the common default but under the instance limit: legal.
	result := client.validateForInstance(&publish.AdaptedContent{Body: strings.Repeat("x", 800)})
	if !result.Valid {
		t.Errorf("text within the instance limit rejected: %v", result.Errors)
	}

	result = client.validateForInstance(&publish.AdaptedContent{Body: strings.Repeat("x", 1200)})
	if result.Valid {
		t.Error("text over the instance limit accepted")
	}

	result = client.validateForInstance(&publish.AdaptedContent{
		Body: "ok",
		Media: []publish.MediaAttachment{
			{URL: "a.png", Kind: publish.MediaImage},
			{URL: "b.png", Kind: publish.MediaImage},
			{URL: "c.png", Kind: publish.MediaImage},
		},
	})
	if result.Valid {
		t.Error("attachment count over the instance limit accepted")
	}
}

// Instance limits count characters, not bytes; multi-byte text must be
// measured in runes.
func TestValidateForInstanceCountsCharacters(t *testing.T) {
	client := NewClient()
	client.limits = instanceLimits{MaxChars: DefaultMaxChars, MaxMedia: DefaultMaxMedia}

	result := client.validateForInstance(&publish.AdaptedContent{Body: strings.Repeat("あ", DefaultMaxChars)})
	if !result.Valid {
		t.Errorf("multi-byte text within the character limit rejected: %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("text within the character limit warned: %v", result.Warnings)
	}

	result = client.validateForInstance(&publish.AdaptedContent{Body: strings.Repeat("あ", DefaultMaxChars+1)})
	if result.Valid {
		t.Error("text over the character limit accepted")
	}
}

func TestAdapterAdapt(t *testing.T) {
	content := &publish.ContentInput{
		Title:    "Release Notes",
		Body:     "A detailed first paragraph describing what shipped in this release cycle.",
		Metadata: map[string]string{"tags": "release,golang"},
	}
	adapted, err := NewAdapter().Adapt(content, publish.AdaptOptions{
		CanonicalURL:   "https://blog.example/release",
		Visibility:     "unlisted",
		ContentWarning: "long post",
	})
	if err != nil {
		t.Fatalf("Adapt: %v", err)
	}
	if !strings.HasPrefix(adapted.Body, "Release Notes\n\n") {
		t.Errorf("title not folded in: %q", adapted.Body)
	}
	if !strings.Contains(adapted.Body, "https://blog.example/release") {
		t.Errorf("canonical link missing: %q", adapted.Body)
	}
	if !strings.Contains(adapted.Body, "#release #golang") {
		t.Errorf("hashtags missing: %q", adapted.Body)
	}
	if adapted.Metadata["visibility"] != "unlisted" || adapted.Metadata["spoiler_text"] != "long post" {
		t.Errorf("options not carried: %v", adapted.Metadata)
	}
}

func TestAdapterAdaptDoesNotTruncate(t *testing.T) {
	// bodies over the default limit stay intact; only the authenticated
	// instance's limit may reject them.
	content := &publish.ContentInput{Excerpt: strings.Repeat("word ", 60)}
	content.Body = "x"
	adapted, err := NewAdapter().Adapt(content, publish.AdaptOptions{})
	if err != nil {
		t.Fatalf("Adapt: %v", err)
	}
	if len(adapted.Body) == 0 {
		t.Fatal("empty status")
	}
}

func TestAdapterValidate(t *testing.T) {
	adapter := NewAdapter()
	tests := []struct {
		name    string
		adapted *publish.AdaptedContent
		valid   bool
	}{
		{"nil", nil, false},
		{"ok", &publish.AdaptedContent{Body: "hello"}, true},
		{"empty", &publish.AdaptedContent{}, false},
		{"title set", &publish.AdaptedContent{Title: "t", Body: "b"}, false},
		{"document attachment", &publish.AdaptedContent{
			Body:  "b",
			Media: []publish.MediaAttachment{{URL: "a.pdf", Kind: publish.MediaDocument}},
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.Validate(tt.adapted); got.Valid != tt.valid {
				t.Errorf("Valid = %v, want %v (errors: %v)", got.Valid, tt.valid, got.Errors)
			}
		})
	}
}

func TestAdapterValidateLongBodyWarns(t *testing.T) {
	result := NewAdapter().Validate(&publish.AdaptedContent{Body: strings.Repeat("x", DefaultMaxChars+1)})
	if !result.Valid {
		t.Fatalf("default-limit overage must warn, not fail: %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a warning")
	}
}
