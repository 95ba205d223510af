package hashnode

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

func testCredentials() publish.Credentials {
	return publish.Credentials{
		Kind: publish.CredBearerToken,
		Values: map[string]string{
			"token":          "pat-123",
			"publication_id": "pub-1",
		},
	}
}

// newTestServer answers the me query plus any configured mutation responses,
// keyed by mutation name.
func newTestServer(t *testing.T, mutations map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if strings.Contains(body.Query, "query Me") {
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"me": map[string]any{"id": "u1", "username": "tester"}},
			})
			return
		}
		for name, resp := range mutations {
			if strings.Contains(body.Query, name) {
				json.NewEncoder(w).Encode(resp)
				return
			}
		}
		t.Errorf("unexpected query: %s", body.Query)
		w.WriteHeader(http.StatusBadRequest)
	}))
}

func authedClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client := NewClient(Config{Endpoint: server.URL})
	if err := client.Authenticate(context.Background(), testCredentials()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	return client
}

func TestAuthenticate(t *testing.T) {
	server := newTestServer(t, nil)
	defer server.Close()

	client := authedClient(t, server)
	meta, err := client.Metadata(context.Background())
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if meta.Username != "tester" {
		t.Errorf("Username = %q, want tester", meta.Username)
	}
	if meta.MaxTags != MaxTags {
		t.Errorf("MaxTags = %d, want %d", meta.MaxTags, MaxTags)
	}
}

func TestAuthenticateWrongKind(t *testing.T) {
	client := NewClient(Config{})
	err := client.Authenticate(context.Background(), publish.Credentials{Kind: publish.CredAPIKey})

	var authErr publish.AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
}

func TestAuthenticateMissingValues(t *testing.T) {
	client := NewClient(Config{})
	err := client.Authenticate(context.Background(), publish.Credentials{
		Kind:   publish.CredBearerToken,
		Values: map[string]string{"token": "pat-123"},
	})
	if err == nil || !strings.Contains(err.Error(), "publication_id") {
		t.Errorf("expected missing publication_id error, got %v", err)
	}
}

func TestPublishBeforeAuthenticate(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Publish(context.Background(), &publish.AdaptedContent{Title: "t", Body: "b"}, nil)

	var authErr publish.AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
}

func TestPublish(t *testing.T) {
	server := newTestServer(t, map[string]any{
		"PublishPost": map[string]any{
			"data": map[string]any{
				"publishPost": map[string]any{
					"post": map[string]any{"id": "p-9", "url": "https://blog.example/p-9"},
				},
			},
		},
	})
	defer server.Close()

	client := authedClient(t, server)
	result, err := client.Publish(context.Background(), &publish.AdaptedContent{
		Title: "Hello",
		Body:  "# Hello\n\nworld",
		Tags:  []string{"go"},
	}, nil)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !result.Success {
		t.Fatalf("Publish failed: %q", result.Error)
	}
	if result.PostID != "p-9" || result.URL != "https://blog.example/p-9" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestPublishGraphQLError(t *testing.T) {
	server := newTestServer(t, map[string]any{
		"PublishPost": map[string]any{
			"errors": []any{map[string]any{"message": "publication not found"}},
		},
	})
	defer server.Close()

	client := authedClient(t, server)
	result, err := client.Publish(context.Background(), &publish.AdaptedContent{Title: "t", Body: "b"}, nil)
	if err != nil {
		t.Fatalf("platform rejection must not be an error: %v", err)
	}
	if result.Success {
		t.Fatal("expected failed result")
	}
	if !strings.Contains(result.Error, "publication not found") {
		t.Errorf("rejection detail lost: %q", result.Error)
	}
}

func TestPublishInvalidContent(t *testing.T) {
	server := newTestServer(t, nil)
	defer server.Close()

	client := authedClient(t, server)
	result, err := client.Publish(context.Background(), &publish.AdaptedContent{Body: "no title"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success || !strings.Contains(result.Error, "title is required") {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestDelete(t *testing.T) {
	server := newTestServer(t, map[string]any{
		"RemovePost": map[string]any{
			"data": map[string]any{
				"removePost": map[string]any{"post": map[string]any{"id": "p-9"}},
			},
		},
	})
	defer server.Close()

	client := authedClient(t, server)
	result, err := client.Delete(context.Background(), "p-9")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !result.Success || result.PostID != "p-9" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestGraphQLErrors(t *testing.T) {
	raw := map[string]any{
		"errors": []any{
			map[string]any{"message": "first"},
			map[string]any{"message": "second"},
		},
	}
	if got := graphqlErrors(raw); got != "first; second" {
		t.Errorf("graphqlErrors = %q", got)
	}
	if got := graphqlErrors(map[string]any{"data": map[string]any{}}); got != "" {
		t.Errorf("expected empty for clean response, got %q", got)
	}
}

func TestAdapterAdapt(t *testing.T) {
	adapter := NewAdapter()
	content := &publish.ContentInput{
		Title:    "  Spaced Title  ",
		Body:     "body text",
		Metadata: map[string]string{"tags": "Go, Testing"},
		Media: []publish.MediaAttachment{
			{URL: "https://example.com/cover.png", Kind: publish.MediaImage},
		},
	}
	adapted, err := adapter.Adapt(content, publish.AdaptOptions{
		SeriesID:     "s-1",
		CanonicalURL: "https://canonical.example/post",
	})
	if err != nil {
		t.Fatalf("Adapt: %v", err)
	}
	if adapted.Title != "Spaced Title" {
		t.Errorf("Title = %q", adapted.Title)
	}
	if adapted.Metadata["series_id"] != "s-1" || adapted.Metadata["canonical_url"] != "https://canonical.example/post" {
		t.Errorf("options not carried: %v", adapted.Metadata)
	}
	if adapted.Metadata["cover_image"] != "https://example.com/cover.png" {
		t.Errorf("cover not derived: %v", adapted.Metadata)
	}
	if len(adapted.Tags) != 2 || adapted.Tags[0] != "go" {
		t.Errorf("tags not normalized: %v", adapted.Tags)
	}
}

func TestAdapterAdaptEmptyBody(t *testing.T) {
	if _, err := NewAdapter().Adapt(&publish.ContentInput{Title: "t"}, publish.AdaptOptions{}); err == nil {
		t.Error("expected error for empty body")
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
		{"ok", &publish.AdaptedContent{Title: "t", Body: "b", Tags: []string{"go"}}, true},
		{"missing title", &publish.AdaptedContent{Body: "b"}, false},
		{"long title", &publish.AdaptedContent{Title: strings.Repeat("x", MaxTitleLen+1), Body: "b"}, false},
		{"too many tags", &publish.AdaptedContent{Title: "t", Body: "b", Tags: []string{"a", "b", "c", "d", "e", "f"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.Validate(tt.adapted); got.Valid != tt.valid {
				t.Errorf("Valid = %v, want %v (errors: %v)", got.Valid, tt.valid, got.Errors)
			}
		})
	}
}

func TestAdapterValidateWarnsWithoutTags(t *testing.T) {
	result := NewAdapter().Validate(&publish.AdaptedContent{Title: "t", Body: "b"})
	if !result.Valid {
		t.Fatalf("missing tags must not block: %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a warning for missing tags")
	}
}
