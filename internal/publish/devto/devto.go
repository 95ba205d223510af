package devto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/crosspub/crosspub/internal/logutil"
	"github.com/crosspub/crosspub/internal/publish"
)

const (
	// DefaultBaseURL is DEV's public API root.
	DefaultBaseURL = "https://dev.to/api"

	requestTimeout = 30 * time.Second
)

// Config allows the caller to override the API root, mainly in tests.
type Config struct {
	BaseURL string
}

// Client speaks DEV's REST API with an api-key header.
type Client struct {
	http    *http.Client
	baseURL string

	authenticated bool
	apiKey        string
	username      string
}

// NewClient constructs an unauthenticated DEV client.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	rc.HTTPClient.Timeout = requestTimeout
	return &Client{http: rc.StandardClient(), baseURL: baseURL}
}

// Platform identifies the destination.
func (c *Client) Platform() publish.Platform { return publish.DevTo }

// Authenticate verifies the api key against /users/me and records the
// session. Requires kind api-key with value "api_key".
func (c *Client) Authenticate(ctx context.Context, creds publish.Credentials) error {
	if err := checkCredentials(creds); err != nil {
		return err
	}

	username, err := c.currentUser(ctx, creds.Get("api_key"))
	if err != nil {
		c.authenticated = false
		return publish.AuthenticationError{Platform: publish.DevTo, Reason: err.Error()}
	}

	c.apiKey = creds.Get("api_key")
	c.username = username
	c.authenticated = true
	logutil.Debugf("devto authenticated: username=%s", username)
	return nil
}

// ValidateCredentials probes the api key without touching client state.
func (c *Client) ValidateCredentials(ctx context.Context, creds publish.Credentials) publish.ValidationResult {
	result := publish.OKResult()
	if err := checkCredentials(creds); err != nil {
		result.AddError("%v", err)
		return result
	}
	if _, err := c.currentUser(ctx, creds.Get("api_key")); err != nil {
		result.AddError("api key rejected: %v", err)
	}
	return result
}

// Publish creates an article via POST /articles.
func (c *Client) Publish(ctx context.Context, adapted *publish.AdaptedContent, cfg publish.PlatformConfig) (publish.PublishResult, error) {
	if !c.authenticated {
		return publish.PublishResult{}, publish.ErrNotAuthenticated(publish.DevTo)
	}
	if result := NewAdapter().Validate(adapted); !result.Valid {
		return publish.Failure(publish.DevTo, "content validation failed: %s", strings.Join(result.Errors, "; ")), nil
	}

	raw, err := c.sendArticle(ctx, http.MethodPost, c.baseURL+"/articles", c.articleBody(adapted, cfg))
	if err != nil {
		return publish.Failure(publish.DevTo, "publish rejected: %v", err), nil
	}
	return articleResult(raw), nil
}

// Update edits an article via PUT /articles/{id}.
func (c *Client) Update(ctx context.Context, id string, adapted *publish.AdaptedContent, cfg publish.PlatformConfig) (publish.PublishResult, error) {
	if !c.authenticated {
		return publish.PublishResult{}, publish.ErrNotAuthenticated(publish.DevTo)
	}
	if result := NewAdapter().Validate(adapted); !result.Valid {
		return publish.Failure(publish.DevTo, "content validation failed: %s", strings.Join(result.Errors, "; ")), nil
	}

	raw, err := c.sendArticle(ctx, http.MethodPut, c.baseURL+"/articles/"+id, c.articleBody(adapted, cfg))
	if err != nil {
		return publish.Failure(publish.DevTo, "update rejected: %v", err), nil
	}
	return articleResult(raw), nil
}

// Delete always returns the unsupported-result shape: DEV's API exposes no
// delete endpoint, removal requires the web dashboard.
func (c *Client) Delete(ctx context.Context, id string) (publish.PublishResult, error) {
	return publish.Unsupported(publish.DevTo, "delete",
		"the DEV API has no delete endpoint; remove the article from the dashboard"), nil
}

// Metadata reports the authenticated user and DEV's documented limits.
func (c *Client) Metadata(ctx context.Context) (*publish.PlatformMetadata, error) {
	if !c.authenticated {
		return nil, publish.ErrNotAuthenticated(publish.DevTo)
	}
	return &publish.PlatformMetadata{
		Platform:   publish.DevTo,
		Username:   c.username,
		ProfileURL: "https://dev.to/" + c.username,
		MaxTags:    MaxTags,
		RateLimit:  publish.RateLimit{Requests: 30, Window: 30 * time.Second},
	}, nil
}

func (c *Client) articleBody(adapted *publish.AdaptedContent, cfg publish.PlatformConfig) map[string]any {
	article := map[string]any{
		"title":         adapted.Title,
		"body_markdown": adapted.Body,
		"tags":          adapted.Tags,
		"published":     adapted.Metadata["draft"] != "true",
	}
	if adapted.Excerpt != "" {
		article["description"] = adapted.Excerpt
	}
	if canonical := firstOf(cfg.Get("canonical_url"), adapted.Metadata["canonical_url"]); canonical != "" {
		article["canonical_url"] = canonical
	}
	if series := firstOf(cfg.Get("series"), adapted.Metadata["series"]); series != "" {
		article["series"] = series
	}
	if image := adapted.Metadata["main_image"]; image != "" {
		article["main_image"] = image
	}
	return map[string]any{"article": article}
}

func (c *Client) sendArticle(ctx context.Context, method, url string, body map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s: %s", resp.Status, apiError(data))
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return raw, nil
}

func (c *Client) currentUser(ctx context.Context, apiKey string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/me", nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("api-key", apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("api request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s: %s", resp.Status, apiError(data))
	}

	var user struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &user); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if user.Username == "" {
		return "", fmt.Errorf("users/me returned no username")
	}
	return user.Username, nil
}

func articleResult(raw map[string]any) publish.PublishResult {
	result := publish.PublishResult{Platform: publish.DevTo, Success: true, Response: raw}
	if id, ok := raw["id"].(float64); ok {
		result.PostID = fmt.Sprintf("%.0f", id)
	}
	if url, ok := raw["url"].(string); ok {
		result.URL = url
	}
	return result
}

func apiError(data []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func checkCredentials(creds publish.Credentials) error {
	if creds.Kind != publish.CredAPIKey {
		return publish.AuthenticationError{Platform: publish.DevTo, Reason: fmt.Sprintf("expected %s credentials, got %s", publish.CredAPIKey, creds.Kind)}
	}
	if creds.Get("api_key") == "" {
		return publish.AuthenticationError{Platform: publish.DevTo, Reason: "missing api_key"}
	}
	return nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ publish.Client = (*Client)(nil)
