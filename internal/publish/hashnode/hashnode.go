package hashnode

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
	// DefaultEndpoint is Hashnode's single GraphQL endpoint.
	DefaultEndpoint = "https://gql.hashnode.com"

	requestTimeout = 30 * time.Second
)

// Config allows the caller to override the GraphQL endpoint, mainly in tests.
type Config struct {
	Endpoint string
}

// Client speaks Hashnode's GraphQL API. One instance owns one authenticated
// session and must not be shared across concurrent orchestrator calls.
type Client struct {
	http     *http.Client
	endpoint string

	authenticated bool
	token         string
	publicationID string
	username      string
}

// NewClient constructs an unauthenticated Hashnode client.
func NewClient(cfg Config) *Client {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	rc.HTTPClient.Timeout = requestTimeout
	return &Client{http: rc.StandardClient(), endpoint: endpoint}
}

// Platform identifies the destination.
func (c *Client) Platform() publish.Platform { return publish.Hashnode }

// Authenticate verifies the personal access token against the me query and
// records the session. Requires kind bearer-token with values "token" and
// "publication_id".
func (c *Client) Authenticate(ctx context.Context, creds publish.Credentials) error {
	if err := checkCredentials(creds); err != nil {
		return err
	}

	me, err := c.whoAmI(ctx, creds.Get("token"))
	if err != nil {
		c.authenticated = false
		return publish.AuthenticationError{Platform: publish.Hashnode, Reason: err.Error()}
	}

	c.token = creds.Get("token")
	c.publicationID = creds.Get("publication_id")
	c.username = me
	c.authenticated = true
	logutil.Debugf("hashnode authenticated: username=%s", me)
	return nil
}

// ValidateCredentials probes the token without touching client state.
func (c *Client) ValidateCredentials(ctx context.Context, creds publish.Credentials) publish.ValidationResult {
	result := publish.OKResult()
	if err := checkCredentials(creds); err != nil {
		result.AddError("%v", err)
		return result
	}
	if _, err := c.whoAmI(ctx, creds.Get("token")); err != nil {
		result.AddError("token rejected: %v", err)
	}
	return result
}

// Publish creates an article via the publishPost mutation.
func (c *Client) Publish(ctx context.Context, adapted *publish.AdaptedContent, cfg publish.PlatformConfig) (publish.PublishResult, error) {
	if !c.authenticated {
		return publish.PublishResult{}, publish.ErrNotAuthenticated(publish.Hashnode)
	}
	if result := NewAdapter().Validate(adapted); !result.Valid {
		return publish.Failure(publish.Hashnode, "content validation failed: %s", strings.Join(result.Errors, "; ")), nil
	}

	input := c.articleInput(adapted, cfg)
	input["publicationId"] = c.publicationID
	if id := cfg.Get("publication_id"); id != "" {
		input["publicationId"] = id
	}

	const mutation = `mutation PublishPost($input: PublishPostInput!) {
  publishPost(input: $input) { post { id url } }
}`
	raw, err := c.do(ctx, c.token, mutation, map[string]any{"input": input})
	if err != nil {
		return publish.Failure(publish.Hashnode, "publish rejected: %v", err), nil
	}

	id, url := postRef(raw, "publishPost")
	return publish.PublishResult{
		Platform: publish.Hashnode,
		Success:  true,
		PostID:   id,
		URL:      url,
		Response: raw,
	}, nil
}

// Update edits an existing article via the updatePost mutation.
func (c *Client) Update(ctx context.Context, id string, adapted *publish.AdaptedContent, cfg publish.PlatformConfig) (publish.PublishResult, error) {
	if !c.authenticated {
		return publish.PublishResult{}, publish.ErrNotAuthenticated(publish.Hashnode)
	}
	if result := NewAdapter().Validate(adapted); !result.Valid {
		return publish.Failure(publish.Hashnode, "content validation failed: %s", strings.Join(result.Errors, "; ")), nil
	}

	input := c.articleInput(adapted, cfg)
	input["id"] = id

	const mutation = `mutation UpdatePost($input: UpdatePostInput!) {
  updatePost(input: $input) { post { id url } }
}`
	raw, err := c.do(ctx, c.token, mutation, map[string]any{"input": input})
	if err != nil {
		return publish.Failure(publish.Hashnode, "update rejected: %v", err), nil
	}

	postID, url := postRef(raw, "updatePost")
	return publish.PublishResult{
		Platform: publish.Hashnode,
		Success:  true,
		PostID:   postID,
		URL:      url,
		Response: raw,
	}, nil
}

// Delete removes an article via the removePost mutation.
func (c *Client) Delete(ctx context.Context, id string) (publish.PublishResult, error) {
	if !c.authenticated {
		return publish.PublishResult{}, publish.ErrNotAuthenticated(publish.Hashnode)
	}

	const mutation = `mutation RemovePost($input: RemovePostInput!) {
  removePost(input: $input) { post { id } }
}`
	raw, err := c.do(ctx, c.token, mutation, map[string]any{"input": map[string]any{"id": id}})
	if err != nil {
		return publish.Failure(publish.Hashnode, "delete rejected: %v", err), nil
	}

	return publish.PublishResult{
		Platform: publish.Hashnode,
		Success:  true,
		PostID:   id,
		Response: raw,
	}, nil
}

// Metadata reports the authenticated user and Hashnode's article limits.
func (c *Client) Metadata(ctx context.Context) (*publish.PlatformMetadata, error) {
	if !c.authenticated {
		return nil, publish.ErrNotAuthenticated(publish.Hashnode)
	}
	return &publish.PlatformMetadata{
		Platform:   publish.Hashnode,
		Username:   c.username,
		ProfileURL: "https://hashnode.com/@" + c.username,
		MaxChars:   0, // article bodies are effectively unbounded
		MaxTags:    MaxTags,
		RateLimit:  publish.RateLimit{Requests: 20000, Window: time.Hour},
		Extra:      map[string]string{"publication_id": c.publicationID},
	}, nil
}

func (c *Client) articleInput(adapted *publish.AdaptedContent, cfg publish.PlatformConfig) map[string]any {
	tags := make([]map[string]any, 0, len(adapted.Tags))
	for _, tag := range adapted.Tags {
		tags = append(tags, map[string]any{"slug": tag, "name": tag})
	}

	input := map[string]any{
		"title":           adapted.Title,
		"contentMarkdown": adapted.Body,
		"tags":            tags,
	}
	if adapted.Excerpt != "" {
		input["subtitle"] = adapted.Excerpt
	}
	if series := firstOf(cfg.Get("series_id"), adapted.Metadata["series_id"]); series != "" {
		input["seriesId"] = series
	}
	if canonical := firstOf(cfg.Get("canonical_url"), adapted.Metadata["canonical_url"]); canonical != "" {
		input["originalArticleURL"] = canonical
	}
	if cover := adapted.Metadata["cover_image"]; cover != "" {
		input["coverImageOptions"] = map[string]any{"coverImageURL": cover}
	}
	return input
}

func (c *Client) whoAmI(ctx context.Context, token string) (string, error) {
	const query = `query Me { me { id username } }`
	raw, err := c.do(ctx, token, query, nil)
	if err != nil {
		return "", err
	}
	data, _ := raw["data"].(map[string]any)
	me, _ := data["me"].(map[string]any)
	username, _ := me["username"].(string)
	if username == "" {
		return "", fmt.Errorf("me query returned no user")
	}
	return username, nil
}

// do executes one GraphQL request and surfaces the errors array as a single
// error message.
func (c *Client) do(ctx context.Context, token, query string, variables map[string]any) (map[string]any, error) {
	body := map[string]any{"query": query}
	if variables != nil {
		body["variables"] = variables
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graphql request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s: %s", resp.Status, summarize(data))
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if msg := graphqlErrors(raw); msg != "" {
		return nil, fmt.Errorf("%s", msg)
	}
	return raw, nil
}

func graphqlErrors(raw map[string]any) string {
	errs, _ := raw["errors"].([]any)
	if len(errs) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if m, ok := e.(map[string]any); ok {
			if msg, ok := m["message"].(string); ok && msg != "" {
				msgs = append(msgs, msg)
			}
		}
	}
	if len(msgs) == 0 {
		return "unknown GraphQL error"
	}
	return strings.Join(msgs, "; ")
}

func postRef(raw map[string]any, mutation string) (id, url string) {
	data, _ := raw["data"].(map[string]any)
	payload, _ := data[mutation].(map[string]any)
	post, _ := payload["post"].(map[string]any)
	id, _ = post["id"].(string)
	url, _ = post["url"].(string)
	return id, url
}

func checkCredentials(creds publish.Credentials) error {
	if creds.Kind != publish.CredBearerToken {
		return publish.AuthenticationError{Platform: publish.Hashnode, Reason: fmt.Sprintf("expected %s credentials, got %s", publish.CredBearerToken, creds.Kind)}
	}
	var missing []string
	if creds.Get("token") == "" {
		missing = append(missing, "token")
	}
	if creds.Get("publication_id") == "" {
		missing = append(missing, "publication_id")
	}
	if len(missing) > 0 {
		return publish.AuthenticationError{Platform: publish.Hashnode, Reason: "missing " + strings.Join(missing, ", ")}
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

func summarize(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

var _ publish.Client = (*Client)(nil)
