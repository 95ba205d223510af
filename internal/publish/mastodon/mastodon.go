package mastodon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-retryablehttp"
	mastodonapi "github.com/mattn/go-mastodon"

	"github.com/crosspub/crosspub/internal/logutil"
	"github.com/crosspub/crosspub/internal/publish"
)

const requestTimeout = 30 * time.Second

// instanceLimits holds the capabilities an instance reports about itself.
type instanceLimits struct {
	MaxChars int
	MaxMedia int
}

// Client publishes statuses to one Mastodon instance. The instance's
// character and media limits are fetched once at authentication and used for
// the session's lifetime.
type Client struct {
	http *http.Client

	authenticated bool
	api           *mastodonapi.Client
	server        string
	username      string
	limits        instanceLimits
}

// NewClient constructs an unauthenticated Mastodon client.
func NewClient() *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	rc.HTTPClient.Timeout = requestTimeout
	return &Client{http: rc.StandardClient()}
}

// Platform identifies the destination.
func (c *Client) Platform() publish.Platform { return publish.Mastodon }

// Authenticate verifies the access token against the instance and caches the
// instance's configured limits. Requires kind bearer-token with values
// "server" and "access_token".
func (c *Client) Authenticate(ctx context.Context, creds publish.Credentials) error {
	if err := checkCredentials(creds); err != nil {
		return err
	}

	server := strings.TrimRight(creds.Get("server"), "/")
	api := mastodonapi.NewClient(&mastodonapi.Config{
		Server:      server,
		AccessToken: creds.Get("access_token"),
	})
	api.Timeout = requestTimeout

	account, err := api.GetAccountCurrentUser(ctx)
	if err != nil {
		c.authenticated = false
		return publish.AuthenticationError{Platform: publish.Mastodon, Reason: fmt.Sprintf("verify credentials: %v", err)}
	}

	c.api = api
	c.server = server
	c.username = account.Acct
	c.limits = c.fetchInstanceLimits(ctx, server)
	c.authenticated = true
	logutil.Debugf("mastodon authenticated: server=%s username=%s max_chars=%d", server, account.Acct, c.limits.MaxChars)
	return nil
}

// ValidateCredentials probes the token without touching client state.
func (c *Client) ValidateCredentials(ctx context.Context, creds publish.Credentials) publish.ValidationResult {
	result := publish.OKResult()
	if err := checkCredentials(creds); err != nil {
		result.AddError("%v", err)
		return result
	}

	api := mastodonapi.NewClient(&mastodonapi.Config{
		Server:      strings.TrimRight(creds.Get("server"), "/"),
		AccessToken: creds.Get("access_token"),
	})
	api.Timeout = requestTimeout
	if _, err := api.GetAccountCurrentUser(ctx); err != nil {
		result.AddError("access token rejected: %v", err)
	}
	return result
}

// Publish posts a status, uploading attachments first. Length is checked
// against the authenticated instance's own limit, which may differ from the
// default the adapter knows.
func (c *Client) Publish(ctx context.Context, adapted *publish.AdaptedContent, cfg publish.PlatformConfig) (publish.PublishResult, error) {
	if !c.authenticated {
		return publish.PublishResult{}, publish.ErrNotAuthenticated(publish.Mastodon)
	}
	if result := c.validateForInstance(adapted); !result.Valid {
		return publish.Failure(publish.Mastodon, "content validation failed: %s", strings.Join(result.Errors, "; ")), nil
	}

	toot, err := c.buildToot(ctx, adapted, cfg)
	if err != nil {
		return publish.Failure(publish.Mastodon, "media upload failed: %v", err), nil
	}

	status, err := c.api.PostStatus(ctx, toot)
	if err != nil {
		return publish.Failure(publish.Mastodon, "publish rejected: %v", err), nil
	}
	return statusResult(status), nil
}

// Update edits a published status in place.
func (c *Client) Update(ctx context.Context, id string, adapted *publish.AdaptedContent, cfg publish.PlatformConfig) (publish.PublishResult, error) {
	if !c.authenticated {
		return publish.PublishResult{}, publish.ErrNotAuthenticated(publish.Mastodon)
	}
	if result := c.validateForInstance(adapted); !result.Valid {
		return publish.Failure(publish.Mastodon, "content validation failed: %s", strings.Join(result.Errors, "; ")), nil
	}

	toot, err := c.buildToot(ctx, adapted, cfg)
	if err != nil {
		return publish.Failure(publish.Mastodon, "media upload failed: %v", err), nil
	}

	status, err := c.api.UpdateStatus(ctx, toot, mastodonapi.ID(id))
	if err != nil {
		return publish.Failure(publish.Mastodon, "update rejected: %v", err), nil
	}
	return statusResult(status), nil
}

// Delete removes a published status.
func (c *Client) Delete(ctx context.Context, id string) (publish.PublishResult, error) {
	if !c.authenticated {
		return publish.PublishResult{}, publish.ErrNotAuthenticated(publish.Mastodon)
	}
	if err := c.api.DeleteStatus(ctx, mastodonapi.ID(id)); err != nil {
		return publish.Failure(publish.Mastodon, "delete rejected: %v", err), nil
	}
	return publish.PublishResult{Platform: publish.Mastodon, Success: true, PostID: id}, nil
}

// Metadata reports the account and the instance's cached limits.
func (c *Client) Metadata(ctx context.Context) (*publish.PlatformMetadata, error) {
	if !c.authenticated {
		return nil, publish.ErrNotAuthenticated(publish.Mastodon)
	}
	return &publish.PlatformMetadata{
		Platform:   publish.Mastodon,
		Username:   c.username,
		ProfileURL: c.server + "/@" + c.username,
		MaxChars:   c.limits.MaxChars,
		MaxMedia:   c.limits.MaxMedia,
		RateLimit:  publish.RateLimit{Requests: 300, Window: 5 * time.Minute},
		Extra:      map[string]string{"server": c.server},
	}, nil
}

// validateForInstance layers the instance's real limits on top of the
// adapter's structural checks.
func (c *Client) validateForInstance(adapted *publish.AdaptedContent) publish.ValidationResult {
	result := NewAdapter().Validate(adapted)
	if adapted == nil {
		return result
	}
	// the adapter's default-limit overage is only advisory; the instance
	// limit is binding and counted in characters, not bytes.
	if utf8.RuneCountInString(adapted.Body) > c.limits.MaxChars {
		result.AddError("text exceeds the instance limit of %d characters", c.limits.MaxChars)
	}
	if len(adapted.Media) > c.limits.MaxMedia {
		result.AddError("instance allows at most %d attachments, got %d", c.limits.MaxMedia, len(adapted.Media))
	}
	return result
}

func (c *Client) buildToot(ctx context.Context, adapted *publish.AdaptedContent, cfg publish.PlatformConfig) (*mastodonapi.Toot, error) {
	toot := &mastodonapi.Toot{
		Status:      adapted.Body,
		Visibility:  firstOf(cfg.Get("visibility"), adapted.Metadata["visibility"]),
		SpoilerText: firstOf(cfg.Get("spoiler_text"), adapted.Metadata["spoiler_text"]),
		Language:    firstOf(cfg.Get("language"), adapted.Metadata["language"]),
	}

	for _, m := range adapted.Media {
		data, _, err := publish.FetchMedia(ctx, m.URL)
		if err != nil {
			return nil, err
		}
		attachment, err := c.api.UploadMediaFromMedia(ctx, &mastodonapi.Media{
			File:        bytes.NewReader(data),
			Description: m.AltText,
		})
		if err != nil {
			return nil, fmt.Errorf("upload media: %w", err)
		}
		toot.MediaIDs = append(toot.MediaIDs, attachment.ID)
	}
	return toot, nil
}

// fetchInstanceLimits queries /api/v2/instance for the server's configured
// caps. go-mastodon does not surface the configuration block, so this is a
// raw call; on any failure the documented defaults apply.
func (c *Client) fetchInstanceLimits(ctx context.Context, server string) instanceLimits {
	fallback := instanceLimits{MaxChars: DefaultMaxChars, MaxMedia: DefaultMaxMedia}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server+"/api/v2/instance", nil)
	if err != nil {
		return fallback
	}
	resp, err := c.http.Do(req)
	if err != nil {
		logutil.Warnf("instance query failed, using default limits: %v", err)
		return fallback
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logutil.Warnf("instance query returned %s, using default limits", resp.Status)
		return fallback
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fallback
	}
	var info struct {
		Configuration struct {
			Statuses struct {
				MaxCharacters    int `json:"max_characters"`
				MaxMediaAttached int `json:"max_media_attachments"`
			} `json:"statuses"`
		} `json:"configuration"`
	}
	if err := json.Unmarshal(data, &info); err != nil {
		logutil.Warnf("instance query undecodable, using default limits: %v", err)
		return fallback
	}

	limits := fallback
	if info.Configuration.Statuses.MaxCharacters > 0 {
		limits.MaxChars = info.Configuration.Statuses.MaxCharacters
	}
	if info.Configuration.Statuses.MaxMediaAttached > 0 {
		limits.MaxMedia = info.Configuration.Statuses.MaxMediaAttached
	}
	return limits
}

func statusResult(status *mastodonapi.Status) publish.PublishResult {
	return publish.PublishResult{
		Platform: publish.Mastodon,
		Success:  true,
		PostID:   string(status.ID),
		URL:      status.URL,
		Response: map[string]any{"id": string(status.ID), "url": status.URL},
	}
}

func checkCredentials(creds publish.Credentials) error {
	if creds.Kind != publish.CredBearerToken {
		return publish.AuthenticationError{Platform: publish.Mastodon, Reason: fmt.Sprintf("expected %s credentials, got %s", publish.CredBearerToken, creds.Kind)}
	}
	var missing []string
	if creds.Get("server") == "" {
		missing = append(missing, "server")
	}
	if creds.Get("access_token") == "" {
		missing = append(missing, "access_token")
	}
	if len(missing) > 0 {
		return publish.AuthenticationError{Platform: publish.Mastodon, Reason: "missing " + strings.Join(missing, ", ")}
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
