package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/michimani/gotwi"
	"github.com/michimani/gotwi/media/upload"
	uploadtypes "github.com/michimani/gotwi/media/upload/types"
	"github.com/michimani/gotwi/resources"
	"github.com/michimani/gotwi/tweet/managetweet"
	managetweettypes "github.com/michimani/gotwi/tweet/managetweet/types"

	"github.com/crosspub/crosspub/internal/logutil"
	"github.com/crosspub/crosspub/internal/publish"
	"github.com/crosspub/crosspub/internal/publish/textutil"
)

const (
	metadataEndpoint = "https://upload.twitter.com/1.1/media/metadata/create.json"
	requestTimeout   = 30 * time.Second

	// threadPostDelay spaces out sequential thread tweets to stay under the
	// posting burst limit.
	threadPostDelay = time.Second
)

// Client publishes to X via gotwi with OAuth 1.0a user-context credentials.
// The X API cannot edit tweets, so Update returns the unsupported-result
// shape.
type Client struct {
	authenticated bool
	api           *gotwi.Client
	username      string
}

// NewClient constructs an unauthenticated X client.
func NewClient() *Client { return &Client{} }

// Platform identifies the destination.
func (c *Client) Platform() publish.Platform { return publish.Twitter }

// Authenticate builds the gotwi client from OAuth 1.0a credentials. Requires
// kind oauth with values "consumer_key", "consumer_secret", "access_token"
// and "access_token_secret".
func (c *Client) Authenticate(ctx context.Context, creds publish.Credentials) error {
	if err := checkCredentials(creds); err != nil {
		return err
	}

	api, err := newAPIClient(creds)
	if err != nil {
		c.authenticated = false
		return publish.AuthenticationError{Platform: publish.Twitter, Reason: err.Error()}
	}

	c.api = api
	c.username = creds.Get("username")
	c.authenticated = true
	logutil.Debugf("twitter authenticated")
	return nil
}

// ValidateCredentials checks credential shape and client readiness without
// adopting the session.
func (c *Client) ValidateCredentials(ctx context.Context, creds publish.Credentials) publish.ValidationResult {
	result := publish.OKResult()
	if err := checkCredentials(creds); err != nil {
		result.AddError("%v", err)
		return result
	}
	if _, err := newAPIClient(creds); err != nil {
		result.AddError("credentials rejected: %v", err)
	}
	return result
}

// Publish posts the text as one tweet, or as a thread of chained replies
// when it exceeds the character limit or thread mode is forced. Media rides
// on the first tweet only.
func (c *Client) Publish(ctx context.Context, adapted *publish.AdaptedContent, cfg publish.PlatformConfig) (publish.PublishResult, error) {
	if !c.authenticated {
		return publish.PublishResult{}, publish.ErrNotAuthenticated(publish.Twitter)
	}
	if result := NewAdapter().Validate(adapted); !result.Valid {
		return publish.Failure(publish.Twitter, "content validation failed: %s", strings.Join(result.Errors, "; ")), nil
	}

	text := adapted.Body
	segments := []string{text}
	if len(text) > MaxPostLen || adapted.Metadata["thread"] == "force" || cfg.Get("thread") == "force" {
		segments = textutil.SplitThread(text, MaxPostLen)
	}

	var mediaIDs []string
	for _, m := range adapted.Media {
		mediaID, err := c.uploadMedia(ctx, m.URL, m.AltText)
		if err != nil {
			return publish.Failure(publish.Twitter, "media upload failed: %v", err), nil
		}
		mediaIDs = append(mediaIDs, mediaID)
	}

	var first publish.PublishResult
	var previousID string
	for i, segment := range segments {
		if i > 0 {
			timer := time.NewTimer(threadPostDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				first.Error = fmt.Sprintf("thread interrupted after %d of %d tweets: %v", i, len(segments), ctx.Err())
				first.Success = false
				return first, nil
			case <-timer.C:
			}
		}

		input := &managetweettypes.CreateInput{Text: gotwi.String(segment)}
		if i == 0 && len(mediaIDs) > 0 {
			input.Media = &managetweettypes.CreateInputMedia{MediaIDs: mediaIDs}
		}
		if previousID != "" {
			input.Reply = &managetweettypes.CreateInputReply{InReplyToTweetID: previousID}
		}

		res, err := managetweet.Create(ctx, c.api, input)
		if err != nil {
			if i == 0 {
				return publish.Failure(publish.Twitter, "post tweet: %v", unwrapGotwiError(err)), nil
			}
			first.Error = fmt.Sprintf("thread truncated after %d of %d tweets: %v", i, len(segments), unwrapGotwiError(err))
			first.Success = false
			return first, nil
		}

		tweetID := gotwi.StringValue(res.Data.ID)
		previousID = tweetID
		if i == 0 {
			first = publish.PublishResult{
				Platform: publish.Twitter,
				Success:  true,
				PostID:   tweetID,
				URL:      tweetURL(c.username, tweetID),
				Response: map[string]any{"id": tweetID, "segments": len(segments)},
			}
		}
		logutil.Debugf("tweet %d/%d posted: id=%s", i+1, len(segments), tweetID)
	}

	return first, nil
}

// Update returns the unsupported-result shape: the X API v2 has no edit
// endpoint for standard access.
func (c *Client) Update(ctx context.Context, id string, adapted *publish.AdaptedContent, cfg publish.PlatformConfig) (publish.PublishResult, error) {
	return publish.Unsupported(publish.Twitter, "update",
		"the X API cannot edit tweets; delete and recreate instead"), nil
}

// Delete removes a tweet.
func (c *Client) Delete(ctx context.Context, id string) (publish.PublishResult, error) {
	if !c.authenticated {
		return publish.PublishResult{}, publish.ErrNotAuthenticated(publish.Twitter)
	}
	if _, err := managetweet.Delete(ctx, c.api, &managetweettypes.DeleteInput{ID: id}); err != nil {
		return publish.Failure(publish.Twitter, "delete rejected: %v", unwrapGotwiError(err)), nil
	}
	return publish.PublishResult{Platform: publish.Twitter, Success: true, PostID: id}, nil
}

// Metadata reports X's fixed limits.
func (c *Client) Metadata(ctx context.Context) (*publish.PlatformMetadata, error) {
	if !c.authenticated {
		return nil, publish.ErrNotAuthenticated(publish.Twitter)
	}
	meta := &publish.PlatformMetadata{
		Platform:  publish.Twitter,
		Username:  c.username,
		MaxChars:  MaxPostLen,
		MaxMedia:  MaxMedia,
		RateLimit: publish.RateLimit{Requests: 100, Window: 24 * time.Hour},
	}
	if c.username != "" {
		meta.ProfileURL = "https://x.com/" + c.username
	}
	return meta, nil
}

func newAPIClient(creds publish.Credentials) (*gotwi.Client, error) {
	api, err := gotwi.NewClient(&gotwi.NewClientInput{
		HTTPClient:           &http.Client{Timeout: requestTimeout},
		AuthenticationMethod: gotwi.AuthenMethodOAuth1UserContext,
		OAuthToken:           creds.Get("access_token"),
		OAuthTokenSecret:     creds.Get("access_token_secret"),
		APIKey:               creds.Get("consumer_key"),
		APIKeySecret:         creds.Get("consumer_secret"),
		Debug:                logutil.Verbose(),
	})
	if err != nil {
		return nil, fmt.Errorf("create X client: %w", err)
	}
	if !api.IsReady() {
		return nil, errors.New("X client not ready")
	}
	return api, nil
}

func (c *Client) uploadMedia(ctx context.Context, url, altText string) (string, error) {
	data, contentType, err := publish.FetchMedia(ctx, url)
	if err != nil {
		return "", err
	}

	mediaType, category, err := resolveMediaType(contentType)
	if err != nil {
		return "", err
	}

	logutil.Debugf("initialize upload: media_type=%s bytes=%d", mediaType, len(data))
	initRes, err := upload.Initialize(ctx, c.api, &uploadtypes.InitializeInput{
		MediaType:     mediaType,
		TotalBytes:    len(data),
		MediaCategory: category,
	})
	if err != nil {
		return "", fmt.Errorf("initialize upload: %w", err)
	}
	if err := partialError(initRes.Errors); err != nil {
		return "", fmt.Errorf("initialize upload: %w", err)
	}

	mediaID := initRes.Data.MediaID

	appendIn := &uploadtypes.AppendInput{
		MediaID:      mediaID,
		Media:        bytes.NewReader(data),
		SegmentIndex: 0,
	}
	appendIn.GenerateBoundary()

	appendRes, err := upload.Append(ctx, c.api, appendIn)
	if err != nil {
		return "", fmt.Errorf("append upload: %w", err)
	}
	if err := partialError(appendRes.Errors); err != nil {
		return "", fmt.Errorf("append upload: %w", err)
	}

	finalizeRes, err := upload.Finalize(ctx, c.api, &uploadtypes.FinalizeInput{MediaID: mediaID})
	if err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}
	if err := partialError(finalizeRes.Errors); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	state := finalizeRes.Data.ProcessingInfo.State
	switch state {
	case "", resources.ProcessingInfoStateSucceeded:
		// ready
	case resources.ProcessingInfoStateInProgress, resources.ProcessingInfoStatePending:
		wait := time.Duration(finalizeRes.Data.ProcessingInfo.CheckAfterSecs) * time.Second
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
			// images usually succeed within the first check window.
		}
	default:
		return "", fmt.Errorf("media processing failed: state=%s", state)
	}

	if alt := strings.TrimSpace(altText); alt != "" {
		if err := c.setAltText(ctx, mediaID, alt); err != nil {
			return "", err
		}
	}

	return mediaID, nil
}

func (c *Client) setAltText(ctx context.Context, mediaID, altText string) error {
	params := &metadataParameters{mediaID: mediaID, altText: altText}
	ctx = context.WithValue(ctx, "Content-Type", "application/json;charset=UTF-8")
	if err := c.api.CallAPI(ctx, metadataEndpoint, http.MethodPost, params, &metadataResponse{}); err != nil {
		return fmt.Errorf("set alt text: %w", unwrapGotwiError(err))
	}
	return nil
}

func resolveMediaType(contentType string) (uploadtypes.MediaType, uploadtypes.MediaCategory, error) {
	switch {
	case strings.Contains(contentType, "jpeg"):
		return uploadtypes.MediaTypeJPEG, uploadtypes.MediaCategoryTweetImage, nil
	case strings.Contains(contentType, "png"):
		return uploadtypes.MediaTypePNG, uploadtypes.MediaCategoryTweetImage, nil
	case strings.Contains(contentType, "gif"):
		return uploadtypes.MediaTypeGIF, uploadtypes.MediaCategoryTweetGIF, nil
	case strings.Contains(contentType, "webp"):
		return uploadtypes.MediaTypeWebP, uploadtypes.MediaCategoryTweetImage, nil
	}
	return "", "", fmt.Errorf("unsupported media content type %q", contentType)
}

func tweetURL(username, id string) string {
	if username == "" {
		return "https://x.com/i/status/" + id
	}
	return fmt.Sprintf("https://x.com/%s/status/%s", username, id)
}

func partialError(partials []resources.PartialError) error {
	if len(partials) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(partials))
	for _, pe := range partials {
		switch {
		case pe.Detail != nil && *pe.Detail != "":
			msgs = append(msgs, *pe.Detail)
		case pe.Title != nil && *pe.Title != "":
			msgs = append(msgs, *pe.Title)
		case pe.ResourceType != nil:
			msgs = append(msgs, fmt.Sprintf("%s", *pe.ResourceType))
		}
	}
	if len(msgs) == 0 {
		msgs = append(msgs, "unknown error")
	}
	return errors.New(strings.Join(msgs, "; "))
}

func unwrapGotwiError(err error) error {
	var gwErr *gotwi.GotwiError
	if errors.As(err, &gwErr) && gwErr != nil {
		return errors.New(summarizeGotwiError(gwErr))
	}
	return err
}

func summarizeGotwiError(err *gotwi.GotwiError) string {
	if err == nil {
		return "unknown X API error"
	}

	parts := make([]string, 0, 4)
	if err.Title != "" {
		parts = append(parts, err.Title)
	}
	if err.Detail != "" {
		parts = append(parts, err.Detail)
	}
	for _, apiErr := range err.APIErrors {
		if apiErr.Message != "" {
			parts = append(parts, apiErr.Message)
		}
	}
	if len(parts) == 0 {
		if msg := err.Error(); msg != "" {
			parts = append(parts, msg)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "X API request failed")
	}

	return strings.Join(parts, "; ")
}

type metadataParameters struct {
	mediaID     string
	altText     string
	accessToken string
}

func (p *metadataParameters) SetAccessToken(token string) {
	p.accessToken = token
}

func (p *metadataParameters) AccessToken() string {
	return p.accessToken
}

func (p *metadataParameters) ResolveEndpoint(endpointBase string) string {
	return endpointBase
}

func (p *metadataParameters) Body() (io.Reader, error) {
	body := struct {
		MediaID string `json:"media_id"`
		AltText struct {
			Text string `json:"text"`
		} `json:"alt_text"`
	}{}
	body.MediaID = p.mediaID
	body.AltText.Text = p.altText

	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(buf), nil
}

func (p *metadataParameters) ParameterMap() map[string]string {
	return map[string]string{}
}

type metadataResponse struct{}

func (metadataResponse) HasPartialError() bool { return false }

func checkCredentials(creds publish.Credentials) error {
	if creds.Kind != publish.CredOAuth {
		return publish.AuthenticationError{Platform: publish.Twitter, Reason: fmt.Sprintf("expected %s credentials, got %s", publish.CredOAuth, creds.Kind)}
	}
	var missing []string
	for _, key := range []string{"consumer_key", "consumer_secret", "access_token", "access_token_secret"} {
		if creds.Get(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return publish.AuthenticationError{Platform: publish.Twitter, Reason: "missing " + strings.Join(missing, ", ")}
	}
	return nil
}

var _ publish.Client = (*Client)(nil)
