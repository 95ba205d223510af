package bluesky

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"
	"github.com/rivo/uniseg"

	"github.com/crosspub/crosspub/internal/logutil"
	"github.com/crosspub/crosspub/internal/publish"
	"github.com/crosspub/crosspub/internal/publish/textutil"
)

const (
	// DefaultPDSURL is the entryway PDS used when credentials name no host.
	DefaultPDSURL = "https://bsky.social"

	postCollection = "app.bsky.feed.post"
	requestTimeout = 30 * time.Second

	// threadPostDelay spaces out sequential thread posts to stay under the
	// PDS burst rate limit. Thread publishing is deliberately serial.
	threadPostDelay = time.Second
)

// Config allows the caller to supply defaults prior to authentication.
type Config struct {
	PDSURL string
}

// Client publishes to a Bluesky PDS over XRPC. One instance owns one
// session; the AT protocol cannot edit feed posts, so Update returns the
// unsupported-result shape.
type Client struct {
	pdsURL string

	authenticated bool
	xrpc          *xrpc.Client
	handle        string
	did           string
}

// NewClient constructs an unauthenticated Bluesky client.
func NewClient(cfg Config) *Client {
	pdsURL := strings.TrimSpace(cfg.PDSURL)
	if pdsURL == "" {
		pdsURL = DefaultPDSURL
	}
	return &Client{pdsURL: pdsURL}
}

// Platform identifies the destination.
func (c *Client) Platform() publish.Platform { return publish.Bluesky }

// Authenticate exchanges identifier and app password for a short-lived
// access/refresh token pair. Requires kind username-password with values
// "identifier" and "app_password"; "pds_url" overrides the configured host.
func (c *Client) Authenticate(ctx context.Context, creds publish.Credentials) error {
	if err := checkCredentials(creds); err != nil {
		return err
	}

	client, session, err := c.createSession(ctx, creds)
	if err != nil {
		c.authenticated = false
		return publish.AuthenticationError{Platform: publish.Bluesky, Reason: err.Error()}
	}

	client.Auth = &xrpc.AuthInfo{
		AccessJwt:  session.AccessJwt,
		RefreshJwt: session.RefreshJwt,
		Handle:     session.Handle,
		Did:        session.Did,
	}
	c.xrpc = client
	c.handle = session.Handle
	c.did = session.Did
	c.authenticated = true
	logutil.Debugf("bluesky authenticated: handle=%s", session.Handle)
	return nil
}

// ValidateCredentials probes a session exchange without adopting it.
func (c *Client) ValidateCredentials(ctx context.Context, creds publish.Credentials) publish.ValidationResult {
	result := publish.OKResult()
	if err := checkCredentials(creds); err != nil {
		result.AddError("%v", err)
		return result
	}
	if _, _, err := c.createSession(ctx, creds); err != nil {
		result.AddError("login rejected: %v", err)
	}
	return result
}

// Publish sends the text as one post, or as a thread of chained replies when
// it exceeds the per-post limit or thread mode is forced. Media embeds ride
// on the first post only.
func (c *Client) Publish(ctx context.Context, adapted *publish.AdaptedContent, cfg publish.PlatformConfig) (publish.PublishResult, error) {
	if !c.authenticated {
		return publish.PublishResult{}, publish.ErrNotAuthenticated(publish.Bluesky)
	}
	if result := NewAdapter().Validate(adapted); !result.Valid {
		return publish.Failure(publish.Bluesky, "content validation failed: %s", strings.Join(result.Errors, "; ")), nil
	}

	// the network counts grapheme clusters, so multi-byte text within the
	// limit stays a single post.
	text := adapted.Body
	segments := []string{text}
	if uniseg.GraphemeClusterCount(text) > MaxPostLen || adapted.Metadata["thread"] == "force" || cfg.Get("thread") == "force" {
		segments = textutil.SplitThread(text, MaxPostLen)
	}

	var embed *bsky.FeedPost_Embed
	if len(adapted.Media) > 0 {
		images, err := c.uploadImages(ctx, adapted.Media)
		if err != nil {
			return publish.Failure(publish.Bluesky, "media upload failed: %v", err), nil
		}
		embed = &bsky.FeedPost_Embed{EmbedImages: &bsky.EmbedImages{Images: images}}
	}

	var langs []string
	if lang := firstOf(cfg.Get("language"), adapted.Metadata["language"]); lang != "" {
		langs = []string{lang}
	}

	var rootRef, parentRef *atproto.RepoStrongRef
	var first publish.PublishResult
	for i, segment := range segments {
		if i > 0 {
			timer := time.NewTimer(threadPostDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				first.Error = fmt.Sprintf("thread interrupted after %d of %d posts: %v", i, len(segments), ctx.Err())
				first.Success = false
				return first, nil
			case <-timer.C:
			}
		}

		post := &bsky.FeedPost{
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
			Text:      segment,
			Facets:    detectFacets(ctx, segment, c.resolveHandle),
			Langs:     langs,
		}
		if i == 0 {
			post.Embed = embed
		}
		if parentRef != nil {
			post.Reply = &bsky.FeedPost_ReplyRef{Root: rootRef, Parent: parentRef}
		}

		out, err := atproto.RepoCreateRecord(ctx, c.xrpc, &atproto.RepoCreateRecord_Input{
			Collection: postCollection,
			Repo:       c.did,
			Record:     &util.LexiconTypeDecoder{Val: post},
		})
		if err != nil {
			if i == 0 {
				return publish.Failure(publish.Bluesky, "create record: %v", summarizeXRPCError(err)), nil
			}
			first.Error = fmt.Sprintf("thread truncated after %d of %d posts: %v", i, len(segments), summarizeXRPCError(err))
			first.Success = false
			return first, nil
		}

		ref := &atproto.RepoStrongRef{Cid: out.Cid, Uri: out.Uri}
		parentRef = ref
		if i == 0 {
			rootRef = ref
			first = publish.PublishResult{
				Platform: publish.Bluesky,
				Success:  true,
				PostID:   out.Uri,
				URL:      c.postURL(out.Uri),
				Response: map[string]any{"uri": out.Uri, "cid": out.Cid, "segments": len(segments)},
			}
		}
		logutil.Debugf("bluesky post %d/%d created: uri=%s", i+1, len(segments), out.Uri)
	}

	return first, nil
}

// Update returns the unsupported-result shape: the AT protocol has no edit
// for feed posts. The workaround is delete-and-recreate, which is the
// caller's decision, not this client's.
func (c *Client) Update(ctx context.Context, id string, adapted *publish.AdaptedContent, cfg publish.PlatformConfig) (publish.PublishResult, error) {
	return publish.Unsupported(publish.Bluesky, "update",
		"the AT protocol cannot edit feed posts; delete and recreate instead"), nil
}

// Delete removes the record behind an at:// URI.
func (c *Client) Delete(ctx context.Context, id string) (publish.PublishResult, error) {
	if !c.authenticated {
		return publish.PublishResult{}, publish.ErrNotAuthenticated(publish.Bluesky)
	}

	rkey, err := recordKey(id)
	if err != nil {
		return publish.Failure(publish.Bluesky, "delete rejected: %v", err), nil
	}

	if _, err := atproto.RepoDeleteRecord(ctx, c.xrpc, &atproto.RepoDeleteRecord_Input{
		Collection: postCollection,
		Repo:       c.did,
		Rkey:       rkey,
	}); err != nil {
		return publish.Failure(publish.Bluesky, "delete rejected: %v", summarizeXRPCError(err)), nil
	}

	return publish.PublishResult{Platform: publish.Bluesky, Success: true, PostID: id}, nil
}

// Metadata reports the session profile and the network's fixed limits.
func (c *Client) Metadata(ctx context.Context) (*publish.PlatformMetadata, error) {
	if !c.authenticated {
		return nil, publish.ErrNotAuthenticated(publish.Bluesky)
	}

	meta := &publish.PlatformMetadata{
		Platform:   publish.Bluesky,
		Username:   c.handle,
		ProfileURL: "https://bsky.app/profile/" + c.handle,
		MaxChars:   MaxPostLen,
		MaxMedia:   MaxImages,
		RateLimit:  publish.RateLimit{Requests: 5000, Window: time.Hour},
		Extra:      map[string]string{"did": c.did, "pds_url": c.pdsURL},
	}
	if profile, err := bsky.ActorGetProfile(ctx, c.xrpc, c.did); err == nil && profile.DisplayName != nil {
		meta.DisplayName = *profile.DisplayName
	}
	return meta, nil
}

func (c *Client) createSession(ctx context.Context, creds publish.Credentials) (*xrpc.Client, *atproto.ServerCreateSession_Output, error) {
	host := firstOf(creds.Get("pds_url"), c.pdsURL)
	userAgent := "crosspub/1"
	client := &xrpc.Client{
		Client:    &http.Client{Timeout: requestTimeout},
		Host:      host,
		UserAgent: &userAgent,
	}

	session, err := atproto.ServerCreateSession(ctx, client, &atproto.ServerCreateSession_Input{
		Identifier: creds.Get("identifier"),
		Password:   creds.Get("app_password"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("login: %w", err)
	}
	return client, session, nil
}

func (c *Client) uploadImages(ctx context.Context, media []publish.MediaAttachment) ([]*bsky.EmbedImages_Image, error) {
	images := make([]*bsky.EmbedImages_Image, 0, len(media))
	for _, m := range media {
		data, _, err := publish.FetchMedia(ctx, m.URL)
		if err != nil {
			return nil, err
		}
		resp, err := atproto.RepoUploadBlob(ctx, c.xrpc, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("upload blob: %w", err)
		}
		if resp.Blob == nil {
			return nil, fmt.Errorf("upload blob: empty response")
		}
		images = append(images, &bsky.EmbedImages_Image{Alt: m.AltText, Image: resp.Blob})
	}
	return images, nil
}

func (c *Client) resolveHandle(ctx context.Context, handle string) (string, error) {
	out, err := atproto.IdentityResolveHandle(ctx, c.xrpc, handle)
	if err != nil {
		return "", err
	}
	return out.Did, nil
}

// postURL converts an at:// record URI into the public web URL.
func (c *Client) postURL(uri string) string {
	rkey, err := recordKey(uri)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("https://bsky.app/profile/%s/post/%s", c.handle, rkey)
}

// recordKey extracts the rkey from an at://did/collection/rkey URI.
func recordKey(uri string) (string, error) {
	trimmed := strings.TrimPrefix(uri, "at://")
	parts := strings.Split(trimmed, "/")
	if trimmed == uri || len(parts) != 3 || parts[2] == "" {
		return "", fmt.Errorf("malformed record uri %q", uri)
	}
	return parts[2], nil
}

func checkCredentials(creds publish.Credentials) error {
	if creds.Kind != publish.CredUsernamePassword {
		return publish.AuthenticationError{Platform: publish.Bluesky, Reason: fmt.Sprintf("expected %s credentials, got %s", publish.CredUsernamePassword, creds.Kind)}
	}
	var missing []string
	if creds.Get("identifier") == "" {
		missing = append(missing, "identifier")
	}
	if creds.Get("app_password") == "" {
		missing = append(missing, "app_password")
	}
	if len(missing) > 0 {
		return publish.AuthenticationError{Platform: publish.Bluesky, Reason: "missing " + strings.Join(missing, ", ")}
	}
	return nil
}

func summarizeXRPCError(err error) string {
	if xe, ok := err.(*xrpc.Error); ok {
		return xe.Error()
	}
	return err.Error()
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
