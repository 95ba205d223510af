package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/crosspub/crosspub/internal/logutil"
)

const (
	mediaFetchTimeout = 30 * time.Second

	// MaxMediaBytes bounds a single attachment download.
	MaxMediaBytes = 10 << 20
)

func newMediaHTTPClient() *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	rc.HTTPClient.Timeout = mediaFetchTimeout
	return rc.StandardClient()
}

var mediaHTTPClient = newMediaHTTPClient()

// FetchMedia loads an attachment's bytes plus its detected content type. The
// URL may be an http(s) address or a local file path.
func FetchMedia(ctx context.Context, url string) ([]byte, string, error) {
	var data []byte
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, "", fmt.Errorf("media request: %w", err)
		}
		resp, err := mediaHTTPClient.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("fetch media: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, "", fmt.Errorf("fetch media: unexpected status %s", resp.Status)
		}
		data, err = io.ReadAll(io.LimitReader(resp.Body, MaxMediaBytes+1))
		if err != nil {
			return nil, "", fmt.Errorf("read media: %w", err)
		}
	} else {
		var err error
		data, err = os.ReadFile(url)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, "", fmt.Errorf("media %q not found", url)
			}
			return nil, "", fmt.Errorf("read media: %w", err)
		}
	}

	if len(data) > MaxMediaBytes {
		return nil, "", fmt.Errorf("media %q exceeds %d bytes", url, MaxMediaBytes)
	}

	contentType := http.DetectContentType(data)
	logutil.Debugf("fetched media: url=%s bytes=%d type=%s", url, len(data), contentType)
	return data, contentType, nil
}
