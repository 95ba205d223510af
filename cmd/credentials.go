/*
Copyright © 2025 crosspub authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/crosspub/crosspub/internal/publish"
)

// envSpec describes one platform's environment variables.
type envSpec struct {
	kind     publish.CredentialKind
	required map[string]string // credential key -> env var
	optional map[string]string
	// promptKey names the one secret worth prompting for interactively when
	// it is the only missing variable and stdin is a terminal.
	promptKey string
}

var envSpecs = map[publish.Platform]envSpec{
	publish.Hashnode: {
		kind: publish.CredBearerToken,
		required: map[string]string{
			"token":          "CROSSPUB_HASHNODE_TOKEN",
			"publication_id": "CROSSPUB_HASHNODE_PUBLICATION_ID",
		},
		promptKey: "token",
	},
	publish.DevTo: {
		kind: publish.CredAPIKey,
		required: map[string]string{
			"api_key": "CROSSPUB_DEVTO_API_KEY",
		},
		promptKey: "api_key",
	},
	publish.Bluesky: {
		kind: publish.CredUsernamePassword,
		required: map[string]string{
			"identifier":   "CROSSPUB_BLUESKY_HANDLE",
			"app_password": "CROSSPUB_BLUESKY_APP_PASSWORD",
		},
		optional: map[string]string{
			"pds_url": "CROSSPUB_BLUESKY_PDS_URL",
		},
		promptKey: "app_password",
	},
	publish.Mastodon: {
		kind: publish.CredBearerToken,
		required: map[string]string{
			"server":       "CROSSPUB_MASTODON_SERVER",
			"access_token": "CROSSPUB_MASTODON_ACCESS_TOKEN",
		},
		promptKey: "access_token",
	},
	publish.Twitter: {
		kind: publish.CredOAuth,
		required: map[string]string{
			"consumer_key":        "CROSSPUB_TWITTER_CONSUMER_KEY",
			"consumer_secret":     "CROSSPUB_TWITTER_CONSUMER_SECRET",
			"access_token":        "CROSSPUB_TWITTER_ACCESS_TOKEN",
			"access_token_secret": "CROSSPUB_TWITTER_ACCESS_TOKEN_SECRET",
		},
		optional: map[string]string{
			"username": "CROSSPUB_TWITTER_USERNAME",
		},
	},
}

// credentialsFromEnv assembles a platform's credentials from the
// environment. When exactly one secret is missing and stdin is a terminal,
// the user is prompted for it instead of failing.
func credentialsFromEnv(platform publish.Platform) (publish.Credentials, error) {
	spec, ok := envSpecs[platform]
	if !ok {
		return publish.Credentials{}, fmt.Errorf("no credential mapping for platform %q", platform)
	}

	values := map[string]string{}
	var missing []string
	for key, envVar := range spec.required {
		if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
			values[key] = v
			continue
		}
		missing = append(missing, envVar)
	}
	for key, envVar := range spec.optional {
		if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
			values[key] = v
		}
	}

	if len(missing) == 1 && spec.promptKey != "" && values[spec.promptKey] == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		secret, err := promptSecret(fmt.Sprintf("%s %s", platform, spec.promptKey))
		if err == nil && secret != "" {
			values[spec.promptKey] = secret
			missing = nil
		}
	}

	if len(missing) > 0 {
		return publish.Credentials{}, publish.MissingEnvError{Platform: platform, Variables: missing}
	}
	return publish.Credentials{Kind: spec.kind, Values: values}, nil
}

func promptSecret(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(secret)), nil
}

// platformConfigFromEnv reads optional per-platform publish options.
func platformConfigFromEnv(platform publish.Platform) publish.PlatformConfig {
	cfg := publish.PlatformConfig{}
	switch platform {
	case publish.Mastodon:
		if v := os.Getenv("CROSSPUB_MASTODON_VISIBILITY"); v != "" {
			cfg["visibility"] = v
		}
	case publish.Hashnode:
		if v := os.Getenv("CROSSPUB_HASHNODE_SERIES_ID"); v != "" {
			cfg["series_id"] = v
		}
	}
	if len(cfg) == 0 {
		return nil
	}
	return cfg
}
