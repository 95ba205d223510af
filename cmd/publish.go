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
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crosspub/crosspub/internal/publish"
)

var (
	titleFlag       string
	bodyFileFlag    string
	excerptFlag     string
	tagsFlag        []string
	imageFlag       string
	imageAltFlag    string
	canonicalFlag   string
	targetsFlag     []string
	forceThreadFlag bool
	draftFlag       bool
	dryRun          bool
)

const defaultAltText = "Image attached via crosspub"

func newPublishCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an article to the selected platforms now",
		Long: "publish adapts the article per platform, validates it and fans it out to every " +
			"selected destination concurrently. One platform failing never blocks the others.",
		RunE: runPublish,
		Example: `  crosspub publish --title "Ship it" --body-file post.md --tag go --tag release
  cat post.md | crosspub publish --title "Ship it" --target bluesky --target mastodon
  crosspub publish --title "Ship it" --body-file post.md --targets all --dry-run`,
	}

	cmd.Flags().StringVarP(&titleFlag, "title", "t", "", "Article title")
	cmd.Flags().StringVarP(&bodyFileFlag, "body-file", "f", "", "Markdown file with the article body (defaults to stdin)")
	cmd.Flags().StringVar(&excerptFlag, "excerpt", "", "Short excerpt used as subtitle/teaser")
	cmd.Flags().StringSliceVar(&tagsFlag, "tag", nil, "Tag to attach (repeatable)")
	cmd.Flags().StringVar(&imageFlag, "image", "", "Path or URL of an image to attach")
	cmd.Flags().StringVar(&imageAltFlag, "alt-text", "", "Alternative text describing the image")
	cmd.Flags().StringVar(&canonicalFlag, "canonical-url", "", "Canonical URL for cross-posted articles")
	cmd.Flags().StringSliceVar(&targetsFlag, "target", nil, "Platform to publish to (repeatable, or \"all\")")
	cmd.Flags().BoolVar(&forceThreadFlag, "thread", false, "Force thread mode on platforms that split long posts")
	cmd.Flags().BoolVar(&draftFlag, "draft", false, "Publish as draft where the platform supports it")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Adapt and validate without publishing")
	cmd.Flags().SortFlags = false

	return cmd
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	content, err := resolveContent(cmd)
	if err != nil {
		return err
	}

	targets, err := normalizeTargets(targetsFlag)
	if err != nil {
		return err
	}

	opts := publish.AdaptOptions{
		CanonicalURL: canonicalFlag,
		ForceThread:  forceThreadFlag,
		Draft:        draftFlag,
	}

	publisher := buildPublisher()

	if dryRun {
		for _, target := range targets {
			fmt.Fprintf(out, "[dry-run] would publish %q to %s\n", content.Title, target)
		}
		return nil
	}

	var requests []publish.Request
	var skipped []error
	for _, target := range targets {
		creds, err := credentialsFromEnv(target)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		if err := publisher.AuthenticatePlatform(ctx, target, creds); err != nil {
			skipped = append(skipped, err)
			continue
		}
		requests = append(requests, publish.Request{
			Platform: target,
			Options:  opts,
			Config:   platformConfigFromEnv(target),
		})
	}

	if len(requests) == 0 {
		skipped = append(skipped, errors.New("no targets available"))
		return errors.Join(skipped...)
	}

	results := publisher.PublishToMultiplePlatforms(ctx, requests, content)
	printResults(out, results)
	for _, err := range skipped {
		fmt.Fprintf(out, "skipped: %v\n", err)
	}

	for _, result := range results {
		if !result.Success {
			return errors.New("some platforms failed")
		}
	}
	if len(skipped) > 0 {
		return errors.New("some platforms were skipped")
	}
	return nil
}

func resolveContent(cmd *cobra.Command) (*publish.ContentInput, error) {
	if strings.TrimSpace(titleFlag) == "" {
		return nil, errors.New("--title is required")
	}

	var body string
	if bodyFileFlag != "" {
		data, err := os.ReadFile(bodyFileFlag)
		if err != nil {
			return nil, fmt.Errorf("read body file: %w", err)
		}
		body = string(data)
	} else {
		stdin := cmd.InOrStdin()
		if file, ok := stdin.(*os.File); ok {
			info, err := file.Stat()
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}
			if (info.Mode() & os.ModeCharDevice) != 0 {
				return nil, errors.New("provide the body with --body-file or on stdin")
			}
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		body = string(data)
	}
	if strings.TrimSpace(body) == "" {
		return nil, errors.New("article body is empty")
	}

	metadata := map[string]string{}
	if len(tagsFlag) > 0 {
		metadata["tags"] = strings.Join(tagsFlag, ",")
	}

	content := &publish.ContentInput{
		Title:    strings.TrimSpace(titleFlag),
		Body:     body,
		Excerpt:  strings.TrimSpace(excerptFlag),
		Type:     publish.ContentArticle,
		Metadata: metadata,
	}
	if imageFlag != "" {
		alt := strings.TrimSpace(imageAltFlag)
		if alt == "" {
			alt = defaultAltText
		}
		content.Media = []publish.MediaAttachment{{
			URL:     imageFlag,
			AltText: alt,
			Kind:    publish.MediaImage,
		}}
	}
	return content, nil
}

func normalizeTargets(values []string) ([]publish.Platform, error) {
	if len(values) == 0 {
		return publish.Platforms(), nil
	}

	result := make([]publish.Platform, 0, len(values))
	seen := map[publish.Platform]struct{}{}
	for _, raw := range values {
		raw = strings.TrimSpace(strings.ToLower(raw))
		if raw == "" {
			continue
		}
		if raw == "all" {
			return publish.Platforms(), nil
		}
		platform, err := publish.ParsePlatform(raw)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[platform]; ok {
			continue
		}
		seen[platform] = struct{}{}
		result = append(result, platform)
	}

	if len(result) == 0 {
		return nil, errors.New("no targets selected")
	}

	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result, nil
}

func printResults(out io.Writer, results map[publish.Platform]publish.PublishResult) {
	platforms := make([]publish.Platform, 0, len(results))
	for platform := range results {
		platforms = append(platforms, platform)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })

	succeeded := 0
	for _, platform := range platforms {
		result := results[platform]
		if result.Success {
			succeeded++
			if result.URL != "" {
				fmt.Fprintf(out, "published to %s: %s\n", platform, result.URL)
			} else {
				fmt.Fprintf(out, "published to %s: id=%s\n", platform, result.PostID)
			}
			continue
		}
		fmt.Fprintf(out, "failed on %s: %s\n", platform, result.Error)
	}
	fmt.Fprintf(out, "%d of %d platforms succeeded\n", succeeded, len(platforms))
}
