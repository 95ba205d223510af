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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/crosspub/crosspub/internal/publish"
	"github.com/crosspub/crosspub/internal/publish/textutil"
	"github.com/crosspub/crosspub/internal/schedule"
)

var (
	dbPathFlag     string
	scheduleAtFlag string
)

func newScheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage scheduled publishes",
		Long: "schedule records planned publishes in a local database. \"schedule run\" executes " +
			"every due record once; failed records stay FAILED until retried explicitly.",
	}

	cmd.PersistentFlags().StringVar(&dbPathFlag, "db", defaultDBPath(), "Path to the schedule database")

	add := &cobra.Command{
		Use:   "add <content-file> <platform>",
		Short: "Schedule a markdown file for publishing",
		Args:  cobra.ExactArgs(2),
		RunE:  runScheduleAdd,
		Example: `  crosspub schedule add post.md devto --at 2026-01-02T15:00:00Z
  crosspub schedule add post.md bluesky`,
	}
	add.Flags().StringVar(&scheduleAtFlag, "at", "", "Publish time (RFC 3339, defaults to now)")

	cmd.AddCommand(add)
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all schedules",
		Args:  cobra.NoArgs,
		RunE:  runScheduleList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Execute every schedule that is due",
		Args:  cobra.NoArgs,
		RunE:  runScheduleRun,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "retry <id>",
		Short: "Re-enter a failed schedule into PENDING",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduleRetry,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a pending schedule",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduleCancel,
	})

	return cmd
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "crosspub.db"
	}
	return filepath.Join(home, ".crosspub", "schedules.db")
}

func openStore() (*schedule.Store, error) {
	return schedule.NewStore(dbPathFlag)
}

func runScheduleAdd(cmd *cobra.Command, args []string) error {
	contentFile, platformArg := args[0], args[1]

	platform, err := publish.ParsePlatform(strings.ToLower(platformArg))
	if err != nil {
		return err
	}
	if _, err := os.Stat(contentFile); err != nil {
		return fmt.Errorf("content file: %w", err)
	}

	publishAt := time.Now().UTC()
	if scheduleAtFlag != "" {
		publishAt, err = time.Parse(time.RFC3339, scheduleAtFlag)
		if err != nil {
			return fmt.Errorf("parse --at: %w", err)
		}
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sched := schedule.New(contentFile, platform, publishAt)
	if err := store.Create(sched); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "scheduled %s for %s at %s (id %s)\n",
		contentFile, platform, publishAt.Format(time.RFC3339), sched.ID)
	return nil
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	schedules, err := store.List()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(schedules) == 0 {
		fmt.Fprintln(out, "no schedules")
		return nil
	}
	for _, sched := range schedules {
		line := fmt.Sprintf("%s  %-10s  %-10s  %s  %s",
			sched.ID, sched.Status, sched.Platform, sched.PublishAt.Format(time.RFC3339), sched.ContentID)
		if sched.LastError != "" {
			line += "  (" + sched.LastError + ")"
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func runScheduleRun(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runner := schedule.NewRunner(store, buildPublisher(), fileContentSource, scheduleCredentials)
	outcomes, err := runner.RunDue(cmd.Context(), time.Now().UTC())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(outcomes) == 0 {
		fmt.Fprintln(out, "nothing due")
		return nil
	}

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Result.Success {
			fmt.Fprintf(out, "%s: published to %s (%s)\n",
				outcome.Schedule.ID, outcome.Schedule.Platform, outcome.Result.URL)
			continue
		}
		failed++
		fmt.Fprintf(out, "%s: failed on %s: %s\n",
			outcome.Schedule.ID, outcome.Schedule.Platform, outcome.Result.Error)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d schedules failed", failed, len(outcomes))
	}
	return nil
}

func runScheduleRetry(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runner := schedule.NewRunner(store, buildPublisher(), fileContentSource, scheduleCredentials)
	sched, err := runner.Retry(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schedule %s is PENDING again (attempt %d)\n", sched.ID, sched.RetryCount+1)
	return nil
}

func runScheduleCancel(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runner := schedule.NewRunner(store, buildPublisher(), fileContentSource, scheduleCredentials)
	sched, err := runner.Cancel(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schedule %s cancelled\n", sched.ID)
	return nil
}

// fileContentSource treats the schedule's content id as a markdown file
// path: a leading "# " heading becomes the title, the rest the body.
func fileContentSource(ctx context.Context, contentID string) (*publish.ContentInput, error) {
	data, err := os.ReadFile(contentID)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, errors.New("content file is empty")
	}

	title := ""
	body := text
	if strings.HasPrefix(text, "# ") {
		if idx := strings.Index(text, "\n"); idx > 0 {
			title = strings.TrimSpace(strings.TrimPrefix(text[:idx], "# "))
			body = strings.TrimSpace(text[idx+1:])
		}
	}
	if title == "" {
		title = textutil.TruncateAtWord(textutil.StripMarkdown(body), 80)
	}

	return &publish.ContentInput{
		Title: title,
		Body:  body,
		Type:  publish.ContentArticle,
	}, nil
}

func scheduleCredentials(platform publish.Platform) (publish.Credentials, publish.PlatformConfig, error) {
	creds, err := credentialsFromEnv(platform)
	if err != nil {
		return publish.Credentials{}, nil, err
	}
	return creds, platformConfigFromEnv(platform), nil
}
