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
	"github.com/spf13/cobra"

	"github.com/crosspub/crosspub/internal/logutil"
	"github.com/crosspub/crosspub/internal/publish"
	"github.com/crosspub/crosspub/internal/publish/bluesky"
	"github.com/crosspub/crosspub/internal/publish/devto"
	"github.com/crosspub/crosspub/internal/publish/hashnode"
	"github.com/crosspub/crosspub/internal/publish/mastodon"
	"github.com/crosspub/crosspub/internal/publish/twitter"
)

var verboseFlag bool

// Execute runs the root command.
func Execute() error {
	return newRootCommand().Execute()
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crosspub",
		Short: "Publish one article to many platforms",
		Long: "crosspub adapts a single markdown article into platform-appropriate form and " +
			"publishes it to Hashnode, DEV, Bluesky, Mastodon and X, immediately or on a schedule.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logutil.SetVerbose(verboseFlag)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "V", false, "Enable debug logging")

	cmd.AddCommand(newPublishCommand())
	cmd.AddCommand(newScheduleCommand())
	cmd.AddCommand(newPlatformsCommand())
	cmd.AddCommand(newCompletionCommand())

	return cmd
}

// buildPublisher wires every platform's adapter and client into a fresh
// publisher. Registration is the only mutation; the registry is read-only
// afterwards.
func buildPublisher() *publish.Publisher {
	return publish.NewPublisher(
		publish.Registration{Adapter: hashnode.NewAdapter(), Client: hashnode.NewClient(hashnode.Config{})},
		publish.Registration{Adapter: devto.NewAdapter(), Client: devto.NewClient(devto.Config{})},
		publish.Registration{Adapter: bluesky.NewAdapter(), Client: bluesky.NewClient(bluesky.Config{})},
		publish.Registration{Adapter: mastodon.NewAdapter(), Client: mastodon.NewClient()},
		publish.Registration{Adapter: twitter.NewAdapter(), Client: twitter.NewClient()},
	)
}
