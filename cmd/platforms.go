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
	"sort"

	"github.com/spf13/cobra"
)

func newPlatformsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List supported platforms and their credential variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			publisher := buildPublisher()
			for _, platform := range publisher.AvailablePlatforms() {
				fmt.Fprintf(out, "%s\n", platform)
				spec, ok := envSpecs[platform]
				if !ok {
					continue
				}
				vars := make([]string, 0, len(spec.required)+len(spec.optional))
				for _, envVar := range spec.required {
					vars = append(vars, envVar)
				}
				for _, envVar := range spec.optional {
					vars = append(vars, envVar+" (optional)")
				}
				sort.Strings(vars)
				for _, v := range vars {
					fmt.Fprintf(out, "  %s\n", v)
				}
			}
			return nil
		},
	}
}
