// Command lowercore is the CLI driver for the lowering core: a thin
// cobra wrapper, grounded directly on cmd/ralph-cc/main.go's
// newRootCmd(out, errOut io.Writer) shape, so the command tree stays
// testable without touching os.Stdout/os.Stderr directly.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tacir/lowercore/internal/scenarios"
	"github.com/tacir/lowercore/registry"
)

var version = "0.1.0"

var format string

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lowercore",
		Short:         "lowercore lowers multi-language syntax trees to a flat IR",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.PersistentFlags().StringVar(&format, "format", "text", `output format: "text" (default) or "raw"`)

	rootCmd.AddCommand(newLowerCmd(out, errOut))
	rootCmd.AddCommand(newReplayCmd(out, errOut))
	rootCmd.AddCommand(newListLanguagesCmd(out))

	return rootCmd
}

// newLowerCmd lowers one of the built-in scenario fixtures by name,
// since this repo carries no parser collaborator of its own (spec
// §4.4) to turn an arbitrary source file into a tree.
func newLowerCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "lower <scenario-name>",
		Short: "lower a named scenario fixture and print its instructions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cases, err := scenarios.Load()
			if err != nil {
				return err
			}
			for _, c := range cases {
				if c.Name != name {
					continue
				}
				rendered, err := scenarios.Run(c)
				if err != nil {
					fmt.Fprintf(errOut, "lowercore: lowering %s failed: %v\n", name, err)
					return err
				}
				if format == "raw" {
					fmt.Fprint(out, rendered)
				} else {
					fmt.Fprintf(out, "# %s (%s): %s\n%s", c.Name, c.Language, c.Description, rendered)
				}
				return nil
			}
			return fmt.Errorf("lowercore: no scenario named %q (see replay for known names)", name)
		},
	}
}

// newReplayCmd runs every scenario fixture and reports a pass/fail
// summary, the CLI analogue of internal/scenarios' own test suite.
func newReplayCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "replay every scenario fixture and report pass/fail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cases, err := scenarios.Load()
			if err != nil {
				return err
			}
			failures := 0
			for _, c := range cases {
				rendered, err := scenarios.Run(c)
				if err != nil {
					fmt.Fprintf(out, "FAIL %s: %v\n", c.Name, err)
					failures++
					continue
				}
				if missing := firstMissing(rendered, c.ExpectOrder); missing != "" {
					fmt.Fprintf(out, "FAIL %s: expected %q in order, not found\n", c.Name, missing)
					failures++
					continue
				}
				fmt.Fprintf(out, "PASS %s\n", c.Name)
			}
			if failures > 0 {
				return fmt.Errorf("lowercore: %d scenario(s) failed", failures)
			}
			return nil
		},
	}
}

func firstMissing(rendered string, expectOrder []string) string {
	offset := 0
	for _, want := range expectOrder {
		idx := strings.Index(rendered[offset:], want)
		if idx < 0 {
			return want
		}
		offset += idx + len(want)
	}
	return ""
}

// newListLanguagesCmd prints the registry's known language tags.
func newListLanguagesCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list-languages",
		Short: "list every registered language tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			langs := registry.Languages()
			sort.Strings(langs)
			for _, l := range langs {
				fmt.Fprintln(out, l)
			}
			return nil
		},
	}
}
