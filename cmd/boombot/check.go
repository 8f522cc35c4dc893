package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"boombot/pkg/boombot"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "check <text>...",
		Short: "Report whether each input names a sector, and which rule matched",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			matcher := boombot.NewMatcher(cfg.Vocabulary(), opts.consoleLogger(cmd.ErrOrStderr(), cfg))

			results := make([]boombot.MatchResult, 0, len(args))
			invalid := 0
			for _, arg := range args {
				result := matcher.Match(arg)
				if !result.Matched {
					invalid++
				}
				results = append(results, result)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				for _, result := range results {
					if err := enc.Encode(result); err != nil {
						return err
					}
				}
			} else if err := writeMatchTable(out, results); err != nil {
				return err
			}

			if invalid > 0 {
				return fmt.Errorf("%d of %d inputs are not recognized sectors", invalid, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per input")
	return cmd
}

func writeMatchTable(w io.Writer, results []boombot.MatchResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INPUT\tVALID\tLAYER\tTARGET")
	for _, r := range results {
		layer, target := string(r.Layer), r.Target
		if layer == "" {
			layer = "-"
		}
		if target == "" {
			target = "-"
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", r.Input, r.Matched, layer, target)
	}
	return tw.Flush()
}

func newFormatCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "format [file]",
		Short: "Format a raw model response (file or stdin) into reply lines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if len(args) == 1 && args[0] != "-" {
				raw, err = os.ReadFile(args[0])
			} else {
				raw, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read response: %w", err)
			}

			parsed := boombot.ParseResponse(string(raw))
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(parsed)
			}
			_, err = fmt.Fprintln(out, parsed.Text)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the parsed records as JSON")
	return cmd
}
