package cli

import (
	"encoding/json"
	"fmt"

	"github.com/guardrail-dev/guardrail/internal/version"
	"github.com/spf13/cobra"
)

// GetVersionCmd exports the version command
func GetVersionCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:          "version",
		Short:        "Print version information",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Info()
			out := cmd.OutOrStdout()
			switch format {
			case formatJSON:
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			case formatText:
				fmt.Fprintf(out, "guardrail %s\n", info.Version)
				if info.Revision != "" {
					dirty := ""
					if info.Modified {
						dirty = " (modified)"
					}
					fmt.Fprintf(out, "revision: %s%s\n", info.Revision, dirty)
				}
				if info.GoVersion != "" {
					fmt.Fprintf(out, "go: %s\n", info.GoVersion)
				}
			default:
				return usageError("unknown format %q (want text or json)", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text or json")
	return cmd
}
