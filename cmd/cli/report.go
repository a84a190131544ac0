package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var now, out string
	var html bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the caregiver report as Markdown or HTML",
		Long: `Render the caregiver report covering every analysis.

Example: sensetrack report --html --out report.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			at, err := parseNow(now, c.Insights.Now())
			if err != nil {
				return err
			}

			var body []byte
			if html {
				body, err = c.Reports.HTML(cmd.Context(), at)
			} else {
				var md string
				md, err = c.Reports.Markdown(cmd.Context(), at)
				body = []byte(md)
			}
			if err != nil {
				return err
			}

			if out == "" {
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}
			if err := os.WriteFile(out, body, 0o644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&now, "now", "", "Reference time (RFC3339), defaults to the current time")
	cmd.Flags().StringVar(&out, "out", "", "Write to a file instead of stdout")
	cmd.Flags().BoolVar(&html, "html", false, "Render a standalone HTML page")
	return cmd
}
