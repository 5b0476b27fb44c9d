package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/navsync/internal/errors"
)

func explainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <code>",
		Short: "Describe an error code",
		Long: `Print the category, message, hint and documentation link for an
error code such as N004.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.ToUpper(strings.TrimSpace(args[0]))
			tmpl, ok := errors.Lookup(code)
			if !ok {
				return fmt.Errorf("unknown error code %q", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", code, tmpl.Category)
			fmt.Fprintf(out, "  %s\n", tmpl.Message)
			if tmpl.Suggestion != "" {
				fmt.Fprintf(out, "  Hint: %s\n", tmpl.Suggestion)
			}
			if tmpl.DocURL != "" {
				fmt.Fprintf(out, "  Docs: %s\n", tmpl.DocURL)
			}
			return nil
		},
	}
}
