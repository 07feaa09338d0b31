package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Veraticus/sift/internal/cli"
)

func resultCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "result <session-id>",
		Short: "Show the execution result of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.importer.GetResult(ctx, args[0])
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			return cli.RenderResult(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}
