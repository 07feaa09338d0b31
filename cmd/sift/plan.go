package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Veraticus/sift/internal/cli"
	"github.com/Veraticus/sift/internal/plan"
)

func planCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "plan <session-id>",
		Short: "Show the current plan of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.importer.GetPlan(ctx, args[0])
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}
			return cli.RenderPlan(cmd.OutOrStdout(), p, plan.CanCommit(p))
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the plan as JSON")

	return cmd
}
