package main

import (
	"github.com/spf13/cobra"

	"github.com/Veraticus/sift/internal/cli"
)

func sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List import sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			sessions, err := a.importer.ListSessions(ctx)
			if err != nil {
				return err
			}
			return cli.RenderSessions(cmd.OutOrStdout(), sessions)
		},
	}
}
