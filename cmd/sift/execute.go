package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/sift/internal/cli"
	"github.com/Veraticus/sift/internal/commit"
	"github.com/Veraticus/sift/internal/common"
)

func executeCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "execute <session-id>",
		Short: "Commit a session's plan",
		Long: `Write the plan of a session to the database. Only plans without pending
fact candidates or unclassified items can be committed. A checkpoint is
taken first so the commit can be undone with "sift checkpoint restore".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sessionID := args[0]
			out := cmd.OutOrStdout()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.importer.GetPlan(ctx, sessionID)
			if err != nil {
				return err
			}

			var progress *cli.ProgressObserver
			if !quiet {
				progress = cli.NewProgressObserver(cmd.ErrOrStderr(), len(p.Containers)+len(p.Items))
			}

			result, execErr := a.importer.Execute(ctx, sessionID, observer(progress))
			if progress != nil && execErr == nil {
				progress.Finish()
			}
			if execErr != nil {
				var blocked *common.CommitBlockedError
				if errors.As(execErr, &blocked) {
					fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf(
						"%d fact candidates and %d items still need a decision: sift resolve %s --interactive",
						blocked.PendingFacts, blocked.Unclassified, sessionID)))
				}
				if result != nil {
					if err := cli.RenderResult(out, result); err != nil {
						return err
					}
				}
				return execErr
			}

			return cli.RenderResult(out, result)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not draw a progress bar")

	return cmd
}

// observer avoids handing the executor a typed nil.
func observer(p *cli.ProgressObserver) commit.Observer {
	if p == nil {
		return commit.NopObserver{}
	}
	return p
}
