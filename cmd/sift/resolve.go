package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/sift/internal/cli"
	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/plan"
)

func resolveCmd() *cobra.Command {
	var (
		itemID      string
		outcome     string
		factKind    string
		set         []string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <session-id>",
		Short: "Settle uncertain items of a session",
		Long: `Attach a resolution to an ambiguous or unclassified item. Resolutions can
turn an item into a fact of a known kind, a derived state change, internal
work, or skip it entirely.`,
		Example: `  # Resolve one item as a payment
  sift resolve 3f2a... --item i4 --outcome FACT_EMITTED --kind PaymentRecord --set paid_on=2024-03-01

  # Walk every uncertain item
  sift resolve 3f2a... --interactive`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := args[0]

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if interactive {
				return runInteractiveResolve(cmd, a, sessionID)
			}

			if itemID == "" || outcome == "" {
				return fmt.Errorf("--item and --outcome are required unless --interactive is set")
			}
			payload, err := parseAssignments(set)
			if err != nil {
				return err
			}

			r := model.Resolution{
				ItemTempID:       itemID,
				ResolvedOutcome:  model.Outcome(strings.ToUpper(outcome)),
				ResolvedFactKind: factKind,
				ResolvedPayload:  payload,
			}
			p, decision, err := a.importer.SubmitResolutions(cmd.Context(), sessionID, []model.Resolution{r})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Resolved %s (plan version %d)", itemID, p.Version)))
			fmt.Fprintln(out, cli.RenderStats(decision.Stats))
			if decision.Allowed {
				fmt.Fprintln(out, cli.FormatSuccess("Ready to commit: sift execute "+sessionID))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&itemID, "item", "", "temp id of the item to resolve")
	cmd.Flags().StringVar(&outcome, "outcome", "", "FACT_EMITTED, DERIVED_STATE, INTERNAL_WORK or SKIP")
	cmd.Flags().StringVar(&factKind, "kind", "", "fact kind, required for FACT_EMITTED")
	cmd.Flags().StringSliceVar(&set, "set", nil, "payload override as key=value (repeatable)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for every uncertain item")

	return cmd
}

func runInteractiveResolve(cmd *cobra.Command, a *app, sessionID string) error {
	out := cmd.OutOrStdout()

	handler := cli.NewInterruptHandler(out)
	ctx := handler.HandleInterrupts(cmd.Context(), "sift resolve "+sessionID+" --interactive")

	p, err := a.importer.GetPlan(ctx, sessionID)
	if err != nil {
		return err
	}

	prompter := cli.NewPrompter(cmd.InOrStdin(), out, a.importer.Vocabulary())
	stats, err := prompter.Review(ctx, p, func(ctx context.Context, r model.Resolution) error {
		_, _, err := a.importer.SubmitResolutions(ctx, sessionID, []model.Resolution{r})
		return err
	})
	if err != nil && !handler.WasInterrupted() {
		return err
	}

	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Resolved %d, left %d, rejected %d", stats.Resolved, stats.Left, stats.Failed)))
	latest, err := a.importer.GetPlan(cmd.Context(), sessionID)
	if err != nil {
		return err
	}
	if decision := plan.CanCommit(latest); decision.Allowed {
		fmt.Fprintln(out, cli.FormatSuccess("Ready to commit: sift execute "+sessionID))
	} else {
		fmt.Fprintln(out, cli.RenderStats(decision.Stats))
	}
	return nil
}

// parseAssignments turns key=value flags into a payload.
func parseAssignments(values []string) (model.Payload, error) {
	if len(values) == 0 {
		return nil, nil
	}
	payload := make(model.Payload, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", v)
		}
		payload[model.NormalizeFieldName(key)] = strings.TrimSpace(value)
	}
	return payload, nil
}
