package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/storage"
)

// RenderPlan writes a human summary of a plan and its gate decision.
func RenderPlan(w io.Writer, p *model.ImportPlan, decision model.CommitDecision) error {
	var b strings.Builder

	fmt.Fprintln(&b, FormatTitle(fmt.Sprintf("Plan for session %s (version %d)", p.SessionID, p.Version)))

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join([]string{
		HeaderStyle.Render("ITEM"),
		HeaderStyle.Render("TITLE"),
		HeaderStyle.Render("OUTCOME"),
		HeaderStyle.Render("CONFIDENCE"),
		HeaderStyle.Render("DETAIL"),
	}, "\t"))
	for _, item := range p.Items {
		c, ok := p.Classification(item.TempID)
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			item.TempID,
			truncate(item.Title, 40),
			StyleOutcome(c.EffectiveOutcome()),
			c.Confidence,
			classificationDetail(c),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(p.ValidationIssues) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, BoldStyle.Render("Validation issues"))
		for _, issue := range p.ValidationIssues {
			if issue.Severity == model.SeverityError {
				fmt.Fprintln(&b, "  "+FormatError(issue.String()))
			} else {
				fmt.Fprintln(&b, "  "+FormatWarning(issue.String()))
			}
		}
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, RenderStats(decision.Stats))
	if decision.Allowed {
		fmt.Fprintln(&b, FormatSuccess("Ready to commit"))
	} else {
		fmt.Fprintln(&b, FormatWarning("Commit blocked until pending facts and unclassified items are resolved"))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderStats formats commit statistics as one line per counter.
func RenderStats(s model.CommitStats) string {
	return fmt.Sprintf("%s Facts approved: %d  pending: %d\n"+
		"   Work events: %d  Field values: %d  Action hints: %d\n"+
		"   Unclassified: %d  Skipped: %d",
		ChartIcon, s.FactCandidatesApproved, s.FactCandidatesPending,
		s.WorkEvents, s.FieldValues, s.ActionHints,
		s.Unclassified, s.Skipped)
}

// RenderResult writes an execution result.
func RenderResult(w io.Writer, r *model.ImportExecutionResult) error {
	var b strings.Builder

	fmt.Fprintln(&b, FormatTitle(fmt.Sprintf("Result for session %s: %s", r.SessionID, StyleStatus(r.Status))))
	fmt.Fprintf(&b, "Created %d records, skipped %d items, %d errors in %s\n",
		len(r.CreatedIDs), len(r.Skipped), len(r.Errors), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	fmt.Fprintln(&b, RenderStats(r.Stats))

	if len(r.Errors) > 0 {
		ids := make([]string, 0, len(r.Errors))
		for id := range r.Errors {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		fmt.Fprintln(&b)
		fmt.Fprintln(&b, BoldStyle.Render("Errors"))
		for _, id := range ids {
			e := r.Errors[id]
			label := "item"
			if e.IsContainer {
				label = "container"
			}
			fmt.Fprintln(&b, "  "+FormatError(fmt.Sprintf("%s %s: %s", label, id, e.Message)))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderSessions writes a session table.
func RenderSessions(w io.Writer, sessions []model.ImportSession) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, SubtitleStyle.Render("No import sessions found."))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join([]string{
		HeaderStyle.Render("ID"),
		HeaderStyle.Render("FORMAT"),
		HeaderStyle.Render("STATUS"),
		HeaderStyle.Render("CREATED"),
	}, "\t"))
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			InfoStyle.Render(s.ID),
			s.ParserName,
			StyleStatus(s.Status),
			s.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	return tw.Flush()
}

// RenderCheckpoints writes a checkpoint table.
func RenderCheckpoints(w io.Writer, checkpoints []storage.CheckpointInfo) error {
	if len(checkpoints) == 0 {
		_, err := fmt.Fprintln(w, SubtitleStyle.Render("No checkpoints found."))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join([]string{
		HeaderStyle.Render("NAME"),
		HeaderStyle.Render("CREATED"),
		HeaderStyle.Render("SIZE"),
		HeaderStyle.Render("SESSIONS"),
		HeaderStyle.Render("FACTS"),
		HeaderStyle.Render("TYPE"),
	}, "\t"))
	for _, cp := range checkpoints {
		typeLabel := "manual"
		if cp.IsAuto {
			typeLabel = "auto"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			InfoStyle.Render(cp.ID),
			cp.CreatedAt.Format("2006-01-02 15:04"),
			FormatFileSize(cp.FileSize),
			cp.Sessions,
			cp.Facts,
			SubtitleStyle.Render(typeLabel),
		)
	}
	return tw.Flush()
}

// FormatFileSize renders a byte count with a binary unit.
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func classificationDetail(c *model.ItemClassification) string {
	switch {
	case c.Resolution != nil && c.Resolution.ResolvedFactKind != "":
		return "resolved: " + c.Resolution.ResolvedFactKind
	case c.Resolution != nil:
		return "resolved"
	case len(c.Candidates) > 0:
		return "candidates: " + strings.Join(c.Candidates, ", ")
	case len(c.MissingFields) > 0:
		return "missing: " + strings.Join(c.MissingFields, ", ")
	}
	if facts := c.InterpretationPlan.FactCandidates(); len(facts) > 0 {
		return facts[0].FactKind
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
