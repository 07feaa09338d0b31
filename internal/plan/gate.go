package plan

import "github.com/Veraticus/sift/internal/model"

// CanCommit decides whether a plan may be executed and tallies what it would write.
// It has no side effects and is cheap enough to call on every render.
func CanCommit(p *model.ImportPlan) model.CommitDecision {
	var stats model.CommitStats
	if p == nil {
		return model.CommitDecision{Stats: stats}
	}

	for _, c := range p.Classifications {
		if c == nil {
			continue
		}
		out := c.InterpretationPlan
		effective := c.EffectiveOutcome()

		if facts := out.CountKind(model.KindFactCandidate); facts > 0 {
			switch {
			case effective == model.OutcomeFactEmitted:
				stats.FactCandidatesApproved += facts
			case !c.IsResolved():
				stats.FactCandidatesPending += facts
			}
		}

		stats.WorkEvents += out.CountKind(model.KindWorkEvent)
		if out.StatusEvent != nil {
			stats.WorkEvents++
		}
		stats.FieldValues += out.CountKind(model.KindFieldValue)
		stats.ActionHints += out.CountKind(model.KindActionHint)

		if c.NeedsResolution() {
			stats.Unclassified++
		}
		if c.IsResolved() && effective == model.OutcomeSkip {
			stats.Skipped++
		}
	}

	return model.CommitDecision{
		Stats:   stats,
		Allowed: stats.FactCandidatesPending == 0 && stats.Unclassified == 0,
	}
}
