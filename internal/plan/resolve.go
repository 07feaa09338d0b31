package plan

import (
	"fmt"
	"sort"

	"github.com/Veraticus/sift/internal/classification"
	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/service"
)

// ApplyResolutions returns a copy of p with the resolutions attached and each resolved item's
// outputs regenerated for its new outcome. Every resolution is validated before any is applied;
// on error the original plan is returned untouched.
//
// Re-applying a resolution to the same item replaces the earlier one.
func ApplyResolutions(p *model.ImportPlan, resolutions []model.Resolution, vocab service.FactVocabulary) (*model.ImportPlan, error) {
	if p == nil {
		return nil, fmt.Errorf("cannot apply resolutions to a nil plan")
	}

	known := knownKinds(vocab)
	for _, r := range resolutions {
		if err := validateResolution(p, r, known); err != nil {
			return p, err
		}
	}

	next := p.Clone()
	for _, r := range resolutions {
		c, _ := next.Classification(r.ItemTempID)
		item, _ := next.Item(r.ItemTempID)

		resolution := model.Resolution{
			ItemTempID:      r.ItemTempID,
			ResolvedOutcome: r.ResolvedOutcome,
			ResolvedPayload: r.ResolvedPayload.Clone(),
		}
		if r.ResolvedOutcome == model.OutcomeFactEmitted {
			resolution.ResolvedFactKind = r.ResolvedFactKind
		}

		c.Resolution = &resolution
		c.InterpretationPlan = classification.Shape(item, resolution.ResolvedOutcome, resolution.ResolvedFactKind, resolution.ResolvedPayload)
	}

	return next, nil
}

func validateResolution(p *model.ImportPlan, r model.Resolution, known []string) error {
	c, ok := p.Classification(r.ItemTempID)
	if !ok || c == nil {
		return &common.InvalidResolutionError{ItemTempID: r.ItemTempID, Reason: "no classification for item"}
	}
	if _, ok := p.Item(r.ItemTempID); !ok {
		return &common.InvalidResolutionError{ItemTempID: r.ItemTempID, Reason: "item is not part of the plan"}
	}
	if !c.Outcome.IsUncertain() {
		return &common.InvalidResolutionError{
			ItemTempID: r.ItemTempID,
			Reason:     fmt.Sprintf("outcome %s is not uncertain", c.Outcome),
		}
	}
	if !r.ResolvedOutcome.IsResolutionTarget() {
		return &common.InvalidResolutionError{
			ItemTempID: r.ItemTempID,
			Reason:     fmt.Sprintf("cannot resolve to %q", r.ResolvedOutcome),
		}
	}

	if r.ResolvedOutcome != model.OutcomeFactEmitted {
		return nil
	}

	allowed := c.Candidates
	if len(allowed) == 0 {
		allowed = known
	}
	for _, kind := range allowed {
		if kind == r.ResolvedFactKind && kind != "" {
			return nil
		}
	}
	return &common.UnknownFactKindError{
		ItemTempID: r.ItemTempID,
		FactKind:   r.ResolvedFactKind,
		Allowed:    allowed,
	}
}

func knownKinds(vocab service.FactVocabulary) []string {
	if vocab == nil {
		return nil
	}
	kinds := vocab.KnownFactKinds()
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, k.Kind)
	}
	sort.Strings(names)
	return names
}
