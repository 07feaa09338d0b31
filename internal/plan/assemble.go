package plan

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/sift/internal/classification"
	"github.com/Veraticus/sift/internal/model"
)

// Assemble merges containers, items and classifications into one plan.
// Problems become validation issues on the plan; assembly itself never fails.
// Containers that cannot be placed in the tree are dropped together with their items,
// so the returned plan only holds what the executor can materialize.
func Assemble(
	sessionID string,
	containers []model.ImportPlanContainer,
	items []model.ImportPlanItem,
	classifications []*model.ItemClassification,
) *model.ImportPlan {
	p := &model.ImportPlan{
		SessionID:        sessionID,
		CreatedAt:        time.Now().UTC(),
		Containers:       []model.ImportPlanContainer{},
		Items:            []model.ImportPlanItem{},
		Classifications:  make(map[string]*model.ItemClassification, len(items)),
		ValidationIssues: []model.ValidationIssue{},
	}

	candidates := assembleContainerCandidates(p, containers)
	kept := assembleContainers(p, candidates)
	assembleItems(p, items, kept)
	assembleClassifications(p, classifications)

	slog.Debug("Assembled import plan",
		"session_id", sessionID,
		"containers", len(p.Containers),
		"items", len(p.Items),
		"issues", len(p.ValidationIssues))

	return p
}

// assembleContainerCandidates drops containers that are malformed on their own.
func assembleContainerCandidates(p *model.ImportPlan, containers []model.ImportPlanContainer) []model.ImportPlanContainer {
	seen := make(map[string]bool, len(containers))
	out := make([]model.ImportPlanContainer, 0, len(containers))

	for _, c := range containers {
		switch {
		case c.TempID == "":
			p.ValidationIssues = append(p.ValidationIssues, model.ValidationIssue{
				Severity: model.SeverityError,
				Message:  fmt.Sprintf("container %q has no temp id", c.Title),
			})
			continue
		case seen[c.TempID]:
			p.ValidationIssues = append(p.ValidationIssues, containerError(c.TempID, "duplicate container temp id"))
			continue
		case !c.Type.IsValid():
			p.ValidationIssues = append(p.ValidationIssues, containerError(c.TempID, fmt.Sprintf("unknown container type %q", c.Type)))
			seen[c.TempID] = true
			continue
		}
		seen[c.TempID] = true
		if strings.TrimSpace(c.Title) == "" {
			p.ValidationIssues = append(p.ValidationIssues, model.ValidationIssue{
				Severity:     model.SeverityWarning,
				Message:      "container has no title",
				RecordTempID: c.TempID,
			})
		}
		out = append(out, c)
	}
	return out
}

// assembleContainers keeps the containers reachable from a root and reports the rest.
// It returns the set of kept temp ids.
func assembleContainers(p *model.ImportPlan, containers []model.ImportPlanContainer) map[string]bool {
	rejected := make(map[string]bool)
	for _, r := range NewGraph(containers).Rejections() {
		rejected[r.TempID] = true
		p.ValidationIssues = append(p.ValidationIssues, containerError(r.TempID, r.Reason))
	}

	kept := make(map[string]bool, len(containers))
	for _, c := range containers {
		if rejected[c.TempID] {
			continue
		}
		kept[c.TempID] = true
		p.Containers = append(p.Containers, c)
	}
	return kept
}

func assembleItems(p *model.ImportPlan, items []model.ImportPlanItem, kept map[string]bool) {
	seen := make(map[string]bool, len(items))
	titles := make(map[string]string)

	for _, item := range items {
		switch {
		case item.TempID == "":
			p.ValidationIssues = append(p.ValidationIssues, model.ValidationIssue{
				Severity: model.SeverityError,
				Message:  fmt.Sprintf("item %q has no temp id", item.Title),
			})
			continue
		case seen[item.TempID]:
			p.ValidationIssues = append(p.ValidationIssues, itemError(item.TempID, "duplicate item temp id"))
			continue
		case item.ParentTempID == "":
			seen[item.TempID] = true
			p.ValidationIssues = append(p.ValidationIssues, itemError(item.TempID, "item has no parent container"))
			continue
		case !kept[item.ParentTempID]:
			seen[item.TempID] = true
			p.ValidationIssues = append(p.ValidationIssues, itemError(item.TempID,
				fmt.Sprintf("parent container %s is missing or was rejected", item.ParentTempID)))
			continue
		}
		seen[item.TempID] = true

		key := item.ParentTempID + "\x00" + strings.ToLower(strings.TrimSpace(item.Title))
		if first, dup := titles[key]; dup {
			p.ValidationIssues = append(p.ValidationIssues, model.ValidationIssue{
				Severity:   model.SeverityWarning,
				Message:    fmt.Sprintf("duplicate title %q under container %s (first seen on item %s)", item.Title, item.ParentTempID, first),
				ItemTempID: item.TempID,
			})
		} else {
			titles[key] = item.TempID
		}

		p.Items = append(p.Items, item)
	}
}

func assembleClassifications(p *model.ImportPlan, classifications []*model.ItemClassification) {
	byItem := make(map[string]*model.ItemClassification, len(classifications))
	for _, c := range classifications {
		if c != nil {
			byItem[c.ItemTempID] = c
		}
	}

	for _, item := range p.Items {
		c, ok := byItem[item.TempID]
		if !ok {
			c = unclassified(item)
			p.ValidationIssues = append(p.ValidationIssues, model.ValidationIssue{
				Severity:   model.SeverityWarning,
				Message:    "item was not classified",
				ItemTempID: item.TempID,
			})
		}

		if c.Outcome == model.OutcomeAmbiguous && len(c.MissingFields) > 0 && len(c.Candidates) == 1 {
			p.ValidationIssues = append(p.ValidationIssues, model.ValidationIssue{
				Severity: model.SeverityWarning,
				Message: fmt.Sprintf("%s is missing required fields: %s",
					c.Candidates[0], strings.Join(c.MissingFields, ", ")),
				ItemTempID: item.TempID,
			})
		}

		p.Classifications[item.TempID] = c
	}
}

func unclassified(item model.ImportPlanItem) *model.ItemClassification {
	return &model.ItemClassification{
		ItemTempID:         item.TempID,
		Outcome:            model.OutcomeUnclassified,
		Confidence:         model.ConfidenceLow,
		Rationale:          "item was not classified",
		InterpretationPlan: classification.Shape(item, model.OutcomeUnclassified, "", nil),
	}
}

func containerError(tempID, message string) model.ValidationIssue {
	return model.ValidationIssue{
		Severity:     model.SeverityError,
		Message:      message,
		RecordTempID: tempID,
	}
}

func itemError(tempID, message string) model.ValidationIssue {
	return model.ValidationIssue{
		Severity:   model.SeverityError,
		Message:    message,
		ItemTempID: tempID,
	}
}
