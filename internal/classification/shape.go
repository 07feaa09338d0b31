package classification

import (
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/vocabulary"
)

// StatusChangedEvent is the event type of every derived state transition.
const StatusChangedEvent = "status_changed"

// typedRenderHints are render hints whose values have an unambiguous type.
var typedRenderHints = map[string]bool{
	"number":   true,
	"numeric":  true,
	"numbers":  true,
	"currency": true,
	"date":     true,
	"datetime": true,
	"boolean":  true,
	"checkbox": true,
	"email":    true,
	"url":      true,
	"link":     true,
	"phone":    true,
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "01/02/2006"}

// Shape builds the interpretation plan for an outcome. It is deterministic, and it is the only
// place outputs are built, so a resolved item is shaped exactly like a classified one.
// factKind is used for FACT_EMITTED; override is merged over the generated payload.
func Shape(item model.ImportPlanItem, outcome model.Outcome, factKind string, override model.Payload) model.InterpretationPlan {
	plan := model.InterpretationPlan{Outputs: model.Outputs{}}

	switch outcome {
	case model.OutcomeFactEmitted:
		plan.Outputs = append(plan.Outputs, model.FactCandidate{
			FactKind: factKind,
			Payload:  merge(itemPayload(item), override),
		})

	case model.OutcomeDerivedState:
		event, statusField := statusEvent(item, override)
		plan.StatusEvent = &event
		for _, f := range item.FieldRecordings {
			name := model.NormalizeFieldName(f.FieldName)
			if name == statusField || strings.TrimSpace(f.Value) == "" {
				continue
			}
			plan.Outputs = append(plan.Outputs, model.FieldValue{Field: name, Value: f.Value})
		}

	case model.OutcomeInternalWork, model.OutcomeExternalWork, model.OutcomeDeferred:
		payload := model.Payload{"title": item.Title}
		for _, f := range item.FieldRecordings {
			if vocabulary.IsNoteField(f.FieldName) && strings.TrimSpace(f.Value) != "" {
				payload[model.NormalizeFieldName(f.FieldName)] = f.Value
			}
		}
		plan.Outputs = append(plan.Outputs, model.ActionHint{
			HintType: strings.ToLower(string(outcome)),
			Payload:  merge(payload, override),
		})

	case model.OutcomeAmbiguous, model.OutcomeUnclassified:
		for _, f := range item.FieldRecordings {
			if strings.TrimSpace(f.Value) == "" || !hasUnambiguousType(f) {
				continue
			}
			plan.Outputs = append(plan.Outputs, model.FieldValue{
				Field: model.NormalizeFieldName(f.FieldName),
				Value: f.Value,
			})
		}

	case model.OutcomeSkip:
		// Nothing is written for skipped items.
	}

	return plan
}

// itemPayload flattens an item's title and non-empty field recordings.
func itemPayload(item model.ImportPlanItem) model.Payload {
	payload := model.Payload{"title": item.Title}
	for _, f := range item.FieldRecordings {
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		payload[model.NormalizeFieldName(f.FieldName)] = f.Value
	}
	return payload
}

// statusEvent builds the derived state event and returns the normalized status field it consumed.
func statusEvent(item model.ImportPlanItem, override model.Payload) (model.WorkEvent, string) {
	payload := model.Payload{"title": item.Title}
	var consumed string

	for _, f := range item.FieldRecordings {
		if !vocabulary.IsStatusField(f.FieldName) || strings.TrimSpace(f.Value) == "" {
			continue
		}
		consumed = model.NormalizeFieldName(f.FieldName)
		payload["field"] = consumed
		payload["value"] = f.Value
		if state, ok := vocabulary.NormalizeStatus(f.Value); ok {
			payload["state"] = state
		} else {
			payload["state"] = strings.ToLower(strings.TrimSpace(f.Value))
		}
		break
	}
	if consumed == "" {
		payload["state"] = "updated"
	}

	return model.WorkEvent{
		EventType: StatusChangedEvent,
		Payload:   merge(payload, override),
	}, consumed
}

// hasUnambiguousType reports whether a recording's type is clear from its hint or its value.
func hasUnambiguousType(f model.FieldRecording) bool {
	if typedRenderHints[strings.ToLower(strings.TrimSpace(f.RenderHint))] {
		return true
	}

	value := strings.TrimSpace(f.Value)
	numeric := strings.NewReplacer("$", "", ",", "", "€", "", "£", "").Replace(value)
	if _, err := strconv.ParseFloat(numeric, 64); err == nil {
		return true
	}
	switch strings.ToLower(value) {
	case "true", "false", "yes", "no":
		return true
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

func merge(base, override model.Payload) model.Payload {
	if len(override) == 0 {
		return base
	}
	out := base.Clone()
	if out == nil {
		out = model.Payload{}
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
