package model

import "fmt"

// Outcome is the interpretation verdict for one item.
type Outcome string

// Outcome constants.
const (
	OutcomeFactEmitted  Outcome = "FACT_EMITTED"
	OutcomeDerivedState Outcome = "DERIVED_STATE"
	OutcomeInternalWork Outcome = "INTERNAL_WORK"
	OutcomeExternalWork Outcome = "EXTERNAL_WORK"
	OutcomeDeferred     Outcome = "DEFERRED"
	OutcomeAmbiguous    Outcome = "AMBIGUOUS"
	OutcomeUnclassified Outcome = "UNCLASSIFIED"
	// OutcomeSkip is only reachable through a resolution.
	OutcomeSkip Outcome = "SKIP"
)

// IsValid reports whether o is a known outcome.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeFactEmitted, OutcomeDerivedState, OutcomeInternalWork, OutcomeExternalWork,
		OutcomeDeferred, OutcomeAmbiguous, OutcomeUnclassified, OutcomeSkip:
		return true
	}
	return false
}

// IsUncertain reports whether the outcome needs a resolution before commit.
func (o Outcome) IsUncertain() bool {
	return o == OutcomeAmbiguous || o == OutcomeUnclassified
}

// IsResolutionTarget reports whether a resolution may settle an item to o.
func (o Outcome) IsResolutionTarget() bool {
	switch o {
	case OutcomeFactEmitted, OutcomeDerivedState, OutcomeInternalWork, OutcomeSkip:
		return true
	}
	return false
}

// ConfidenceLevel is the display bucket of a numeric confidence.
type ConfidenceLevel string

// Confidence levels.
const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Confidence bucket boundaries.
const (
	HighConfidenceThreshold   = 0.5
	MediumConfidenceThreshold = 0.2
)

// BucketConfidence maps a 0-1 score onto a display level.
func BucketConfidence(score float64) ConfidenceLevel {
	switch {
	case score >= HighConfidenceThreshold:
		return ConfidenceHigh
	case score >= MediumConfidenceThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Resolution is a decision attached to an uncertain classification.
type Resolution struct {
	ResolvedPayload  Payload `json:"resolved_payload,omitempty"`
	ItemTempID       string  `json:"item_temp_id"`
	ResolvedOutcome  Outcome `json:"resolved_outcome"`
	ResolvedFactKind string  `json:"resolved_fact_kind,omitempty"`
}

// ItemClassification is the interpretation result for one item.
type ItemClassification struct {
	Resolution         *Resolution        `json:"resolution,omitempty"`
	ItemTempID         string             `json:"item_temp_id"`
	Outcome            Outcome            `json:"outcome"`
	Confidence         ConfidenceLevel    `json:"confidence"`
	Rationale          string             `json:"rationale"`
	Candidates         []string           `json:"candidates,omitempty"`
	MissingFields      []string           `json:"missing_fields,omitempty"`
	InterpretationPlan InterpretationPlan `json:"interpretation_plan"`
	Score              float64            `json:"score"`
}

// EffectiveOutcome returns the resolved outcome when present, else the original outcome.
func (c *ItemClassification) EffectiveOutcome() Outcome {
	if c.Resolution != nil {
		return c.Resolution.ResolvedOutcome
	}
	return c.Outcome
}

// IsResolved reports whether a resolution is attached.
func (c *ItemClassification) IsResolved() bool {
	return c.Resolution != nil
}

// NeedsResolution reports whether the classification still blocks commit on its own.
func (c *ItemClassification) NeedsResolution() bool {
	return c.Resolution == nil && c.Outcome.IsUncertain()
}

// Validate checks internal consistency.
func (c *ItemClassification) Validate() error {
	if c.ItemTempID == "" {
		return fmt.Errorf("classification item temp id is required")
	}
	if !c.Outcome.IsValid() || c.Outcome == OutcomeSkip {
		return fmt.Errorf("classification %s: invalid outcome %q", c.ItemTempID, c.Outcome)
	}
	if c.Score < 0 || c.Score > 1 {
		return fmt.Errorf("classification %s: score must be between 0.0 and 1.0, got %.2f", c.ItemTempID, c.Score)
	}
	if len(c.Candidates) > 0 && c.Outcome != OutcomeAmbiguous {
		return fmt.Errorf("classification %s: candidates are only valid for %s", c.ItemTempID, OutcomeAmbiguous)
	}
	return nil
}
