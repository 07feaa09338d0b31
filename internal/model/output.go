package model

import (
	"encoding/json"
	"fmt"
)

// OutputKind tags an interpretation output.
type OutputKind string

// Output kinds.
const (
	KindFactCandidate OutputKind = "fact_candidate"
	KindActionHint    OutputKind = "action_hint"
	KindWorkEvent     OutputKind = "work_event"
	KindFieldValue    OutputKind = "field_value"
)

// Payload carries the string attributes of an output.
type Payload map[string]string

// Clone returns a copy of the payload.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Output is one write an item would perform if committed.
// The set of implementations is closed: FactCandidate, ActionHint, WorkEvent and FieldValue.
type Output interface {
	Kind() OutputKind
	isOutput()
}

// FactCandidate is a proposed durable fact that requires approval.
type FactCandidate struct {
	Payload  Payload `json:"payload,omitempty"`
	FactKind string  `json:"fact_kind"`
}

// ActionHint annotates an item for display. It is never persisted.
type ActionHint struct {
	Payload  Payload `json:"payload,omitempty"`
	HintType string  `json:"hint_type"`
}

// WorkEvent is an internal progress marker that always commits.
type WorkEvent struct {
	Payload   Payload `json:"payload,omitempty"`
	EventType string  `json:"event_type"`
}

// FieldValue is a plain attribute write that always commits.
type FieldValue struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Kind implements Output.
func (FactCandidate) Kind() OutputKind { return KindFactCandidate }

// Kind implements Output.
func (ActionHint) Kind() OutputKind { return KindActionHint }

// Kind implements Output.
func (WorkEvent) Kind() OutputKind { return KindWorkEvent }

// Kind implements Output.
func (FieldValue) Kind() OutputKind { return KindFieldValue }

func (FactCandidate) isOutput() {}
func (ActionHint) isOutput()    {}
func (WorkEvent) isOutput()     {}
func (FieldValue) isOutput()    {}

// Outputs is an ordered list of outputs that serializes as tagged envelopes.
type Outputs []Output

type outputEnvelope struct {
	Kind OutputKind      `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON encodes each output as {"kind": ..., "data": ...}.
func (o Outputs) MarshalJSON() ([]byte, error) {
	envelopes := make([]outputEnvelope, 0, len(o))
	for i, out := range o {
		if out == nil {
			return nil, fmt.Errorf("output %d is nil", i)
		}
		data, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal output %d: %w", i, err)
		}
		envelopes = append(envelopes, outputEnvelope{Kind: out.Kind(), Data: data})
	}
	return json.Marshal(envelopes)
}

// UnmarshalJSON decodes tagged envelopes back into concrete outputs.
func (o *Outputs) UnmarshalJSON(data []byte) error {
	var envelopes []outputEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return err
	}
	if envelopes == nil {
		*o = nil
		return nil
	}

	result := make(Outputs, 0, len(envelopes))
	for i, env := range envelopes {
		out, err := decodeOutput(env)
		if err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
		result = append(result, out)
	}
	*o = result
	return nil
}

func decodeOutput(env outputEnvelope) (Output, error) {
	switch env.Kind {
	case KindFactCandidate:
		var v FactCandidate
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case KindActionHint:
		var v ActionHint
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case KindWorkEvent:
		var v WorkEvent
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case KindFieldValue:
		var v FieldValue
		err := json.Unmarshal(env.Data, &v)
		return v, err
	default:
		return nil, fmt.Errorf("unknown output kind %q", env.Kind)
	}
}

// InterpretationPlan describes exactly what committing an item would write.
type InterpretationPlan struct {
	StatusEvent *WorkEvent `json:"status_event,omitempty"`
	Outputs     Outputs    `json:"outputs"`
}

// CountKind returns how many outputs have the given kind.
func (p InterpretationPlan) CountKind(kind OutputKind) int {
	n := 0
	for _, out := range p.Outputs {
		if out.Kind() == kind {
			n++
		}
	}
	return n
}

// FactCandidates returns the fact candidate outputs in order.
func (p InterpretationPlan) FactCandidates() []FactCandidate {
	var facts []FactCandidate
	for _, out := range p.Outputs {
		if fc, ok := out.(FactCandidate); ok {
			facts = append(facts, fc)
		}
	}
	return facts
}
