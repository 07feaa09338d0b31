package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcomePredicates(t *testing.T) {
	assert.True(t, OutcomeAmbiguous.IsUncertain())
	assert.True(t, OutcomeUnclassified.IsUncertain())
	assert.False(t, OutcomeFactEmitted.IsUncertain())

	for _, o := range []Outcome{OutcomeFactEmitted, OutcomeDerivedState, OutcomeInternalWork, OutcomeSkip} {
		assert.True(t, o.IsResolutionTarget(), o)
	}
	for _, o := range []Outcome{OutcomeExternalWork, OutcomeDeferred, OutcomeAmbiguous, OutcomeUnclassified} {
		assert.False(t, o.IsResolutionTarget(), o)
	}
	assert.False(t, Outcome("MAYBE").IsValid())
}

func TestBucketConfidence(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, BucketConfidence(0.5))
	assert.Equal(t, ConfidenceHigh, BucketConfidence(1))
	assert.Equal(t, ConfidenceMedium, BucketConfidence(0.2))
	assert.Equal(t, ConfidenceMedium, BucketConfidence(0.49))
	assert.Equal(t, ConfidenceLow, BucketConfidence(0.19))
	assert.Equal(t, ConfidenceLow, BucketConfidence(0))
}

func TestItemClassification_Resolution(t *testing.T) {
	c := &ItemClassification{ItemTempID: "i1", Outcome: OutcomeAmbiguous, Candidates: []string{"Invoice"}}
	assert.True(t, c.NeedsResolution())
	assert.Equal(t, OutcomeAmbiguous, c.EffectiveOutcome())

	c.Resolution = &Resolution{ItemTempID: "i1", ResolvedOutcome: OutcomeSkip}
	assert.False(t, c.NeedsResolution())
	assert.True(t, c.IsResolved())
	assert.Equal(t, OutcomeSkip, c.EffectiveOutcome())
}

func TestItemClassification_Validate(t *testing.T) {
	tests := []struct {
		c       ItemClassification
		name    string
		wantErr bool
	}{
		{name: "valid", c: ItemClassification{ItemTempID: "i1", Outcome: OutcomeFactEmitted, Score: 0.7}},
		{name: "missing id", c: ItemClassification{Outcome: OutcomeFactEmitted}, wantErr: true},
		{name: "skip is resolution only", c: ItemClassification{ItemTempID: "i1", Outcome: OutcomeSkip}, wantErr: true},
		{name: "score out of range", c: ItemClassification{ItemTempID: "i1", Outcome: OutcomeDeferred, Score: 1.2}, wantErr: true},
		{name: "candidates outside ambiguous", c: ItemClassification{ItemTempID: "i1", Outcome: OutcomeFactEmitted, Candidates: []string{"Invoice"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
