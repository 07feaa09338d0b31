package model

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// FactKind describes one fact the target system knows how to record.
type FactKind struct {
	Kind            string   `yaml:"kind" json:"kind"`
	Description     string   `yaml:"description,omitempty" json:"description,omitempty"`
	RequiredFields  []string `yaml:"required_fields" json:"required_fields"`
	SignatureFields []string `yaml:"signature_fields,omitempty" json:"signature_fields,omitempty"`
	Keywords        []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
}

// Validate ensures the fact kind is usable for matching.
func (k FactKind) Validate() error {
	if strings.TrimSpace(k.Kind) == "" {
		return fmt.Errorf("fact kind name is required")
	}
	if len(k.SignatureFields) == 0 && len(k.Keywords) == 0 {
		return fmt.Errorf("fact kind %s: needs signature fields or keywords", k.Kind)
	}
	return nil
}

// MissingFields returns the required fields that the recordings do not provide.
func (k FactKind) MissingFields(recordings []FieldRecording) []string {
	present := make(map[string]bool, len(recordings))
	for _, r := range recordings {
		if strings.TrimSpace(r.Value) != "" {
			present[NormalizeFieldName(r.FieldName)] = true
		}
	}

	var missing []string
	for _, f := range k.RequiredFields {
		if !present[NormalizeFieldName(f)] {
			missing = append(missing, f)
		}
	}
	return missing
}

// InferenceLearning remembers which fact kind a user chose for a title signature.
type InferenceLearning struct {
	LastUpdated time.Time `json:"last_updated"`
	Signature   string    `json:"signature"`
	FactKind    string    `json:"fact_kind"`
	UseCount    int       `json:"use_count"`
}

// NormalizeFieldName lower-cases a field name and joins words with underscores.
func NormalizeFieldName(name string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// TitleSignature reduces a title to its lower-case words, dropping digits and punctuation,
// so "ACME Invoice #1043" and "Acme invoice 1107" share a signature.
func TitleSignature(title string) string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	return strings.Join(words, " ")
}
