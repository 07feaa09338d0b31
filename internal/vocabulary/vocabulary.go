// Package vocabulary provides the fact kinds and status words the interpretation engine recognizes.
package vocabulary

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/sift/internal/model"
)

// Normalized states a status field can map to.
const (
	StateTodo       = "todo"
	StateInProgress = "in_progress"
	StateInReview   = "in_review"
	StateBlocked    = "blocked"
	StateDone       = "done"
	StateCancelled  = "cancelled"
)

var externalWorkRegex = regexp.MustCompile("(?i)" + externalWorkPattern)

// CompiledKind holds a fact kind with its keyword regexes compiled.
type CompiledKind struct {
	keywordRegex []*regexp.Regexp
	model.FactKind
}

// MatchesKeyword reports whether any keyword occurs in text.
func (k CompiledKind) MatchesKeyword(text string) bool {
	for _, re := range k.keywordRegex {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Vocabulary is an immutable set of fact kinds.
type Vocabulary struct {
	byName map[string]CompiledKind
	kinds  []CompiledKind
}

// New compiles the given fact kinds into a vocabulary.
func New(kinds []model.FactKind) (*Vocabulary, error) {
	v := &Vocabulary{
		byName: make(map[string]CompiledKind, len(kinds)),
	}

	for _, k := range kinds {
		if err := k.Validate(); err != nil {
			return nil, err
		}
		if _, dup := v.byName[k.Kind]; dup {
			return nil, fmt.Errorf("duplicate fact kind %q", k.Kind)
		}

		compiled := CompiledKind{FactKind: k}
		for _, kw := range k.Keywords {
			re, err := regexp.Compile(`(?i)\b(` + kw + `)\b`)
			if err != nil {
				return nil, fmt.Errorf("failed to compile keyword %q for %s: %w", kw, k.Kind, err)
			}
			compiled.keywordRegex = append(compiled.keywordRegex, re)
		}

		v.kinds = append(v.kinds, compiled)
		v.byName[k.Kind] = compiled
	}

	return v, nil
}

// Default returns the built-in vocabulary.
func Default() *Vocabulary {
	v, err := New(DefaultFactKinds())
	if err != nil {
		panic(fmt.Sprintf("built-in vocabulary is invalid: %v", err))
	}
	return v
}

// fileFormat is the on-disk YAML layout.
type fileFormat struct {
	FactKinds       []model.FactKind `yaml:"fact_kinds"`
	IncludeDefaults bool             `yaml:"include_defaults"`
}

// LoadFile reads a YAML vocabulary file.
func LoadFile(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML vocabulary document.
func Parse(data []byte) (*Vocabulary, error) {
	var file fileFormat
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary: %w", err)
	}

	kinds := file.FactKinds
	if file.IncludeDefaults {
		seen := make(map[string]bool, len(kinds))
		for _, k := range kinds {
			seen[k.Kind] = true
		}
		for _, k := range DefaultFactKinds() {
			if !seen[k.Kind] {
				kinds = append(kinds, k)
			}
		}
	}

	if len(kinds) == 0 {
		return nil, fmt.Errorf("vocabulary defines no fact kinds")
	}

	return New(kinds)
}

// KnownFactKinds implements service.FactVocabulary.
func (v *Vocabulary) KnownFactKinds() []model.FactKind {
	kinds := make([]model.FactKind, len(v.kinds))
	for i, k := range v.kinds {
		kinds[i] = k.FactKind
	}
	return kinds
}

// Compiled returns the fact kinds with compiled keyword matchers.
func (v *Vocabulary) Compiled() []CompiledKind {
	out := make([]CompiledKind, len(v.kinds))
	copy(out, v.kinds)
	return out
}

// Lookup returns the fact kind with the given name.
func (v *Vocabulary) Lookup(name string) (model.FactKind, bool) {
	k, ok := v.byName[name]
	return k.FactKind, ok
}

// Names returns the sorted fact kind names.
func (v *Vocabulary) Names() []string {
	names := make([]string, 0, len(v.kinds))
	for _, k := range v.kinds {
		names = append(names, k.Kind)
	}
	sort.Strings(names)
	return names
}

// IsStatusField reports whether a field name is status-like.
func IsStatusField(fieldName string) bool {
	return statusFieldNames[model.NormalizeFieldName(fieldName)]
}

// IsNoteField reports whether a field carries free text.
func IsNoteField(fieldName string) bool {
	return noteFieldNames[model.NormalizeFieldName(fieldName)]
}

// NormalizeStatus maps a status value onto a normalized state.
func NormalizeStatus(value string) (string, bool) {
	state, ok := statusValues[strings.ToLower(strings.TrimSpace(value))]
	return state, ok
}

// MentionsExternalWork reports whether text references a third party.
func MentionsExternalWork(text string) bool {
	return externalWorkRegex.MatchString(text)
}
