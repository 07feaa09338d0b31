// Package classification interprets imported items as facts, state transitions, work markers or plain field values.
package classification

import (
	"fmt"
	"strings"

	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/vocabulary"
)

// Signal weights. Field overlap and keyword hits combine into a fact kind score.
const (
	fieldWeight   = 0.6
	keywordWeight = 0.4

	statusSignal   = 1.0
	externalSignal = 0.8
	noteSignal     = 0.7

	// titleOnlyCap keeps items without field recordings in the low confidence bucket.
	titleOnlyCap = model.MediumConfidenceThreshold - 0.01
)

// Options configures the interpretation engine.
type Options struct {
	MatchThreshold  float64 // Minimum score for a fact kind to be plausible
	AmbiguityMargin float64 // Plausible kinds closer than this to the top score are ambiguous
	LearningBoost   float64 // Added to a kind previously chosen for the same title signature
	CandidateLimit  int     // Maximum candidates listed for an ambiguous item
	Workers         int     // Parallel classification workers
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		MatchThreshold:  0.5,
		AmbiguityMargin: 0.15,
		LearningBoost:   0.35,
		CandidateLimit:  3,
		Workers:         4,
	}
}

// Hints carries contextual lookups that inform classification.
type Hints struct {
	// Learnings maps a title signature to the fact kind a user chose for it.
	Learnings map[string]string
}

// Engine classifies import items against a fact vocabulary.
type Engine struct {
	vocab *vocabulary.Vocabulary
	opts  Options
}

// NewEngine creates an engine. Zero option values fall back to defaults.
func NewEngine(vocab *vocabulary.Vocabulary, opts Options) *Engine {
	defaults := DefaultOptions()
	if opts.MatchThreshold <= 0 {
		opts.MatchThreshold = defaults.MatchThreshold
	}
	if opts.AmbiguityMargin <= 0 {
		opts.AmbiguityMargin = defaults.AmbiguityMargin
	}
	if opts.LearningBoost <= 0 {
		opts.LearningBoost = defaults.LearningBoost
	}
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = defaults.CandidateLimit
	}
	if opts.Workers <= 0 {
		opts.Workers = defaults.Workers
	}
	if vocab == nil {
		vocab = vocabulary.Default()
	}
	return &Engine{vocab: vocab, opts: opts}
}

// Vocabulary returns the engine's fact vocabulary.
func (e *Engine) Vocabulary() *vocabulary.Vocabulary {
	return e.vocab
}

// Classify interprets a single item. It reads only the item, the vocabulary and the hints.
func (e *Engine) Classify(item model.ImportPlanItem, hints Hints) *model.ItemClassification {
	sig := e.collectSignals(item, hints)

	result := &model.ItemClassification{
		ItemTempID: item.TempID,
	}

	var factKind string
	top, runnerUp := sig.topScores()

	switch {
	case top >= e.opts.MatchThreshold:
		contenders := e.contenders(sig.rankings, top)
		if len(contenders) > 1 {
			result.Outcome = model.OutcomeAmbiguous
			result.Candidates = contenders.TopN(e.opts.CandidateLimit).Kinds()
			result.Score = top - runnerUp
			result.Rationale = fmt.Sprintf("matches %s with comparable scores", strings.Join(result.Candidates, " and "))
			break
		}

		best := sig.rankings[0]
		kind, _ := e.vocab.Lookup(best.Kind)
		if missing := kind.MissingFields(item.FieldRecordings); len(missing) > 0 {
			result.Outcome = model.OutcomeAmbiguous
			result.Candidates = []string{best.Kind}
			result.MissingFields = missing
			result.Score = top - runnerUp
			result.Rationale = fmt.Sprintf("looks like %s but is missing %s", best.Kind, strings.Join(missing, ", "))
			break
		}

		result.Outcome = model.OutcomeFactEmitted
		result.Score = top - runnerUp
		result.Rationale = fmt.Sprintf("matches %s (%s)", best.Kind, strings.Join(best.Reasons, ", "))
		factKind = best.Kind

	case sig.state != "":
		result.Outcome = model.OutcomeDerivedState
		result.Score = statusSignal - top
		result.Rationale = fmt.Sprintf("%s %q is a recognized status (%s)", sig.status.FieldName, sig.status.Value, sig.state)

	case sig.external:
		result.Outcome = model.OutcomeExternalWork
		result.Score = externalSignal - top
		result.Rationale = "references work owned by a third party"

	case sig.noteOnly:
		result.Outcome = model.OutcomeInternalWork
		result.Score = noteSignal - top
		result.Rationale = "free-text note without status or structured fields"

	default:
		result.Outcome = model.OutcomeUnclassified
		result.Score = 0
		result.Rationale = "no recognized signature"
	}

	if !sig.hasFields {
		result.Score = minFloat(result.Score, titleOnlyCap)
		result.Rationale += "; no field recordings"
	}
	result.Score = clamp(result.Score)
	result.Confidence = model.BucketConfidence(result.Score)
	result.InterpretationPlan = Shape(item, result.Outcome, factKind, nil)

	return result
}

// contenders returns the plausible kinds whose score is within the ambiguity margin of top.
func (e *Engine) contenders(rankings model.FactKindRankings, top float64) model.FactKindRankings {
	var out model.FactKindRankings
	for _, r := range rankings.AboveThreshold(e.opts.MatchThreshold) {
		if top-r.Score < e.opts.AmbiguityMargin {
			out = append(out, r)
		}
	}
	return out
}

// signals is everything the engine extracted from one item.
type signals struct {
	status    *model.FieldRecording
	state     string
	rankings  model.FactKindRankings
	external  bool
	noteOnly  bool
	hasFields bool
}

func (s signals) topScores() (top, runnerUp float64) {
	if best := s.rankings.Top(); best != nil {
		top = best.Score
	}
	if second := s.rankings.RunnerUp(); second != nil {
		runnerUp = second.Score
	}
	return top, runnerUp
}

func (e *Engine) collectSignals(item model.ImportPlanItem, hints Hints) signals {
	var sig signals

	present := make(map[string]bool, len(item.FieldRecordings))
	notes := 0
	structured := 0
	var freeText []string

	for i := range item.FieldRecordings {
		f := item.FieldRecordings[i]
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		sig.hasFields = true
		present[model.NormalizeFieldName(f.FieldName)] = true

		switch {
		case vocabulary.IsStatusField(f.FieldName):
			if sig.status == nil {
				sig.status = &item.FieldRecordings[i]
				if state, ok := vocabulary.NormalizeStatus(f.Value); ok {
					sig.state = state
				}
			}
			structured++
		case vocabulary.IsNoteField(f.FieldName):
			notes++
			freeText = append(freeText, f.Value)
		default:
			structured++
		}
	}
	sig.noteOnly = notes > 0 && structured == 0

	searchText := searchText(item)
	sig.external = vocabulary.MentionsExternalWork(searchText + " " + strings.Join(freeText, " "))

	for _, kind := range e.vocab.Compiled() {
		ranking := model.FactKindRanking{Kind: kind.Kind}

		if len(kind.SignatureFields) > 0 {
			overlap := 0
			for _, f := range kind.SignatureFields {
				if present[model.NormalizeFieldName(f)] {
					overlap++
				}
			}
			if overlap > 0 {
				ranking.Score += fieldWeight * float64(overlap) / float64(len(kind.SignatureFields))
				ranking.Reasons = append(ranking.Reasons, fmt.Sprintf("%d/%d signature fields", overlap, len(kind.SignatureFields)))
			}
		}

		if kind.MatchesKeyword(searchText) {
			ranking.Score += keywordWeight
			ranking.Reasons = append(ranking.Reasons, "keyword in title")
		}

		ranking.Score = clamp(ranking.Score)
		sig.rankings = append(sig.rankings, ranking)
	}

	if learned, ok := hints.Learnings[model.TitleSignature(item.Title)]; ok {
		if _, known := e.vocab.Lookup(learned); known {
			sig.rankings.ApplyLearningBoosts(map[string]float64{learned: e.opts.LearningBoost})
		}
	}

	// Drop kinds with no evidence at all.
	kept := sig.rankings[:0]
	for _, r := range sig.rankings {
		if r.Score > 0 {
			kept = append(kept, r)
		}
	}
	sig.rankings = kept
	sig.rankings.Sort()

	return sig
}

// searchText joins the title and metadata values for keyword matching.
func searchText(item model.ImportPlanItem) string {
	parts := make([]string, 0, len(item.Metadata)+1)
	parts = append(parts, item.Title)
	for _, v := range item.Metadata {
		parts = append(parts, v)
	}
	return strings.Join(parts, " ")
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
