package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/service"
)

// ResolveFunc submits one resolution as soon as the user makes it.
type ResolveFunc func(ctx context.Context, r model.Resolution) error

// ReviewStats summarizes an interactive review.
type ReviewStats struct {
	Resolved int
	Left     int
	Failed   int
}

// Prompter walks the uncertain items of a plan and asks the user how to settle each one.
type Prompter struct {
	writer io.Writer
	reader *NonBlockingReader
	kinds  []model.FactKind
}

// NewPrompter creates a prompter over the given input and output.
func NewPrompter(reader io.Reader, writer io.Writer, vocab service.FactVocabulary) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}

	kinds := vocab.KnownFactKinds()
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Kind < kinds[j].Kind })

	return &Prompter{
		reader: NewNonBlockingReader(reader),
		writer: writer,
		kinds:  kinds,
	}
}

// errQuit stops the review without an error.
var errQuit = errors.New("quit")

// Review prompts for every item that still needs a resolution, in plan order, and hands each
// decision to resolve. It stops at "q" or end of input. A rejected resolution is reported and
// the item is left unresolved.
func (p *Prompter) Review(ctx context.Context, plan *model.ImportPlan, resolve ResolveFunc) (ReviewStats, error) {
	var pending []model.ImportPlanItem
	for _, item := range plan.Items {
		if c, ok := plan.Classification(item.TempID); ok && c.NeedsResolution() {
			pending = append(pending, item)
		}
	}

	var stats ReviewStats
	if len(pending) == 0 {
		p.println(FormatSuccess("Nothing to review, every item is settled."))
		return stats, nil
	}

	for i, item := range pending {
		c, _ := plan.Classification(item.TempID)
		p.println(RenderBox(fmt.Sprintf("Review %d/%d: %s", i+1, len(pending), item.Title), formatItem(item, c)))

		r, err := p.promptResolution(ctx, item, c)
		switch {
		case errors.Is(err, errQuit), errors.Is(err, io.EOF):
			stats.Left += len(pending) - i
			return stats, nil
		case err != nil:
			stats.Left += len(pending) - i
			return stats, err
		case r == nil:
			stats.Left++
			continue
		}

		if err := resolve(ctx, *r); err != nil {
			stats.Failed++
			p.println(FormatError(fmt.Sprintf("Could not resolve %s: %v", item.TempID, err)))
			continue
		}
		stats.Resolved++
		p.println(FormatSuccess(fmt.Sprintf("%s → %s", item.TempID, describeResolution(*r))))
	}

	return stats, nil
}

// promptResolution returns nil when the user leaves the item for later.
func (p *Prompter) promptResolution(ctx context.Context, item model.ImportPlanItem, c *model.ItemClassification) (*model.Resolution, error) {
	p.println(FormatPrompt("Options:"))

	valid := make(map[string]string, len(c.Candidates)+6)
	for i, kind := range c.Candidates {
		key := strconv.Itoa(i + 1)
		valid[key] = kind
		p.printf("  [%s] Fact: %s\n", key, SuccessStyle.Render(kind))
	}
	p.println("  [F] Fact of another kind")
	p.println("  [D] Derived state change")
	p.println("  [I] Internal work")
	p.println("  [S] Skip this item")
	p.println("  [N] Leave for later")
	p.println("  [Q] Quit review")
	for _, key := range []string{"f", "d", "i", "s", "n", "q"} {
		valid[key] = ""
	}

	choice, err := p.promptChoice(ctx, "Choice", valid)
	if err != nil {
		return nil, err
	}

	r := &model.Resolution{ItemTempID: item.TempID}
	switch choice {
	case "q":
		return nil, errQuit
	case "n":
		return nil, nil
	case "s":
		r.ResolvedOutcome = model.OutcomeSkip
	case "i":
		r.ResolvedOutcome = model.OutcomeInternalWork
	case "d":
		r.ResolvedOutcome = model.OutcomeDerivedState
	case "f":
		kind, err := p.promptFactKind(ctx)
		if err != nil {
			return nil, err
		}
		return p.factResolution(ctx, item, kind)
	default:
		kind, _ := p.lookupKind(valid[choice])
		return p.factResolution(ctx, item, kind)
	}
	return r, nil
}

// factResolution asks for the required fields the item does not provide.
func (p *Prompter) factResolution(ctx context.Context, item model.ImportPlanItem, kind model.FactKind) (*model.Resolution, error) {
	r := &model.Resolution{
		ItemTempID:       item.TempID,
		ResolvedOutcome:  model.OutcomeFactEmitted,
		ResolvedFactKind: kind.Kind,
	}

	for _, field := range kind.MissingFields(item.FieldRecordings) {
		value, err := p.promptLine(ctx, fmt.Sprintf("Value for %s (blank to leave unset)", field))
		if err != nil {
			return nil, err
		}
		if value == "" {
			continue
		}
		if r.ResolvedPayload == nil {
			r.ResolvedPayload = model.Payload{}
		}
		r.ResolvedPayload[model.NormalizeFieldName(field)] = value
	}
	return r, nil
}

func (p *Prompter) promptFactKind(ctx context.Context) (model.FactKind, error) {
	names := make([]string, len(p.kinds))
	for i, k := range p.kinds {
		names[i] = k.Kind
	}
	p.println(SubtitleStyle.Render("Known fact kinds: " + strings.Join(names, ", ")))

	for {
		name, err := p.promptLine(ctx, "Fact kind")
		if err != nil {
			return model.FactKind{}, err
		}
		if kind, ok := p.lookupKind(name); ok {
			return kind, nil
		}
		p.println(FormatWarning(fmt.Sprintf("Unknown fact kind %q", name)))
	}
}

func (p *Prompter) lookupKind(name string) (model.FactKind, bool) {
	for _, k := range p.kinds {
		if strings.EqualFold(k.Kind, strings.TrimSpace(name)) {
			return k, true
		}
	}
	return model.FactKind{Kind: name}, false
}

func (p *Prompter) promptChoice(ctx context.Context, prompt string, valid map[string]string) (string, error) {
	for {
		input, err := p.promptLine(ctx, prompt)
		if err != nil {
			return "", err
		}
		choice := strings.ToLower(input)
		if _, ok := valid[choice]; ok {
			return choice, nil
		}
		p.println(FormatWarning(fmt.Sprintf("Invalid choice %q", input)))
	}
}

func (p *Prompter) promptLine(ctx context.Context, prompt string) (string, error) {
	p.printf("%s", FormatPrompt(prompt))
	return p.reader.ReadLine(ctx)
}

func (p *Prompter) println(a ...any) {
	if _, err := fmt.Fprintln(p.writer, a...); err != nil {
		slog.Warn("Failed to write prompt output", "error", err)
	}
}

func (p *Prompter) printf(format string, a ...any) {
	if _, err := fmt.Fprintf(p.writer, format, a...); err != nil {
		slog.Warn("Failed to write prompt output", "error", err)
	}
}

func formatItem(item model.ImportPlanItem, c *model.ItemClassification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  %s confidence\n", BoldStyle.Render(item.TempID), StyleOutcome(c.Outcome), c.Confidence)
	fmt.Fprintf(&b, "%s\n", SubtitleStyle.Render(c.Rationale))
	for _, f := range item.FieldRecordings {
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		fmt.Fprintf(&b, "\n  %s: %s", f.FieldName, f.Value)
	}
	if len(c.MissingFields) > 0 {
		fmt.Fprintf(&b, "\n\n%s", WarningStyle.Render("Missing: "+strings.Join(c.MissingFields, ", ")))
	}
	return b.String()
}

func describeResolution(r model.Resolution) string {
	if r.ResolvedOutcome == model.OutcomeFactEmitted {
		return fmt.Sprintf("%s (%s)", r.ResolvedOutcome, r.ResolvedFactKind)
	}
	return string(r.ResolvedOutcome)
}
