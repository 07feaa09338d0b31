// Package source parses raw import data into containers and items with source-assigned temp ids.
package source

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/model"
)

// Source parses one raw import format.
type Source interface {
	Name() string
	Parse(ctx context.Context, r io.Reader) (*model.RawImport, error)
}

// Options tunes source behavior. Zero values pick the defaults.
type Options struct {
	// ImportName titles the root container of flat sources.
	ImportName string
	// TitleColumn names the CSV column used as the item title.
	TitleColumn string
	// GroupColumn names the CSV column whose values become subprocess containers.
	GroupColumn string
}

var constructors = map[string]func(Options) Source{
	"csv":    func(o Options) Source { return NewCSV(o) },
	"text":   func(o Options) Source { return NewText(o) },
	"ofx":    func(Options) Source { return NewOFX() },
	"monday": func(Options) Source { return NewMonday() },
}

// ForFormat returns the source registered under name.
func ForFormat(name string, opts Options) (Source, error) {
	ctor, ok := constructors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown import format %q (supported: %s): %w",
			name, strings.Join(Formats(), ", "), common.ErrInvalidConfig)
	}
	return ctor(opts), nil
}

// Formats lists the registered format names.
func Formats() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ids hands out sequential temp ids so a source never repeats one.
type ids struct {
	containers int
	items      int
}

func (g *ids) container() string {
	g.containers++
	return fmt.Sprintf("c%d", g.containers)
}

func (g *ids) item() string {
	g.items++
	return fmt.Sprintf("i%d", g.items)
}

func importName(opts Options, fallback string) string {
	if name := strings.TrimSpace(opts.ImportName); name != "" {
		return name
	}
	return fallback
}

func newRawImport(name string) *model.RawImport {
	return &model.RawImport{
		SourceName: name,
		Containers: []model.RawImportContainer{},
		Items:      []model.RawImportItem{},
	}
}
