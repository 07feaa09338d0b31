package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/vocabulary"
)

var (
	titleColumns = []string{"title", "name", "item", "task"}
	groupColumns = []string{"group", "parent", "section"}
)

// CSV reads a spreadsheet export with a header row. Each data row becomes an item under a
// root project container; a group column adds one subprocess container per distinct value.
type CSV struct {
	opts Options
}

// NewCSV creates a CSV source.
func NewCSV(opts Options) *CSV {
	return &CSV{opts: opts}
}

// Name implements Source.
func (s *CSV) Name() string { return "csv" }

// Parse implements Source.
func (s *CSV) Parse(ctx context.Context, r io.Reader) (*model.RawImport, error) {
	reader := csv.NewReader(stripUTF8BOM(bufio.NewReader(r)))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("csv: failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	groupCol, err := columnIndex(header, s.opts.GroupColumn, groupColumns, -1)
	if err != nil {
		return nil, err
	}
	titleCol, err := columnIndex(header, s.opts.TitleColumn, titleColumns, -1)
	if err != nil {
		return nil, err
	}
	if titleCol < 0 {
		titleCol = fallbackTitleColumn(header, groupCol)
	}

	var gen ids
	raw := newRawImport(s.Name())
	root := model.RawImportContainer{
		TempID: gen.container(),
		Type:   model.ContainerProject,
		Title:  importName(s.opts, "CSV import"),
	}
	raw.Containers = append(raw.Containers, root)
	groups := make(map[string]string)

	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}

		parent := root.TempID
		if groupCol >= 0 && groupCol < len(record) {
			if group := strings.TrimSpace(record[groupCol]); group != "" {
				id, ok := groups[group]
				if !ok {
					id = gen.container()
					groups[group] = id
					raw.Containers = append(raw.Containers, model.RawImportContainer{
						TempID:       id,
						Type:         model.ContainerSubprocess,
						Title:        group,
						ParentTempID: root.TempID,
					})
				}
				parent = id
			}
		}

		item := model.RawImportItem{
			TempID:       gen.item(),
			ParentTempID: parent,
			Metadata:     map[string]string{"line": fmt.Sprint(line)},
		}
		for i, value := range record {
			value = strings.TrimSpace(value)
			switch {
			case i == titleCol:
				item.Title = value
			case i == groupCol, i >= len(header), value == "":
			default:
				item.FieldRecordings = append(item.FieldRecordings, model.FieldRecording{
					FieldName: header[i],
					Value:     value,
				})
			}
		}
		raw.Items = append(raw.Items, item)
	}

	slog.Debug("Parsed CSV import", "items", len(raw.Items), "groups", len(groups))
	return raw, nil
}

// columnIndex resolves an explicit column name, else the first header matching a known alias,
// else fallback.
func columnIndex(header []string, explicit string, aliases []string, fallback int) (int, error) {
	if explicit != "" {
		for i, h := range header {
			if strings.EqualFold(h, explicit) {
				return i, nil
			}
		}
		return 0, fmt.Errorf("csv: column %q not found in header", explicit)
	}
	for i, h := range header {
		for _, alias := range aliases {
			if strings.EqualFold(h, alias) {
				return i, nil
			}
		}
	}
	return fallback, nil
}

// fallbackTitleColumn picks the first column that is neither a status, a note nor the group.
// Without one, items have no title and every column is recorded as a field.
func fallbackTitleColumn(header []string, groupCol int) int {
	for i, h := range header {
		if i == groupCol || h == "" || vocabulary.IsStatusField(h) || vocabulary.IsNoteField(h) {
			continue
		}
		return i
	}
	return -1
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
