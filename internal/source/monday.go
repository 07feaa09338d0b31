package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/sift/internal/model"
)

// Monday reads a Monday.com board JSON export: boards become projects, groups become
// subprocesses, and each column value becomes a field recording hinted by its column type.
type Monday struct{}

// NewMonday creates a Monday.com export source.
func NewMonday() *Monday {
	return &Monday{}
}

// Name implements Source.
func (s *Monday) Name() string { return "monday" }

type mondayExport struct {
	Boards []mondayBoard `json:"boards"`
}

type mondayBoard struct {
	Name   string        `json:"name"`
	Groups []mondayGroup `json:"groups"`
}

type mondayGroup struct {
	Title string       `json:"title"`
	Items []mondayItem `json:"items"`
}

type mondayItem struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	ColumnValues []mondayColumnValue `json:"column_values"`
}

type mondayColumnValue struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Type  string `json:"type"`
}

// Parse implements Source.
func (s *Monday) Parse(ctx context.Context, r io.Reader) (*model.RawImport, error) {
	var export mondayExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("monday: failed to decode board export: %w", err)
	}
	if len(export.Boards) == 0 {
		return nil, fmt.Errorf("monday: export contains no boards")
	}

	var gen ids
	raw := newRawImport(s.Name())

	for _, board := range export.Boards {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		project := model.RawImportContainer{
			TempID: gen.container(),
			Type:   model.ContainerProject,
			Title:  board.Name,
		}
		raw.Containers = append(raw.Containers, project)

		for _, group := range board.Groups {
			sub := model.RawImportContainer{
				TempID:       gen.container(),
				Type:         model.ContainerSubprocess,
				Title:        group.Title,
				ParentTempID: project.TempID,
			}
			raw.Containers = append(raw.Containers, sub)

			for _, it := range group.Items {
				item := model.RawImportItem{
					TempID:       gen.item(),
					ParentTempID: sub.TempID,
					Title:        strings.TrimSpace(it.Name),
				}
				if it.ID != "" {
					item.Metadata = map[string]string{"monday_id": it.ID}
				}
				for _, cv := range it.ColumnValues {
					if strings.TrimSpace(cv.Title) == "" || strings.TrimSpace(cv.Text) == "" {
						continue
					}
					item.FieldRecordings = append(item.FieldRecordings, model.FieldRecording{
						FieldName:  cv.Title,
						Value:      strings.TrimSpace(cv.Text),
						RenderHint: cv.Type,
					})
				}
				raw.Items = append(raw.Items, item)
			}
		}
	}

	return raw, nil
}
