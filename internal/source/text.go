package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/sift/internal/model"
)

// Text reads pasted notes. Every non-empty line is an item; "key: value" segments after the
// first "|" become field recordings, and a line starting with "#" opens a process container.
//
//	# Billing
//	ACME invoice | Invoice Number: 1043 | Amount: 900
//	Chase the signed contract
type Text struct {
	opts Options
}

// NewText creates a pasted-text source.
func NewText(opts Options) *Text {
	return &Text{opts: opts}
}

// Name implements Source.
func (s *Text) Name() string { return "text" }

// Parse implements Source.
func (s *Text) Parse(ctx context.Context, r io.Reader) (*model.RawImport, error) {
	var gen ids
	raw := newRawImport(s.Name())
	root := model.RawImportContainer{
		TempID: gen.container(),
		Type:   model.ContainerProject,
		Title:  importName(s.opts, "Pasted notes"),
	}
	raw.Containers = append(raw.Containers, root)
	parent := root.TempID

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if heading, ok := strings.CutPrefix(line, "#"); ok {
			c := model.RawImportContainer{
				TempID:       gen.container(),
				Type:         model.ContainerProcess,
				Title:        strings.TrimSpace(strings.TrimLeft(heading, "#")),
				ParentTempID: root.TempID,
			}
			raw.Containers = append(raw.Containers, c)
			parent = c.TempID
			continue
		}

		raw.Items = append(raw.Items, parseTextLine(line, gen.item(), parent, lineNo))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("text: failed to read input: %w", err)
	}

	return raw, nil
}

func parseTextLine(line, tempID, parent string, lineNo int) model.RawImportItem {
	segments := strings.Split(line, "|")
	item := model.RawImportItem{
		TempID:       tempID,
		ParentTempID: parent,
		Title:        strings.TrimSpace(segments[0]),
		Metadata:     map[string]string{"line": fmt.Sprint(lineNo)},
	}

	for _, segment := range segments[1:] {
		key, value, ok := strings.Cut(segment, ":")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		switch {
		case !ok || key == "":
			// A bare segment is free text.
			if text := strings.TrimSpace(segment); text != "" {
				item.FieldRecordings = append(item.FieldRecordings, model.FieldRecording{FieldName: "Notes", Value: text})
			}
		case value != "":
			item.FieldRecordings = append(item.FieldRecordings, model.FieldRecording{FieldName: key, Value: value})
		}
	}
	return item
}
