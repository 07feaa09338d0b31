package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ContainerType names the hierarchy level a container occupies.
type ContainerType string

// Container type constants.
const (
	ContainerProject    ContainerType = "project"
	ContainerProcess    ContainerType = "process"
	ContainerSubprocess ContainerType = "subprocess"
)

// IsValid reports whether t is a known container type.
func (t ContainerType) IsValid() bool {
	switch t {
	case ContainerProject, ContainerProcess, ContainerSubprocess:
		return true
	}
	return false
}

// FieldRecording is a single field captured by a source for one item.
type FieldRecording struct {
	FieldName  string `json:"field_name"`
	Value      string `json:"value"`
	RenderHint string `json:"render_hint,omitempty"`
}

// RawImportContainer is a hierarchy hint emitted by a source.
type RawImportContainer struct {
	TempID       string        `json:"temp_id"`
	Type         ContainerType `json:"type"`
	Title        string        `json:"title"`
	ParentTempID string        `json:"parent_temp_id,omitempty"`
}

// RawImportItem is one normalized row or board item emitted by a source.
type RawImportItem struct {
	Metadata        map[string]string `json:"metadata,omitempty"`
	TempID          string            `json:"temp_id"`
	Title           string            `json:"title"`
	ParentTempID    string            `json:"parent_temp_id,omitempty"`
	FieldRecordings []FieldRecording  `json:"field_recordings,omitempty"`
}

// RawImport is everything a source produced for one session.
type RawImport struct {
	SourceName string               `json:"source_name"`
	Containers []RawImportContainer `json:"containers"`
	Items      []RawImportItem      `json:"items"`
}

// ImportPlanContainer is a prospective hierarchy node. A blank ParentTempID marks a root.
type ImportPlanContainer struct {
	TempID       string        `json:"temp_id"`
	Type         ContainerType `json:"type"`
	Title        string        `json:"title"`
	ParentTempID string        `json:"parent_temp_id,omitempty"`
}

// IsRoot reports whether the container has no parent.
func (c ImportPlanContainer) IsRoot() bool {
	return c.ParentTempID == ""
}

// PlannedAction is an informational description of what the source expected to happen.
type PlannedAction struct {
	Payload map[string]string `json:"payload,omitempty"`
	Type    string            `json:"type"`
}

// ImportPlanItem is a prospective leaf record.
type ImportPlanItem struct {
	Metadata        map[string]string `json:"metadata,omitempty"`
	TempID          string            `json:"temp_id"`
	Title           string            `json:"title"`
	ParentTempID    string            `json:"parent_temp_id"`
	PlannedAction   PlannedAction     `json:"planned_action"`
	FieldRecordings []FieldRecording  `json:"field_recordings,omitempty"`
}

// Field returns the recording with the given normalized name.
func (i ImportPlanItem) Field(name string) (FieldRecording, bool) {
	for _, f := range i.FieldRecordings {
		if NormalizeFieldName(f.FieldName) == name {
			return f, true
		}
	}
	return FieldRecording{}, false
}

// ItemFromRaw converts a source item into a plan item.
func ItemFromRaw(raw RawImportItem) ImportPlanItem {
	return ImportPlanItem{
		TempID:          raw.TempID,
		Title:           raw.Title,
		ParentTempID:    raw.ParentTempID,
		Metadata:        raw.Metadata,
		FieldRecordings: raw.FieldRecordings,
		PlannedAction: PlannedAction{
			Type: "create_record",
		},
	}
}

// ContainerFromRaw converts a source container into a plan container.
func ContainerFromRaw(raw RawImportContainer) ImportPlanContainer {
	return ImportPlanContainer{
		TempID:       raw.TempID,
		Type:         raw.Type,
		Title:        raw.Title,
		ParentTempID: raw.ParentTempID,
	}
}

// Severity grades a validation issue.
type Severity string

// Severity constants.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationIssue is a problem found while assembling a plan.
// RecordTempID names the container the issue refers to.
type ValidationIssue struct {
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	ItemTempID   string   `json:"item_temp_id,omitempty"`
	RecordTempID string   `json:"record_temp_id,omitempty"`
}

func (v ValidationIssue) String() string {
	switch {
	case v.ItemTempID != "":
		return fmt.Sprintf("%s: item %s: %s", v.Severity, v.ItemTempID, v.Message)
	case v.RecordTempID != "":
		return fmt.Sprintf("%s: container %s: %s", v.Severity, v.RecordTempID, v.Message)
	default:
		return fmt.Sprintf("%s: %s", v.Severity, v.Message)
	}
}

// ImportPlan is the aggregate root for one session.
type ImportPlan struct {
	CreatedAt        time.Time                      `json:"created_at"`
	Classifications  map[string]*ItemClassification `json:"classifications"`
	SessionID        string                         `json:"session_id"`
	Containers       []ImportPlanContainer          `json:"containers"`
	Items            []ImportPlanItem               `json:"items"`
	ValidationIssues []ValidationIssue              `json:"validation_issues"`
	Version          int                            `json:"version"`
}

// Classification returns the classification for an item temp id.
func (p *ImportPlan) Classification(itemTempID string) (*ItemClassification, bool) {
	c, ok := p.Classifications[itemTempID]
	return c, ok
}

// Item returns the item with the given temp id.
func (p *ImportPlan) Item(tempID string) (ImportPlanItem, bool) {
	for _, item := range p.Items {
		if item.TempID == tempID {
			return item, true
		}
	}
	return ImportPlanItem{}, false
}

// HasErrors reports whether any validation issue is an error.
func (p *ImportPlan) HasErrors() bool {
	for _, issue := range p.ValidationIssues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the plan.
func (p *ImportPlan) Clone() *ImportPlan {
	if p == nil {
		return nil
	}

	// JSON keeps the tagged output union intact, see Outputs.MarshalJSON.
	data, err := json.Marshal(p)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal plan for deep copy: %v", err))
	}

	var planCopy ImportPlan
	if err := json.Unmarshal(data, &planCopy); err != nil {
		panic(fmt.Sprintf("failed to unmarshal plan for deep copy: %v", err))
	}

	return &planCopy
}
