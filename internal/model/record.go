package model

import "time"

// Container is a materialized hierarchy node.
type Container struct {
	CreatedAt time.Time     `json:"created_at"`
	ID        string        `json:"id"`
	Type      ContainerType `json:"type"`
	Title     string        `json:"title"`
	ParentID  string        `json:"parent_id,omitempty"`
}

// Fact is a durable fact created from an approved fact candidate.
type Fact struct {
	CreatedAt   time.Time `json:"created_at"`
	Payload     Payload   `json:"payload"`
	ID          string    `json:"id"`
	FactKind    string    `json:"fact_kind"`
	ContainerID string    `json:"container_id,omitempty"`
}

// Event is a recorded work event.
type Event struct {
	CreatedAt   time.Time `json:"created_at"`
	Payload     Payload   `json:"payload"`
	ID          string    `json:"id"`
	EventType   string    `json:"event_type"`
	ContainerID string    `json:"container_id,omitempty"`
}

// RecordCounts summarizes the durable records in storage.
type RecordCounts struct {
	Containers  int `json:"containers"`
	Facts       int `json:"facts"`
	Events      int `json:"events"`
	FieldValues int `json:"field_values"`
}
