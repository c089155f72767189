package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	EventJobProgress       EventType = "job_progress"
	EventJobCompleted      EventType = "job_completed"
	EventWorkflowProgress  EventType = "workflow_progress"
	EventPageCompleted     EventType = "page_completed"
	EventAnalysisCompleted EventType = "analysis_completed"
	EventWorkflowCompleted EventType = "workflow_completed"
)

// AllEventTypes lists every event type, in lifecycle order.
var AllEventTypes = []EventType{
	EventJobProgress,
	EventJobCompleted,
	EventWorkflowProgress,
	EventPageCompleted,
	EventAnalysisCompleted,
	EventWorkflowCompleted,
}

// Event represents a system event
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

// ProgressPayload is published for job and workflow lifecycle events
type ProgressPayload struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"` // "job" or "workflow"
	Status     string  `json:"status"`
	Role       string  `json:"role,omitempty"`
	Provider   string  `json:"provider,omitempty"`
	Percentage float64 `json:"percentage"`
	Message    string  `json:"message,omitempty"`
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages pub/sub event bus
type EventService interface {
	// Subscribe registers handler and returns an id for Unsubscribe
	Subscribe(eventType EventType, handler EventHandler) (string, error)

	Unsubscribe(subscriptionID string) error

	// Publish an event to all subscribers asynchronously
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	Close() error
}
