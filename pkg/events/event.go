package events

import (
	"time"

	"docuchat-be/internal/entity"
)

// Event types published on the bus. The subject is "events." + type.
const (
	DocumentProcessing = "document.processing"
	DocumentCompleted  = "document.completed"
	DocumentFailed     = "document.failed"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "document.completed").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewDocumentStatusEvent describes a status change of an ingested document.
// Pending documents produce no event.
func NewDocumentStatusEvent(doc *entity.Document) (BaseEvent, bool) {
	var eventType string
	switch doc.Status {
	case entity.DocumentStatusProcessing:
		eventType = DocumentProcessing
	case entity.DocumentStatusCompleted:
		eventType = DocumentCompleted
	case entity.DocumentStatusFailed:
		eventType = DocumentFailed
	default:
		return BaseEvent{}, false
	}

	data := map[string]interface{}{
		"user_id":     doc.UserId.String(),
		"document_id": doc.Id.String(),
		"filename":    doc.OriginalFilename,
		"status":      string(doc.Status),
		"chunk_count": doc.ChunkCount,
	}
	if msg := doc.ProcessingError(); msg != "" {
		data["error"] = msg
	}

	now := time.Now().UTC()
	data["occurred_at"] = now.Format(time.RFC3339Nano)

	return BaseEvent{Type: eventType, Data: data, OccurredAt: now}, true
}
