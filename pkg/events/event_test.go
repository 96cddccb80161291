package events

import (
	"testing"

	"docuchat-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewDocumentStatusEvent(t *testing.T) {
	userID := uuid.New()
	docID := uuid.New()

	tests := []struct {
		name     string
		doc      entity.Document
		wantType string
		wantOK   bool
		wantErr  string
	}{
		{name: "pending is silent", doc: entity.Document{Status: entity.DocumentStatusPending}},
		{name: "processing", doc: entity.Document{Status: entity.DocumentStatusProcessing}, wantType: DocumentProcessing, wantOK: true},
		{name: "completed", doc: entity.Document{Status: entity.DocumentStatusCompleted, ChunkCount: 3}, wantType: DocumentCompleted, wantOK: true},
		{
			name: "failed carries the error",
			doc: entity.Document{
				Status:   entity.DocumentStatusFailed,
				Metadata: map[string]interface{}{entity.MetadataProcessingError: "Failed to extract text from PDF"},
			},
			wantType: DocumentFailed,
			wantOK:   true,
			wantErr:  "Failed to extract text from PDF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := tt.doc
			doc.Id = docID
			doc.UserId = userID
			doc.OriginalFilename = "notes.pdf"

			evt, ok := NewDocumentStatusEvent(&doc)
			assert.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantType, evt.EventType())
			assert.Equal(t, userID.String(), evt.Payload()["user_id"])
			assert.Equal(t, docID.String(), evt.Payload()["document_id"])
			assert.Equal(t, "notes.pdf", evt.Payload()["filename"])
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, evt.Payload()["error"])
			} else {
				assert.NotContains(t, evt.Payload(), "error")
			}
			assert.False(t, evt.Timestamp().IsZero())
		})
	}
}
