package nats

import (
	"testing"
	"time"

	"docuchat-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	evt, err := decodeEvent("events.document.completed", []byte(`{"document_id":"d1","occurred_at":"2026-01-02T03:04:05Z"}`))
	require.NoError(t, err)

	assert.Equal(t, events.DocumentCompleted, evt.EventType())
	assert.Equal(t, "d1", evt.Payload()["document_id"])
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), evt.Timestamp())
}

func TestDecodeEventWithoutTimestamp(t *testing.T) {
	before := time.Now().UTC()
	evt, err := decodeEvent("events.document.failed", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, events.DocumentFailed, evt.EventType())
	assert.False(t, evt.Timestamp().Before(before))
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	_, err := decodeEvent("events.x", []byte(`not json`))
	assert.Error(t, err)
}
