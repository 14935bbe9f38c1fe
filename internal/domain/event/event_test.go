package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"connected", TypeConnected, true},
		{"notification", TypeNotification, true},
		{"invoice ingested", TypeInvoiceIngested, true},
		{"invoice discarded", TypeInvoiceDiscarded, true},
		{"unknown", Type("invoice.deleted"), false},
		{"empty", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.eventType.IsValid())
		})
	}
}

func TestType_IsInvoice(t *testing.T) {
	assert.True(t, TypeInvoiceAccepted.IsInvoice())
	assert.False(t, TypeNotification.IsInvoice())
	assert.Equal(t, "invoice.updated", TypeInvoiceUpdated.String())
}

func TestNewEvent(t *testing.T) {
	before := time.Now()
	evt := NewEvent(TypeInvoiceIngested, "doc-1", map[string]interface{}{KeySource: "ingest"})

	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, evt.ID, evt.CorrelationID)
	assert.Equal(t, "doc-1", evt.InvoiceID)
	assert.False(t, evt.Timestamp.Before(before))
	assert.Equal(t, "ingest", evt.GetPayloadString(KeySource))

	other := NewEvent(TypeInvoiceIngested, "doc-1", nil)
	assert.NotEqual(t, evt.ID, other.ID)
}

func TestNewEventWithCorrelation(t *testing.T) {
	evt := NewEventWithCorrelation(TypeInvoiceAccepted, "doc-1", nil, "corr-1")

	assert.Equal(t, "corr-1", evt.CorrelationID)
	assert.NotEqual(t, "corr-1", evt.ID)
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeNotification, "", map[string]interface{}{KeyMessage: "hola"})

	updated := original.WithPayload(KeyUserID, 7)

	assert.Equal(t, int64(7), updated.GetPayloadInt(KeyUserID))
	assert.Equal(t, "hola", updated.GetPayloadString(KeyMessage))
	_, exists := original.Payload[KeyUserID]
	assert.False(t, exists)
	assert.Equal(t, original.ID, updated.ID)
}

func TestEvent_GetPayloadMissing(t *testing.T) {
	evt := NewEvent(TypeAlert, "", map[string]interface{}{"n": "not a number"})

	assert.Equal(t, "", evt.GetPayloadString("missing"))
	assert.Equal(t, int64(0), evt.GetPayloadInt("n"))
	assert.Equal(t, int64(12), evt.WithPayload("f", 12.0).GetPayloadInt("f"))
}
