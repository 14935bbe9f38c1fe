package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/garyjia/facturas-review/internal/domain/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestHub_PublishReachesSubscribers(t *testing.T) {
	hub := NewHub(0, zap.NewNop())
	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelA()
	defer cancelB()

	id := hub.Publish("notification", map[string]string{"message": "hola"})

	for _, ch := range []<-chan Message{a, b} {
		msg := receive(t, ch)
		assert.Equal(t, id, msg.ID)
		assert.Equal(t, "notification", msg.Event)
	}
}

func TestHub_LogIsCappedNewestFirst(t *testing.T) {
	hub := NewHub(DefaultLogSize, zap.NewNop())

	for i := 0; i < 60; i++ {
		hub.Publish("notification", i)
	}

	log := hub.Log()
	require.Len(t, log, 50)
	assert.Equal(t, 59, log[0].Data)
	assert.Equal(t, 10, log[49].Data)
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(5, zap.NewNop())
	ch, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < DefaultBufferSize*3; i++ {
			hub.Publish("alert", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
	assert.Len(t, ch, DefaultBufferSize)
}

func TestHub_CancelUnsubscribes(t *testing.T) {
	hub := NewHub(5, zap.NewNop())
	ch, cancel := hub.Subscribe()
	assert.Equal(t, 1, hub.SubscriberCount())

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, hub.SubscriberCount())
}

func TestHub_HandleEvent(t *testing.T) {
	hub := NewHub(5, zap.NewNop())
	ch, cancel := hub.Subscribe()
	defer cancel()

	evt := event.NewEvent(event.TypeInvoiceIngested, "doc-1", map[string]interface{}{event.KeySource: "ingest"})
	require.NoError(t, hub.HandleEvent(context.Background(), evt))

	msg := receive(t, ch)
	assert.Equal(t, evt.ID, msg.ID)
	assert.Equal(t, "invoice.ingested", msg.Event)
	assert.Equal(t, evt.Payload, msg.Data)
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(5, zap.NewNop())
	ch, cancel := hub.Subscribe()

	hub.Close()
	hub.Close()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	hub.Publish("notification", "ignored")
	assert.Empty(t, hub.Log())

	late, _ := hub.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "late subscriber on closed hub should be closed")
}
