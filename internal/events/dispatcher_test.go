package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var seen []Event
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		seen = append(seen, e)
		return errors.New("first failed")
	})
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		seen = append(seen, e)
		return nil
	})
	d.Subscribe(EventTicketDeleted, func(context.Context, Event) error {
		t.Fatal("wrong type delivered")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: "t1"})
	assert.ErrorContains(t, err, "first failed")
	require.Len(t, seen, 2)
	assert.NotEmpty(t, seen[0].ID)
	assert.False(t, seen[0].Timestamp.IsZero())
	assert.Equal(t, seen[0].ID, seen[1].ID)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short", 10))
	assert.Equal(t, "héllo...", Preview("héllo world", 5))
}
