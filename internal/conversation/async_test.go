package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncDispatcherDelivers(t *testing.T) {
	delivered := make(chan Message, 1)
	inner := DispatcherFunc(func(ctx context.Context, msg Message) error {
		delivered <- msg
		return nil
	})

	d := NewAsyncDispatcher(inner, 8, time.Second, nil)
	t.Cleanup(d.Close)

	require.NoError(t, d.Dispatch(context.Background(), Message{MessageID: "wamid.1", Text: "hello"}))

	select {
	case msg := <-delivered:
		assert.Equal(t, "wamid.1", msg.MessageID)
		assert.Equal(t, "hello", msg.Text)
	case <-time.After(time.Second):
		t.Fatal("message never delivered")
	}
}

func TestAsyncDispatcherCloseStopsDelivery(t *testing.T) {
	delivered := make(chan Message, 8)
	inner := DispatcherFunc(func(ctx context.Context, msg Message) error {
		delivered <- msg
		return nil
	})

	d := NewAsyncDispatcher(inner, 8, time.Second, nil)
	d.Close()
	// Idempotent.
	d.Close()

	require.NoError(t, d.Dispatch(context.Background(), Message{MessageID: "wamid.2"}))

	select {
	case <-delivered:
		t.Fatal("delivered after close")
	case <-time.After(50 * time.Millisecond):
	}
}
