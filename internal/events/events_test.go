package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	assert.Equal(t, 1, b.SubscriberCount())

	b.Publish(&Event{Type: TypeOpened, EventNumero: 123456, Message: "opened"})

	select {
	case evt := <-sub:
		require.NotNil(t, evt)
		assert.Equal(t, TypeOpened, evt.Type)
		assert.Equal(t, 123456, evt.EventNumero)
		assert.False(t, evt.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published event")
	}
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	b.Unsubscribe(sub)

	_, ok := <-sub
	assert.False(t, ok, "channel should be closed after unsubscribe")
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestBrokerDropsWhenSubscriberBufferFull(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	for i := 0; i < 64; i++ {
		b.Publish(&Event{Type: TypeChecked, EventNumero: i})
	}

	// Should not deadlock or panic; draining is best-effort.
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, sub, cap(sub), "events beyond the subscriber buffer are dropped, not queued")
}
