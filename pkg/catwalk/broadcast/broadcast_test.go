package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairweather/catwalk/pkg/catwalk/types"
)

func batchEvent(paths ...string) *Event {
	records := make([]types.ContentRecord, len(paths))
	for i, p := range paths {
		records[i] = types.ContentRecord{Path: p, Status: types.StatusNew}
	}
	return &Event{Kind: KindBatchCommitted, SessionID: "s1", Records: records}
}

func TestSubscribeAndPublish(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe("", nil)
	require.NotNil(t, sub)
	assert.Equal(t, 1, b.SubscriberCount())

	b.Publish(batchEvent("/v/a", "/v/b"))

	ev := <-sub.Events
	assert.Equal(t, KindBatchCommitted, ev.Kind)
	assert.Len(t, ev.Records, 2)
}

func TestPublish_PathPrefixFilter(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe("/v/photos", nil)

	b.Publish(batchEvent("/v/photos/a.jpg", "/v/docs/b.pdf", "/v/photoshoot/c.jpg"))

	ev := <-sub.Events
	require.Len(t, ev.Records, 1)
	assert.Equal(t, "/v/photos/a.jpg", ev.Records[0].Path)
}

func TestPublish_StatusFilter(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe("", []types.Status{types.StatusMissing})

	records := []types.ContentRecord{
		{Path: "/v/a", Status: types.StatusNew},
		{Path: "/v/b", Status: types.StatusMissing},
	}
	b.Publish(&Event{Kind: KindBatchCommitted, SessionID: "s1", Records: records})

	ev := <-sub.Events
	require.Len(t, ev.Records, 1)
	assert.Equal(t, "/v/b", ev.Records[0].Path)
}

func TestPublish_SkipsSubscriberWithNoMatches(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe("/elsewhere", nil)

	b.Publish(batchEvent("/v/a"))

	select {
	case <-sub.Events:
		t.Fatal("subscriber should not receive a fully filtered batch")
	default:
	}
}

func TestPublish_LifecycleEventsBypassFilters(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe("/narrow/prefix", []types.Status{types.StatusMissing})

	b.Publish(&Event{Kind: KindSessionStarted, SessionID: "s1"})
	b.Publish(&Event{Kind: KindSessionFinished, SessionID: "s1", Summary: &types.Summary{}})

	assert.Equal(t, KindSessionStarted, (<-sub.Events).Kind)
	assert.Equal(t, KindSessionFinished, (<-sub.Events).Kind)
}

func TestPublish_DropsWhenSubscriberFull(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe("", nil)

	// Flood well past the buffer without consuming; Publish must never
	// block.
	for i := 0; i < subscriberBuffer*3; i++ {
		b.Publish(batchEvent("/v/a"))
	}

	assert.Len(t, sub.Events, subscriberBuffer)
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe("", nil)
	b.Unsubscribe(sub.ID)
	assert.Equal(t, 0, b.SubscriberCount())

	_, open := <-sub.Events
	assert.False(t, open)
}

func TestClose(t *testing.T) {
	b := New()

	sub := b.Subscribe("", nil)
	b.Close()

	_, open := <-sub.Events
	assert.False(t, open)
	assert.Nil(t, b.Subscribe("", nil), "closed broadcaster accepts no subscribers")

	// Publishing after close is a no-op, not a panic.
	b.Publish(batchEvent("/v/a"))
}
