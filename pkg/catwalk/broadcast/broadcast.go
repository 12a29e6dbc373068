// Package broadcast distributes session progress events to subscribers.
// The commit writer publishes after every durable batch; consumers such
// as the watch command or an embedding caller receive events on buffered
// channels. Slow consumers lose events rather than slowing the pipeline.
package broadcast

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/fairweather/catwalk/pkg/catwalk/types"
)

// Kind is the progress event type.
type Kind int

// Event kinds.
const (
	KindSessionStarted Kind = iota
	KindBatchCommitted
	KindCheckpoint
	KindSessionFinished
)

// Event is one progress notification.
type Event struct {
	Kind Kind

	// SessionID identifies the originating session.
	SessionID string

	// Records holds the just-committed batch for KindBatchCommitted.
	Records []types.ContentRecord

	// Checkpoint is set for KindCheckpoint.
	Checkpoint *types.Checkpoint

	// Summary is set for KindSessionFinished.
	Summary *types.Summary
}

// Subscriber receives events matching its filters.
type Subscriber struct {
	ID string

	// PathPrefix limits record events to paths under this prefix.
	// Empty matches everything.
	PathPrefix string

	// Statuses limits record events to these statuses. Empty matches all.
	Statuses []types.Status

	Events chan *Event
}

// subscriberBuffer is how many events a subscriber can lag before
// dropping.
const subscriberBuffer = 64

// Broadcaster fans events out to subscribers.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool
}

// New creates a broadcaster.
func New() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]*Subscriber),
	}
}

// Subscribe registers a subscriber. Returns nil once the broadcaster is
// closed.
func (b *Broadcaster) Subscribe(pathPrefix string, statuses []types.Status) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	sub := &Subscriber{
		ID:         uuid.New().String(),
		PathPrefix: pathPrefix,
		Statuses:   statuses,
		Events:     make(chan *Event, subscriberBuffer),
	}
	b.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.Events)
		delete(b.subscribers, id)
	}
}

// Publish sends an event to every matching subscriber. Record batches are
// filtered per subscriber; a subscriber whose filters match nothing in
// the batch is skipped. Full channels drop the event.
func (b *Broadcaster) Publish(ev *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		out := ev
		if ev.Kind == KindBatchCommitted {
			filtered := filterRecords(sub, ev.Records)
			if len(filtered) == 0 {
				continue
			}
			out = &Event{
				Kind:      ev.Kind,
				SessionID: ev.SessionID,
				Records:   filtered,
			}
		}

		select {
		case sub.Events <- out:
		default:
			// Subscriber lagging, event dropped
		}
	}
}

// filterRecords applies a subscriber's prefix and status filters.
func filterRecords(sub *Subscriber, records []types.ContentRecord) []types.ContentRecord {
	if sub.PathPrefix == "" && len(sub.Statuses) == 0 {
		return records
	}

	var out []types.ContentRecord
	for i := range records {
		if sub.PathPrefix != "" && !underPrefix(records[i].Path, sub.PathPrefix) {
			continue
		}
		if len(sub.Statuses) > 0 && !statusIn(records[i].Status, sub.Statuses) {
			continue
		}
		out = append(out, records[i])
	}
	return out
}

func underPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/' || strings.HasSuffix(prefix, "/")
}

func statusIn(s types.Status, set []types.Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// Close closes the broadcaster and every subscription.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.Events)
	}
	b.subscribers = make(map[string]*Subscriber)
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
