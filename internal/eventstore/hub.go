package eventstore

import (
	"sync"

	"github.com/devcollab/platform/backend/pkg/logger"
	"github.com/google/uuid"
)

// Snapshot is the complete result set of one subscription at one moment.
// Consumers replace their previous view of the query; appending snapshots
// together is always wrong.
type Snapshot struct {
	SubscriptionID string     `json:"subscriptionId"`
	Collection     string     `json:"collection"`
	Docs           []Document `json:"docs"`
}

// Loader supplies the current documents of a collection, typically straight
// from the database read model.
type Loader interface {
	Load(collection string) ([]Document, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(collection string) ([]Document, error)

func (f LoaderFunc) Load(collection string) ([]Document, error) { return f(collection) }

// Subscription is one registered query. Snapshots arrive on C until Close.
type Subscription struct {
	ID    string
	Query Query
	C     <-chan Snapshot

	hub    *Hub
	ch     chan Snapshot
	mu     sync.Mutex
	closed bool
}

// Close unregisters the subscription and closes its channel. After Close
// returns, no further snapshot is delivered.
func (s *Subscription) Close() {
	s.hub.remove(s.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// deliver pushes a snapshot unless the subscription is closed. A full buffer
// means the consumer lags behind; since every snapshot is complete, the
// oldest queued one is superseded and can be dropped to make room.
func (s *Subscription) deliver(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- snap:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// Hub fans document changes out to query subscriptions.
type Hub struct {
	mu     sync.RWMutex
	loader Loader
	subs   map[string]*Subscription

	pubMu    sync.Mutex
	pubLocks map[string]*sync.Mutex
}

// NewHub creates a hub reading documents through loader.
func NewHub(loader Loader) *Hub {
	return &Hub{
		loader:   loader,
		subs:     make(map[string]*Subscription),
		pubLocks: make(map[string]*sync.Mutex),
	}
}

// publishLock returns the serialization lock for a collection. Holding it
// across load and delivery keeps snapshots in commit order: a publish for an
// earlier mutation can never read the old state and deliver it after a later
// publish already pushed the new one.
func (h *Hub) publishLock(collection string) *sync.Mutex {
	h.pubMu.Lock()
	defer h.pubMu.Unlock()
	lock, ok := h.pubLocks[collection]
	if !ok {
		lock = &sync.Mutex{}
		h.pubLocks[collection] = lock
	}
	return lock
}

// Subscribe validates and registers a query. The initial snapshot is
// delivered on the returned channel before any publish-driven one. The
// collection's publish lock covers load, registration and initial delivery
// so a concurrent publish cannot slip between them.
func (h *Hub) Subscribe(q Query) (*Subscription, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	lock := h.publishLock(q.Collection)
	lock.Lock()
	defer lock.Unlock()

	docs, err := h.loader.Load(q.Collection)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		ID:    uuid.New().String(),
		Query: q,
		hub:   h,
		ch:    make(chan Snapshot, 16),
	}
	sub.C = sub.ch

	h.mu.Lock()
	h.subs[sub.ID] = sub
	h.mu.Unlock()

	sub.deliver(Snapshot{
		SubscriptionID: sub.ID,
		Collection:     q.Collection,
		Docs:           q.Apply(docs),
	})

	return sub, nil
}

// Publish re-evaluates every subscription on the collection against the
// current read model and delivers fresh snapshots. It is driven by the
// republish worker after a mutation commits, never by command handlers.
// Publishes on one collection are serialized; the republish paths may run
// jobs concurrently and snapshots must still arrive in commit order.
func (h *Hub) Publish(collection string) {
	lock := h.publishLock(collection)
	lock.Lock()
	defer lock.Unlock()

	h.mu.RLock()
	var targets []*Subscription
	for _, sub := range h.subs {
		if sub.Query.Collection == collection {
			targets = append(targets, sub)
		}
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	docs, err := h.loader.Load(collection)
	if err != nil {
		logger.Error().Err(err).Str("collection", collection).Msg("event store load failed")
		return
	}

	for _, sub := range targets {
		sub.deliver(Snapshot{
			SubscriptionID: sub.ID,
			Collection:     collection,
			Docs:           sub.Query.Apply(docs),
		})
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

// SubscriberCount returns the number of live subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
