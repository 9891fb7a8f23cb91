package client

import (
	"sync"

	"github.com/devcollab/platform/backend/internal/eventstore"
	"github.com/devcollab/platform/backend/pkg/logger"
)

// event is one item on the manager's serialized apply queue.
type event struct {
	bucket Bucket
	gen    uint64
	snap   eventstore.Snapshot
	err    error // non-nil means the subscription died
}

// Manager holds exactly one live subscription per bucket the viewer needs,
// folds every snapshot into the store on a single goroutine, and tears all
// of it down synchronously on Close. A dead subscription marks its bucket
// degraded and stays down until Resubscribe or a viewer change; there is no
// silent retry loop.
type Manager struct {
	source   Source
	store    *Store
	onChange func(Bucket)
	onError  func(*SubscriptionError)

	events chan event
	done   chan struct{}
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	viewer   Viewer
	gen      map[Bucket]uint64
	handles  map[Bucket]Handle
	degraded map[Bucket]bool
}

// NewManager starts a manager for the given viewer. onChange fires after a
// snapshot lands in the store; onError fires when a subscription dies. Both
// run on the manager's apply goroutine, never concurrently. Either may be
// nil. A bucket that fails to open degrades alone and is reported through
// onError; the manager itself always comes up.
func NewManager(source Source, store *Store, viewer Viewer, onChange func(Bucket), onError func(*SubscriptionError)) *Manager {
	m := &Manager{
		source:   source,
		store:    store,
		onChange: onChange,
		onError:  onError,
		events:   make(chan event, 64),
		done:     make(chan struct{}),
		viewer:   viewer,
		gen:      make(map[Bucket]uint64),
		handles:  make(map[Bucket]Handle),
		degraded: make(map[Bucket]bool),
	}

	m.wg.Add(1)
	go m.run()

	m.openAll()
	return m
}

// SetViewer swaps the identity context. Every query shape depends on it, so
// all buckets are closed and reopened against the new viewer.
func (m *Manager) SetViewer(viewer Viewer) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	for b, h := range m.handles {
		h.Close()
		delete(m.handles, b)
		m.store.DropBucket(b)
	}
	m.viewer = viewer
	m.degraded = make(map[Bucket]bool)
	m.mu.Unlock()

	m.openAll()
}

// Resubscribe reopens one degraded bucket.
func (m *Manager) Resubscribe(b Bucket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	if h, ok := m.handles[b]; ok {
		h.Close()
		delete(m.handles, b)
	}
	return m.openLocked(b)
}

// Degraded reports whether the bucket's subscription is down and its rows in
// the store are stale.
func (m *Manager) Degraded(b Bucket) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded[b]
}

// Close tears down every subscription. When it returns, no further snapshot
// touches the store and no callback fires, even if a producer still holds a
// reference to a live channel.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for b, h := range m.handles {
		h.Close()
		delete(m.handles, b)
	}
	m.mu.Unlock()

	close(m.done)
	m.wg.Wait()
}

// openAll subscribes every bucket of the current viewer. A failed bucket
// stays degraded while the rest open; its failure is queued onto the apply
// goroutine so onError keeps its serialization guarantee.
func (m *Manager) openAll() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	var failed []event
	for _, b := range m.viewer.buckets() {
		if err := m.openLocked(b); err != nil {
			failed = append(failed, event{bucket: b, gen: m.gen[b], err: err})
		}
	}
	m.mu.Unlock()

	for _, ev := range failed {
		m.send(ev)
	}
}

// openLocked subscribes one bucket. Caller holds m.mu.
func (m *Manager) openLocked(b Bucket) error {
	query, err := m.viewer.query(b)
	if err != nil {
		m.gen[b]++
		m.degraded[b] = true
		return &SubscriptionError{Bucket: b, Message: "bad query", Err: err}
	}

	handle, err := m.source.Subscribe(query)
	if err != nil {
		m.gen[b]++
		m.degraded[b] = true
		return &SubscriptionError{Bucket: b, Message: "subscribe failed", Err: err}
	}

	m.gen[b]++
	gen := m.gen[b]
	m.handles[b] = handle
	m.degraded[b] = false

	m.wg.Add(1)
	go m.forward(b, gen, handle)
	return nil
}

// forward pumps one handle's snapshots onto the shared apply queue.
func (m *Manager) forward(b Bucket, gen uint64, handle Handle) {
	defer m.wg.Done()
	for snap := range handle.Snapshots() {
		if !m.send(event{bucket: b, gen: gen, snap: snap}) {
			return
		}
	}
	if err := handle.Err(); err != nil {
		m.send(event{bucket: b, gen: gen, err: err})
	}
}

// send enqueues unless the manager is shutting down.
func (m *Manager) send(ev event) bool {
	select {
	case <-m.done:
		return false
	case m.events <- ev:
		return true
	}
}

// run is the single apply goroutine: every store write and every callback
// happens here, one at a time.
func (m *Manager) run() {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case ev := <-m.events:
			if ev.err != nil {
				m.handleStreamError(ev)
				continue
			}
			m.apply(ev)
		}
	}
}

func (m *Manager) apply(ev event) {
	m.mu.Lock()
	if m.closed || m.gen[ev.bucket] != ev.gen {
		// A snapshot from a torn-down or replaced subscription. Dropping it
		// keeps stale handles from writing into the store.
		m.mu.Unlock()
		return
	}
	viewer := m.viewer
	m.mu.Unlock()

	docs := make([]eventstore.Document, 0, len(ev.snap.Docs))
	for _, doc := range ev.snap.Docs {
		if viewer.Relevant(ev.bucket, doc) {
			docs = append(docs, doc)
		} else {
			logger.Debug().
				Str("bucket", string(ev.bucket)).
				Str("id", doc.ID()).
				Msg("dropped irrelevant document")
		}
	}

	m.store.ApplyBucket(ev.bucket, docs)
	if m.onChange != nil {
		m.onChange(ev.bucket)
	}
}

func (m *Manager) handleStreamError(ev event) {
	m.mu.Lock()
	if m.closed || m.gen[ev.bucket] != ev.gen {
		m.mu.Unlock()
		return
	}
	delete(m.handles, ev.bucket)
	m.degraded[ev.bucket] = true
	m.mu.Unlock()

	subErr, ok := ev.err.(*SubscriptionError)
	if !ok {
		subErr = &SubscriptionError{Bucket: ev.bucket, Message: "stream lost", Err: ev.err}
	} else if subErr.Bucket == "" {
		subErr.Bucket = ev.bucket
	}
	logger.Warn().Err(ev.err).Str("bucket", string(ev.bucket)).Msg("subscription degraded")
	if m.onError != nil {
		m.onError(subErr)
	}
}
