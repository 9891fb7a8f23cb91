package eventstore

import (
	"sync"
	"testing"
	"time"
)

// memLoader is an in-memory Loader for tests.
type memLoader struct {
	mu   sync.Mutex
	docs map[string][]Document
}

func newMemLoader() *memLoader {
	return &memLoader{docs: make(map[string][]Document)}
}

func (l *memLoader) Load(collection string) ([]Document, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Document(nil), l.docs[collection]...), nil
}

func (l *memLoader) set(collection string, docs ...Document) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.docs[collection] = docs
}

func recvSnapshot(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription channel closed unexpectedly")
		}
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot{}
}

func TestHub_InitialSnapshot(t *testing.T) {
	loader := newMemLoader()
	loader.set(CollectionTasks,
		Document{"id": uint(1), "projectId": uint(3), "status": "REQUESTED"},
		Document{"id": uint(2), "projectId": uint(4), "status": "PENDING"},
	)
	hub := NewHub(loader)

	sub, err := hub.Subscribe(Query{
		Collection: CollectionTasks,
		Filters:    []Filter{{Field: "projectId", Op: OpEqual, Value: 3}},
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	snap := recvSnapshot(t, sub)
	if len(snap.Docs) != 1 || snap.Docs[0].ID() != "1" {
		t.Errorf("initial snapshot should hold only project 3 tasks, got %v", snap.Docs)
	}
	if snap.SubscriptionID != sub.ID {
		t.Errorf("snapshot carries wrong subscription id")
	}
}

func TestHub_PublishReplacesResultSet(t *testing.T) {
	loader := newMemLoader()
	loader.set(CollectionJoinRequests,
		Document{"id": uint(1), "userId": uint(7), "projectId": uint(3), "status": "PENDING"},
	)
	hub := NewHub(loader)

	sub, err := hub.Subscribe(Query{
		Collection: CollectionJoinRequests,
		Filters:    []Filter{{Field: "status", Op: OpEqual, Value: "PENDING"}},
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	first := recvSnapshot(t, sub)
	if len(first.Docs) != 1 {
		t.Fatalf("expected 1 doc in initial snapshot, got %d", len(first.Docs))
	}

	// The pending request is accepted: it leaves the PENDING result set.
	loader.set(CollectionJoinRequests,
		Document{"id": uint(1), "userId": uint(7), "projectId": uint(3), "status": "ACCEPTED"},
	)
	hub.Publish(CollectionJoinRequests)

	second := recvSnapshot(t, sub)
	if len(second.Docs) != 0 {
		t.Errorf("snapshot must be a complete result set: expected empty, got %v", second.Docs)
	}
}

func TestHub_PublishOtherCollectionIsSilent(t *testing.T) {
	loader := newMemLoader()
	hub := NewHub(loader)

	sub, _ := hub.Subscribe(Query{Collection: CollectionMessages})
	defer sub.Close()
	recvSnapshot(t, sub) // initial

	hub.Publish(CollectionTasks)

	select {
	case snap := <-sub.C:
		t.Errorf("message subscription should not hear task publishes, got %v", snap)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_CloseStopsDelivery(t *testing.T) {
	loader := newMemLoader()
	hub := NewHub(loader)

	sub, _ := hub.Subscribe(Query{Collection: CollectionTasks})
	recvSnapshot(t, sub)

	sub.Close()
	hub.Publish(CollectionTasks)

	if _, ok := <-sub.C; ok {
		t.Error("channel should be closed after Close")
	}
	if hub.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.SubscriberCount())
	}

	// Closing twice is a no-op.
	sub.Close()
}

func TestHub_SlowConsumerGetsLatest(t *testing.T) {
	loader := newMemLoader()
	hub := NewHub(loader)

	sub, _ := hub.Subscribe(Query{Collection: CollectionTasks})
	defer sub.Close()

	// Never drain; flood well past the buffer.
	for i := 0; i < 100; i++ {
		loader.set(CollectionTasks, Document{"id": uint(i)})
		hub.Publish(CollectionTasks)
	}

	// Drain everything currently buffered; the last snapshot must be the
	// newest state.
	var last Snapshot
	for {
		select {
		case snap := <-sub.C:
			last = snap
			continue
		case <-time.After(50 * time.Millisecond):
		}
		break
	}

	if len(last.Docs) != 1 || last.Docs[0].ID() != "99" {
		t.Errorf("expected latest snapshot to survive backpressure, got %v", last.Docs)
	}
}

// gatedLoader lets a test hold one Load open after it has read the documents,
// simulating a publish that read the old state just before a newer commit.
type gatedLoader struct {
	memLoader
	gateMu sync.Mutex
	gate   chan struct{}
}

func (l *gatedLoader) holdNextLoad() chan struct{} {
	l.gateMu.Lock()
	defer l.gateMu.Unlock()
	l.gate = make(chan struct{})
	return l.gate
}

func (l *gatedLoader) Load(collection string) ([]Document, error) {
	docs, err := l.memLoader.Load(collection)

	l.gateMu.Lock()
	gate := l.gate
	l.gate = nil
	l.gateMu.Unlock()

	if gate != nil {
		<-gate
	}
	return docs, err
}

func TestHub_ConcurrentPublishesDeliverInCommitOrder(t *testing.T) {
	loader := &gatedLoader{memLoader: memLoader{docs: make(map[string][]Document)}}
	loader.set(CollectionTasks, Document{"id": uint(1), "status": "REQUESTED"})
	hub := NewHub(loader)

	sub, err := hub.Subscribe(Query{Collection: CollectionTasks})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()
	recvSnapshot(t, sub) // initial

	// The first publish reads the old state and then stalls before
	// delivering; a newer mutation commits and publishes meanwhile.
	gate := loader.holdNextLoad()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		hub.Publish(CollectionTasks)
	}()
	go func() {
		defer wg.Done()
		loader.set(CollectionTasks, Document{"id": uint(1), "status": "PENDING"})
		hub.Publish(CollectionTasks)
	}()

	// Let the second publish line up behind the first, then release it.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	var last Snapshot
	for {
		select {
		case snap := <-sub.C:
			last = snap
			continue
		default:
		}
		break
	}

	if len(last.Docs) != 1 || last.Docs[0]["status"] != "PENDING" {
		t.Errorf("the last delivered snapshot must carry the newest commit, got %v", last.Docs)
	}
}

func TestHub_IndependentSubscriptions(t *testing.T) {
	loader := newMemLoader()
	loader.set(CollectionJoinRequests,
		Document{"id": uint(1), "userId": uint(7), "projectId": uint(3), "status": "PENDING"},
		Document{"id": uint(2), "userId": uint(9), "projectId": uint(5), "status": "PENDING"},
	)
	hub := NewHub(loader)

	own, _ := hub.Subscribe(Query{
		Collection: CollectionJoinRequests,
		Filters:    []Filter{{Field: "userId", Op: OpEqual, Value: 7}},
	})
	defer own.Close()
	incoming, _ := hub.Subscribe(Query{
		Collection: CollectionJoinRequests,
		Filters:    []Filter{{Field: "projectId", Op: OpIn, Value: []uint{5}}},
	})
	defer incoming.Close()

	ownSnap := recvSnapshot(t, own)
	incomingSnap := recvSnapshot(t, incoming)

	if len(ownSnap.Docs) != 1 || ownSnap.Docs[0].ID() != "1" {
		t.Errorf("own-requests view wrong: %v", ownSnap.Docs)
	}
	if len(incomingSnap.Docs) != 1 || incomingSnap.Docs[0].ID() != "2" {
		t.Errorf("incoming-requests view wrong: %v", incomingSnap.Docs)
	}
}
