package client

import (
	"sort"
	"sync"

	"github.com/devcollab/platform/backend/internal/eventstore"
)

// entry is one canonical row plus the bookkeeping needed to merge buckets.
type entry struct {
	doc eventstore.Document
	// arrival is a per-store logical clock; higher means seen later.
	arrival uint64
	// buckets still holding this row. When the set empties, the row goes.
	buckets map[Bucket]struct{}
}

// Store is the reconciliation store: the client-local, authoritative-for-
// rendering cache merged from all active subscriptions. Each bucket's slice
// is replaced wholesale on every snapshot; canonical rows are merged across
// buckets by entity id, last writer wins, with the more complete document
// preferred when the shared fields agree.
type Store struct {
	mu      sync.RWMutex
	clock   uint64
	buckets map[Bucket][]eventstore.Document
	// canonical rows per collection, keyed by entity id.
	canonical map[string]map[string]*entry
}

func NewStore() *Store {
	return &Store{
		buckets:   make(map[Bucket][]eventstore.Document),
		canonical: make(map[string]map[string]*entry),
	}
}

// ApplyBucket folds a complete snapshot for one bucket into the store. The
// bucket's previous rows are replaced, never appended to. Applying the same
// snapshot twice is a no-op; applying snapshots for independent buckets in
// either order converges to the same canonical rows.
func (s *Store) ApplyBucket(b Bucket, docs []eventstore.Document) {
	collection := b.collection()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.clock++
	rows := s.canonical[collection]
	if rows == nil {
		rows = make(map[string]*entry)
		s.canonical[collection] = rows
	}

	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		id := doc.ID()
		seen[id] = struct{}{}

		cur, ok := rows[id]
		if !ok {
			rows[id] = &entry{
				doc:     doc,
				arrival: s.clock,
				buckets: map[Bucket]struct{}{b: {}},
			}
			continue
		}

		cur.buckets[b] = struct{}{}
		if supersedes(doc, cur.doc) {
			cur.doc = doc
			cur.arrival = s.clock
		}
	}

	// Rows this bucket used to vouch for but no longer does.
	for _, old := range s.buckets[b] {
		id := old.ID()
		if _, ok := seen[id]; ok {
			continue
		}
		cur, ok := rows[id]
		if !ok {
			continue
		}
		delete(cur.buckets, b)
		if len(cur.buckets) == 0 {
			delete(rows, id)
		}
	}

	s.buckets[b] = docs
}

// DropBucket removes a bucket's contribution entirely, as when its
// subscription closes for good.
func (s *Store) DropBucket(b Bucket) {
	collection := b.collection()

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.canonical[collection]
	for _, old := range s.buckets[b] {
		id := old.ID()
		cur, ok := rows[id]
		if !ok {
			continue
		}
		delete(cur.buckets, b)
		if len(cur.buckets) == 0 {
			delete(rows, id)
		}
	}
	delete(s.buckets, b)
}

// BucketRows returns the bucket's own view in snapshot order.
func (s *Store) BucketRows(b Bucket) []eventstore.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]eventstore.Document(nil), s.buckets[b]...)
}

// Rows returns the canonical rows of a collection, ordered by entity id for
// stable iteration.
func (s *Store) Rows(collection string) []eventstore.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.canonical[collection]
	out := make([]eventstore.Document, 0, len(rows))
	for _, e := range rows {
		out = append(out, e.doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Get returns the canonical row for an entity id, if present.
func (s *Store) Get(collection, id string) (eventstore.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.canonical[collection][id]
	if !ok {
		return nil, false
	}
	return e.doc, true
}

// supersedes decides whether an incoming document replaces the current
// canonical one. Later arrival wins. The exception: when the newcomer agrees
// on every shared field but carries strictly less of the entity, the richer
// document is kept, so a narrow bucket never strips fields a wider one saw.
func supersedes(incoming, current eventstore.Document) bool {
	if len(incoming) >= len(current) {
		return true
	}
	for k, v := range incoming {
		if cv, ok := current[k]; !ok || !sameValue(v, cv) {
			return true
		}
	}
	return false
}

func sameValue(a, b interface{}) bool {
	if a == b {
		return true
	}
	af, aok := asNumber(a)
	bf, bok := asNumber(b)
	return aok && bok && af == bf
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case uint:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
