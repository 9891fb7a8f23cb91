// Package eventstore implements the real-time side of the platform: a
// subscription hub over a handful of document collections. Subscribers
// register a declarative query and receive a complete result set, never a
// diff, immediately and again after every publish touching the collection.
// The hub holds no authoritative state; documents are loaded from the
// persistent read model on each evaluation.
package eventstore

import (
	"fmt"
	"sort"
)

const (
	CollectionJoinRequests = "ProjectJoinRequests"
	CollectionTasks        = "Tasks"
	CollectionMessages     = "Messages"
)

// MaxInValues bounds the id list accepted by an "in" filter.
const MaxInValues = 30

// Document is a schemaless event-store record. Field names are the wire
// names (camelCase), values are JSON-compatible scalars.
type Document map[string]interface{}

// ID returns the document's id field as a canonical string.
func (d Document) ID() string {
	return fmt.Sprint(d["id"])
}

// Op is a filter operator.
type Op string

const (
	OpEqual Op = "=="
	OpIn    Op = "in"
)

// Filter constrains one document field. Filters on a query combine by
// logical AND.
type Filter struct {
	Field string      `json:"field"`
	Op    Op          `json:"op"`
	Value interface{} `json:"value"`
}

// OrderBy sorts a result set by one field.
type OrderBy struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending,omitempty"`
}

// Query is a declarative subscription predicate over one collection.
type Query struct {
	Collection string   `json:"collection"`
	Filters    []Filter `json:"filters,omitempty"`
	OrderBy    *OrderBy `json:"orderBy,omitempty"`
}

// Validate rejects malformed queries before a subscription is registered.
func (q Query) Validate() error {
	switch q.Collection {
	case CollectionJoinRequests, CollectionTasks, CollectionMessages:
	default:
		return fmt.Errorf("unknown collection %q", q.Collection)
	}

	for _, f := range q.Filters {
		if f.Field == "" {
			return fmt.Errorf("filter field must not be empty")
		}
		switch f.Op {
		case OpEqual:
		case OpIn:
			values, ok := asSlice(f.Value)
			if !ok {
				return fmt.Errorf("filter %q: in operator requires a list value", f.Field)
			}
			if len(values) == 0 {
				return fmt.Errorf("filter %q: in list must not be empty", f.Field)
			}
			if len(values) > MaxInValues {
				return fmt.Errorf("filter %q: in list exceeds %d values", f.Field, MaxInValues)
			}
		default:
			return fmt.Errorf("filter %q: unsupported operator %q", f.Field, f.Op)
		}
	}
	return nil
}

// Match reports whether doc satisfies every filter of the query.
func (q Query) Match(doc Document) bool {
	for _, f := range q.Filters {
		v, ok := doc[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case OpEqual:
			if !equalValues(v, f.Value) {
				return false
			}
		case OpIn:
			values, ok := asSlice(f.Value)
			if !ok {
				return false
			}
			found := false
			for _, candidate := range values {
				if equalValues(v, candidate) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Apply filters and orders docs into the query's result set.
func (q Query) Apply(docs []Document) []Document {
	result := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if q.Match(doc) {
			result = append(result, doc)
		}
	}

	if q.OrderBy != nil {
		field, desc := q.OrderBy.Field, q.OrderBy.Descending
		sort.SliceStable(result, func(i, j int) bool {
			less := lessValues(result[i][field], result[j][field])
			if desc {
				return lessValues(result[j][field], result[i][field])
			}
			return less
		})
	}
	return result
}

// equalValues compares two JSON-ish scalars, coercing numeric types so that
// a uint loaded from the database matches a float64 decoded from JSON.
func equalValues(a, b interface{}) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func lessValues(a, b interface{}) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af < bf
		}
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func asSlice(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case []interface{}:
		return s, true
	case []uint:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case []int:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case []float64:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case []string:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	}
	return nil, false
}
