package eventstore

import (
	"testing"
)

func TestQueryValidate(t *testing.T) {
	valid := Query{
		Collection: CollectionTasks,
		Filters: []Filter{
			{Field: "assignedTo", Op: OpEqual, Value: 7},
			{Field: "projectId", Op: OpIn, Value: []uint{1, 2, 3}},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid query rejected: %v", err)
	}

	cases := []struct {
		name string
		q    Query
	}{
		{"unknown collection", Query{Collection: "Users"}},
		{"unsupported op", Query{Collection: CollectionTasks, Filters: []Filter{{Field: "status", Op: ">", Value: 1}}}},
		{"empty in list", Query{Collection: CollectionTasks, Filters: []Filter{{Field: "projectId", Op: OpIn, Value: []uint{}}}}},
		{"non-list in value", Query{Collection: CollectionTasks, Filters: []Filter{{Field: "projectId", Op: OpIn, Value: 3}}}},
		{"empty field", Query{Collection: CollectionTasks, Filters: []Filter{{Field: "", Op: OpEqual, Value: 1}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.q.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestQueryValidate_BoundedInList(t *testing.T) {
	ids := make([]uint, MaxInValues+1)
	q := Query{Collection: CollectionTasks, Filters: []Filter{{Field: "projectId", Op: OpIn, Value: ids}}}
	if err := q.Validate(); err == nil {
		t.Error("oversized in list should be rejected")
	}
}

func TestQueryMatch_Equality(t *testing.T) {
	q := Query{
		Collection: CollectionJoinRequests,
		Filters: []Filter{
			{Field: "userId", Op: OpEqual, Value: float64(7)}, // JSON-decoded number
			{Field: "status", Op: OpEqual, Value: "PENDING"},
		},
	}

	match := Document{"id": uint(1), "userId": uint(7), "projectId": uint(3), "status": "PENDING"}
	if !q.Match(match) {
		t.Error("document should match: numeric coercion across uint/float64")
	}

	wrongUser := Document{"id": uint(2), "userId": uint(8), "status": "PENDING"}
	if q.Match(wrongUser) {
		t.Error("different userId should not match")
	}

	wrongStatus := Document{"id": uint(3), "userId": uint(7), "status": "ACCEPTED"}
	if q.Match(wrongStatus) {
		t.Error("filters must combine by AND")
	}

	missingField := Document{"id": uint(4), "status": "PENDING"}
	if q.Match(missingField) {
		t.Error("document missing a filtered field should not match")
	}
}

func TestQueryMatch_In(t *testing.T) {
	q := Query{
		Collection: CollectionJoinRequests,
		Filters: []Filter{
			{Field: "projectId", Op: OpIn, Value: []interface{}{float64(3), float64(5)}},
		},
	}

	if !q.Match(Document{"id": uint(1), "projectId": uint(5)}) {
		t.Error("projectId 5 should be in {3,5}")
	}
	if q.Match(Document{"id": uint(2), "projectId": uint(4)}) {
		t.Error("projectId 4 should not be in {3,5}")
	}
}

func TestQueryApply_OrderBy(t *testing.T) {
	q := Query{
		Collection: CollectionMessages,
		OrderBy:    &OrderBy{Field: "timestamp"},
	}

	docs := []Document{
		{"id": uint(3), "timestamp": "2026-08-30T12:00:00Z"},
		{"id": uint(1), "timestamp": "2026-08-30T10:00:00Z"},
		{"id": uint(2), "timestamp": "2026-08-30T11:00:00Z"},
	}

	got := q.Apply(docs)
	if len(got) != 3 {
		t.Fatalf("expected 3 docs, got %d", len(got))
	}
	for i, want := range []string{"1", "2", "3"} {
		if got[i].ID() != want {
			t.Errorf("position %d: got id %s, want %s", i, got[i].ID(), want)
		}
	}
}

func TestQueryApply_OrderByDescending(t *testing.T) {
	q := Query{
		Collection: CollectionTasks,
		OrderBy:    &OrderBy{Field: "id", Descending: true},
	}

	docs := []Document{
		{"id": uint(1)},
		{"id": uint(3)},
		{"id": uint(2)},
	}

	got := q.Apply(docs)
	for i, want := range []string{"3", "2", "1"} {
		if got[i].ID() != want {
			t.Errorf("position %d: got id %s, want %s", i, got[i].ID(), want)
		}
	}
}
