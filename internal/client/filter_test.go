package client

import (
	"testing"

	"github.com/devcollab/platform/backend/internal/eventstore"
)

func TestViewer_Buckets(t *testing.T) {
	plain := Viewer{UserID: 7}
	if got := plain.buckets(); len(got) != 3 {
		t.Errorf("a viewer without projects gets the three personal buckets, got %v", got)
	}

	owner := Viewer{UserID: 7, OwnedProjectIDs: []uint{3}}
	found := false
	for _, b := range owner.buckets() {
		if b == BucketIncomingRequests {
			found = true
		}
	}
	if !found {
		t.Error("project owners watch incoming requests")
	}

	browsing := Viewer{UserID: 7, ActiveProjectID: 3}
	got := browsing.buckets()
	if len(got) != 5 {
		t.Errorf("an open project adds tasks and messages buckets, got %v", got)
	}
}

func TestViewer_Queries(t *testing.T) {
	v := Viewer{UserID: 7, OwnedProjectIDs: []uint{3, 5}, ActiveProjectID: 3}

	for _, b := range v.buckets() {
		q, err := v.query(b)
		if err != nil {
			t.Fatalf("query(%s) error = %v", b, err)
		}
		if err := q.Validate(); err != nil {
			t.Errorf("query(%s) is invalid: %v", b, err)
		}
		if q.Collection != b.collection() {
			t.Errorf("query(%s) targets %s, bucket maps to %s", b, q.Collection, b.collection())
		}
	}

	if _, err := v.query(Bucket("bogus")); err == nil {
		t.Error("unknown bucket should error")
	}
}

func TestViewer_Relevant(t *testing.T) {
	v := Viewer{UserID: 7, OwnedProjectIDs: []uint{3}, ActiveProjectID: 3}

	cases := []struct {
		name   string
		bucket Bucket
		doc    eventstore.Document
		want   bool
	}{
		{"incoming pending to owned project", BucketIncomingRequests,
			eventstore.Document{"id": uint(1), "userId": uint(9), "projectId": uint(3), "status": "PENDING"}, true},
		{"incoming to foreign project", BucketIncomingRequests,
			eventstore.Document{"id": uint(2), "userId": uint(9), "projectId": uint(8), "status": "PENDING"}, false},
		{"incoming already decided", BucketIncomingRequests,
			eventstore.Document{"id": uint(3), "userId": uint(9), "projectId": uint(3), "status": "ACCEPTED"}, false},
		{"own request", BucketOwnRequests,
			eventstore.Document{"id": uint(4), "userId": uint(7), "projectId": uint(8), "status": "PENDING"}, true},
		{"someone else's request", BucketOwnRequests,
			eventstore.Document{"id": uint(5), "userId": uint(9), "projectId": uint(8), "status": "PENDING"}, false},
		{"own resolved", BucketResolvedRequests,
			eventstore.Document{"id": uint(6), "userId": uint(7), "projectId": uint(8), "status": "REJECTED"}, true},
		{"own still pending not resolved", BucketResolvedRequests,
			eventstore.Document{"id": uint(7), "userId": uint(7), "projectId": uint(8), "status": "PENDING"}, false},
		{"task assigned to me", BucketAssignedTasks,
			eventstore.Document{"id": uint(8), "projectId": uint(3), "assignedTo": uint(7), "status": "REQUESTED"}, true},
		{"task assigned to someone else", BucketAssignedTasks,
			eventstore.Document{"id": uint(9), "projectId": uint(3), "assignedTo": uint(9), "status": "REQUESTED"}, false},
		{"message in open project", BucketProjectMessages,
			eventstore.Document{"id": uint(10), "projectId": uint(3), "senderId": uint(9), "message": "hi"}, true},
		{"message elsewhere", BucketProjectMessages,
			eventstore.Document{"id": uint(11), "projectId": uint(5), "senderId": uint(9), "message": "hi"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := v.Relevant(tc.bucket, tc.doc); got != tc.want {
				t.Errorf("Relevant(%s, %v) = %v, want %v", tc.bucket, tc.doc, got, tc.want)
			}
		})
	}
}

func TestViewer_RelevantHandlesJSONNumbers(t *testing.T) {
	v := Viewer{UserID: 7}

	// Documents that traveled through JSON carry float64 ids.
	doc := eventstore.Document{"id": float64(8), "projectId": float64(3), "assignedTo": float64(7), "status": "REQUESTED"}
	if !v.Relevant(BucketAssignedTasks, doc) {
		t.Error("float64 ids from JSON decoding should still match")
	}
}
