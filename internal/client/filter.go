package client

import (
	"encoding/json"
	"fmt"

	"github.com/devcollab/platform/backend/internal/eventstore"
)

// Bucket names one logical subscription view. Multiple buckets may watch the
// same collection from different angles; the store keeps their rows apart and
// merges them into one canonical row per entity.
type Bucket string

const (
	// Join requests against projects the viewer created, still pending.
	BucketIncomingRequests Bucket = "incoming-requests"
	// The viewer's own requests, any status.
	BucketOwnRequests Bucket = "own-requests"
	// The viewer's own requests that have been decided and await acknowledgment.
	BucketResolvedRequests Bucket = "resolved-requests"
	// Tasks assigned to the viewer.
	BucketAssignedTasks Bucket = "assigned-tasks"
	// All tasks of the currently open project.
	BucketProjectTasks Bucket = "project-tasks"
	// Chat messages of the currently open project.
	BucketProjectMessages Bucket = "project-messages"
)

// Viewer is the identity context subscriptions and relevance checks run
// against. It is passed in explicitly; nothing here reads ambient globals.
// A changed viewer (new owned project, different open project) requires
// resubscription, because the query shapes themselves change.
type Viewer struct {
	UserID          uint
	OwnedProjectIDs []uint
	// ActiveProjectID scopes the project-tasks and project-messages buckets.
	// Zero means no project view is open and those buckets stay closed.
	ActiveProjectID uint
}

// buckets returns the buckets this viewer should hold open.
func (v Viewer) buckets() []Bucket {
	out := []Bucket{BucketOwnRequests, BucketResolvedRequests, BucketAssignedTasks}
	if len(v.OwnedProjectIDs) > 0 {
		out = append(out, BucketIncomingRequests)
	}
	if v.ActiveProjectID != 0 {
		out = append(out, BucketProjectTasks, BucketProjectMessages)
	}
	return out
}

// query builds the declarative subscription for a bucket.
func (v Viewer) query(b Bucket) (eventstore.Query, error) {
	switch b {
	case BucketIncomingRequests:
		return eventstore.Query{
			Collection: eventstore.CollectionJoinRequests,
			Filters: []eventstore.Filter{
				{Field: "projectId", Op: eventstore.OpIn, Value: uintList(v.OwnedProjectIDs)},
				{Field: "status", Op: eventstore.OpEqual, Value: "PENDING"},
			},
		}, nil
	case BucketOwnRequests:
		return eventstore.Query{
			Collection: eventstore.CollectionJoinRequests,
			Filters: []eventstore.Filter{
				{Field: "userId", Op: eventstore.OpEqual, Value: v.UserID},
			},
		}, nil
	case BucketResolvedRequests:
		return eventstore.Query{
			Collection: eventstore.CollectionJoinRequests,
			Filters: []eventstore.Filter{
				{Field: "userId", Op: eventstore.OpEqual, Value: v.UserID},
				{Field: "status", Op: eventstore.OpIn, Value: []interface{}{"ACCEPTED", "REJECTED"}},
			},
		}, nil
	case BucketAssignedTasks:
		return eventstore.Query{
			Collection: eventstore.CollectionTasks,
			Filters: []eventstore.Filter{
				{Field: "assignedTo", Op: eventstore.OpEqual, Value: v.UserID},
			},
		}, nil
	case BucketProjectTasks:
		return eventstore.Query{
			Collection: eventstore.CollectionTasks,
			Filters: []eventstore.Filter{
				{Field: "projectId", Op: eventstore.OpEqual, Value: v.ActiveProjectID},
			},
		}, nil
	case BucketProjectMessages:
		return eventstore.Query{
			Collection: eventstore.CollectionMessages,
			Filters: []eventstore.Filter{
				{Field: "projectId", Op: eventstore.OpEqual, Value: v.ActiveProjectID},
			},
			OrderBy: &eventstore.OrderBy{Field: "timestamp"},
		}, nil
	}
	return eventstore.Query{}, fmt.Errorf("unknown bucket %q", b)
}

// collection returns the collection a bucket watches.
func (b Bucket) collection() string {
	switch b {
	case BucketIncomingRequests, BucketOwnRequests, BucketResolvedRequests:
		return eventstore.CollectionJoinRequests
	case BucketAssignedTasks, BucketProjectTasks:
		return eventstore.CollectionTasks
	case BucketProjectMessages:
		return eventstore.CollectionMessages
	}
	return ""
}

// Relevant re-checks a document against the bucket's own predicate. The
// server already filtered; this is defense in depth against a misrouted or
// stale document, never the primary filter.
func (v Viewer) Relevant(b Bucket, doc eventstore.Document) bool {
	switch b {
	case BucketIncomingRequests:
		return containsID(v.OwnedProjectIDs, docID(doc, "projectId")) &&
			doc["status"] == "PENDING"
	case BucketOwnRequests:
		return docID(doc, "userId") == v.UserID
	case BucketResolvedRequests:
		return docID(doc, "userId") == v.UserID &&
			(doc["status"] == "ACCEPTED" || doc["status"] == "REJECTED")
	case BucketAssignedTasks:
		return docID(doc, "assignedTo") == v.UserID
	case BucketProjectTasks, BucketProjectMessages:
		return docID(doc, "projectId") == v.ActiveProjectID
	}
	return false
}

// docID reads a numeric id field regardless of whether the document came
// from JSON (float64) or straight from the loader (uint).
func docID(doc eventstore.Document, field string) uint {
	switch n := doc[field].(type) {
	case uint:
		return n
	case int:
		return uint(n)
	case int64:
		return uint(n)
	case float64:
		return uint(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return uint(i)
		}
	}
	return 0
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func uintList(ids []uint) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
