package services

import (
	"sort"
	"testing"
	"time"

	"github.com/devcollab/platform/backend/internal/eventstore"
	"github.com/devcollab/platform/backend/internal/models"
)

func TestDBLoader_JoinRequests(t *testing.T) {
	db := setupTestDB(t)
	creator := createTestUser(t, db, "creator")
	requester := createTestUser(t, db, "requester")
	project := createTestProject(t, db, "Sync Engine", creator.ID)

	request, err := NewJoinRequestService(db).Send(requester.ID, project.ID)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	docs, err := NewDBLoader(db).Load(eventstore.CollectionJoinRequests)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}

	doc := docs[0]
	if doc["id"] != request.ID || doc["userId"] != requester.ID || doc["projectId"] != project.ID {
		t.Errorf("document fields wrong: %v", doc)
	}
	if doc["status"] != "PENDING" {
		t.Errorf("status = %v, expected PENDING", doc["status"])
	}
}

func TestDBLoader_TaskReferenceOmittedWhenEmpty(t *testing.T) {
	db := setupTestDB(t)
	creator := createTestUser(t, db, "creator")
	assignee := createTestUser(t, db, "assignee")
	project := createTestProject(t, db, "Sync Engine", creator.ID)
	addTestMember(t, db, project.ID, assignee.ID)

	svc := NewTaskService(db)
	task, err := svc.Assign(&AssignTaskRequest{
		ProjectID: project.ID, AssignedTo: assignee.ID, Details: "x",
	}, creator.ID)
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}

	loader := NewDBLoader(db)
	docs, _ := loader.Load(eventstore.CollectionTasks)
	if _, ok := docs[0]["pullRequestUrl"]; ok {
		t.Error("empty completion reference should not appear in the document")
	}

	svc.Transition(task.ID, assignee.ID, &TaskStatusRequest{Status: "PENDING"})
	svc.Transition(task.ID, assignee.ID, &TaskStatusRequest{
		Status: "REQUEST_COMPLETE", PullRequestURL: "https://example.com/pr/7",
	})

	docs, _ = loader.Load(eventstore.CollectionTasks)
	if docs[0]["pullRequestUrl"] != "https://example.com/pr/7" {
		t.Errorf("completion reference missing from document: %v", docs[0])
	}
}

func TestDBLoader_MessageTimestampsSortLexicographically(t *testing.T) {
	db := setupTestDB(t)
	creator := createTestUser(t, db, "creator")
	project := createTestProject(t, db, "Sync Engine", creator.ID)

	// Insert out of order with explicit times to pin the ordering.
	times := []time.Time{
		time.Date(2026, 8, 30, 9, 5, 0, 500, time.UTC),
		time.Date(2026, 8, 30, 9, 5, 0, 0, time.UTC),
		time.Date(2026, 8, 29, 23, 0, 0, 0, time.UTC),
	}
	for i, ts := range times {
		msg := models.Message{ProjectID: project.ID, SenderID: creator.ID, Body: "m", CreatedAt: ts}
		if err := db.Create(&msg).Error; err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	docs, err := NewDBLoader(db).Load(eventstore.CollectionMessages)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	stamps := make([]string, len(docs))
	for i, doc := range docs {
		stamps[i] = doc["timestamp"].(string)
	}

	sorted := append([]string(nil), stamps...)
	sort.Strings(sorted)

	parsed := make([]time.Time, len(sorted))
	for i, s := range sorted {
		ts, err := ParseTimestamp(s)
		if err != nil {
			t.Fatalf("timestamp %q does not round-trip: %v", s, err)
		}
		parsed[i] = ts
	}
	for i := 1; i < len(parsed); i++ {
		if parsed[i].Before(parsed[i-1]) {
			t.Errorf("lexicographic order diverges from chronological at %d: %v", i, sorted)
		}
	}
}

func TestDBLoader_UnknownCollection(t *testing.T) {
	db := setupTestDB(t)
	if _, err := NewDBLoader(db).Load("Users"); err == nil {
		t.Error("unknown collection should error")
	}
}
