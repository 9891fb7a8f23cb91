package services

import (
	"fmt"
	"time"

	"github.com/devcollab/platform/backend/internal/eventstore"
	"github.com/devcollab/platform/backend/internal/models"
	"gorm.io/gorm"
)

// timestampLayout keeps event timestamps lexicographically sortable.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// DBLoader feeds the event store hub from the authoritative database, so
// every snapshot reflects committed state and nothing else.
type DBLoader struct {
	db *gorm.DB
}

func NewDBLoader(db *gorm.DB) *DBLoader {
	return &DBLoader{db: db}
}

func (l *DBLoader) Load(collection string) ([]eventstore.Document, error) {
	switch collection {
	case eventstore.CollectionJoinRequests:
		var requests []models.JoinRequest
		if err := l.db.Order("id").Find(&requests).Error; err != nil {
			return nil, err
		}
		docs := make([]eventstore.Document, 0, len(requests))
		for _, r := range requests {
			docs = append(docs, eventstore.Document{
				"id":        r.ID,
				"userId":    r.UserID,
				"projectId": r.ProjectID,
				"status":    r.Status,
			})
		}
		return docs, nil

	case eventstore.CollectionTasks:
		var tasks []models.Task
		if err := l.db.Order("id").Find(&tasks).Error; err != nil {
			return nil, err
		}
		docs := make([]eventstore.Document, 0, len(tasks))
		for _, t := range tasks {
			doc := eventstore.Document{
				"id":         t.ID,
				"projectId":  t.ProjectID,
				"assignedTo": t.AssignedTo,
				"assignedBy": t.AssignedBy,
				"details":    t.Details,
				"status":     t.Status,
			}
			if t.PullRequestURL != "" {
				doc["pullRequestUrl"] = t.PullRequestURL
			}
			docs = append(docs, doc)
		}
		return docs, nil

	case eventstore.CollectionMessages:
		var messages []models.Message
		if err := l.db.Order("id").Find(&messages).Error; err != nil {
			return nil, err
		}
		docs := make([]eventstore.Document, 0, len(messages))
		for _, m := range messages {
			docs = append(docs, eventstore.Document{
				"id":        m.ID,
				"projectId": m.ProjectID,
				"senderId":  m.SenderID,
				"message":   m.Body,
				"timestamp": m.CreatedAt.UTC().Format(timestampLayout),
			})
		}
		return docs, nil
	}

	return nil, fmt.Errorf("unknown collection %q", collection)
}

// ParseTimestamp parses a document timestamp back into a time.Time.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(timestampLayout, s)
}
