package models

import (
	"time"
)

// Message is a project chat message. Append-only: no edits, deletable only by
// its sender, ordered by creation time ascending.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;index" json:"projectId"`
	Project   *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	SenderID  uint      `gorm:"not null;index" json:"senderId"`
	Body      string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `json:"timestamp"`
}

func (Message) TableName() string { return "messages" }
