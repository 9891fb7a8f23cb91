package models

import (
	"time"
)

// JoinRequest is a user's request to join a project. Rows are hard-deleted:
// a request withdrawn by the requester, acknowledged after a decision, or
// dismissed by the creator disappears entirely. The composite unique index
// guarantees at most one live request per (user, project) pair, which covers
// the at-most-one-PENDING invariant.
type JoinRequest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_request_user_project;not null" json:"userId"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ProjectID uint      `gorm:"uniqueIndex:idx_request_user_project;not null" json:"projectId"`
	Project   *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Status    string    `gorm:"size:20;not null;default:PENDING" json:"status"` // PENDING, ACCEPTED, REJECTED
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (JoinRequest) TableName() string { return "join_requests" }
