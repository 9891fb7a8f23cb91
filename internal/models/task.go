package models

import (
	"time"
)

// Task is a unit of work assigned by a project creator to a member.
// AssignedBy is always the project creator. Rows are hard-deleted when the
// creator cancels a task or a finished task is cleared.
type Task struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ProjectID      uint      `gorm:"not null;index" json:"projectId"`
	Project        *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	AssignedTo     uint      `gorm:"not null;index" json:"assignedTo"`
	AssignedBy     uint      `gorm:"not null" json:"assignedBy"`
	Details        string    `gorm:"type:text;not null" json:"details"`
	Status         string    `gorm:"size:30;not null;default:REQUESTED" json:"status"` // REQUESTED, PENDING, REQUEST_COMPLETE, COMPLETED, REJECTED
	PullRequestURL string    `gorm:"size:500" json:"pullRequestUrl,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Task) TableName() string { return "tasks" }
