package models

import (
	"time"

	"gorm.io/gorm"
)

// Project is a collaboration project. CreatorID never changes after creation.
type Project struct {
	ID          uint           `gorm:"primaryKey" json:"projectId"`
	Name        string         `gorm:"size:200;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	TechStack   string         `gorm:"size:1000" json:"techStack"` // comma list
	CreatorID   uint           `gorm:"not null;index" json:"creatorId"`
	RepoURL     string         `gorm:"size:500" json:"repoUrl"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Project) TableName() string { return "projects" }
