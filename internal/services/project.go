package services

import (
	"errors"

	"github.com/devcollab/platform/backend/internal/eventstore"
	"github.com/devcollab/platform/backend/internal/models"
	"github.com/devcollab/platform/backend/pkg/response"
	"gorm.io/gorm"
)

type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description"`
	TechStack   string `json:"techStack"`
	RepoURL     string `json:"repoUrl"`
}

type UpdateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TechStack   string `json:"techStack"`
	RepoURL     string `json:"repoUrl"`
}

type ProjectListRequest struct {
	Page      int    `form:"page" binding:"min=1"`
	PageSize  int    `form:"page_size" binding:"min=1,max=100"`
	Name      string `form:"name"`
	TechStack string `form:"tech_stack"`
}

type ProjectListResponse struct {
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Items    []models.Project `json:"items"`
}

// List returns paginated projects, optionally filtered by name or tech stack
func (s *ProjectService) List(req *ProjectListRequest) (*ProjectListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 10
	}

	var projects []models.Project
	var total int64

	query := s.db.Model(&models.Project{})

	if req.Name != "" {
		query = query.Where("name LIKE ?", "%"+req.Name+"%")
	}
	if req.TechStack != "" {
		query = query.Where("tech_stack LIKE ?", "%"+req.TechStack+"%")
	}

	query.Count(&total)

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}

	return &ProjectListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    projects,
	}, nil
}

// GetByID returns a project by ID
func (s *ProjectService) GetByID(id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("project not found")
		}
		return nil, err
	}
	return &project, nil
}

// Create creates a project with the caller as creator. The creator is also
// recorded as a member so membership checks stay a single query.
func (s *ProjectService) Create(req *CreateProjectRequest, creatorID uint) (*models.Project, error) {
	project := models.Project{
		Name:        req.Name,
		Description: req.Description,
		TechStack:   req.TechStack,
		CreatorID:   creatorID,
		RepoURL:     req.RepoURL,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		member := models.ProjectMember{ProjectID: project.ID, UserID: creatorID}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}

	return &project, nil
}

// Update edits project fields. Only the creator may update, and the creator
// itself never changes.
func (s *ProjectService) Update(id, callerID uint, req *UpdateProjectRequest) (*models.Project, error) {
	project, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if project.CreatorID != callerID {
		return nil, response.NewForbidden("only the project creator can update the project")
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.TechStack != "" {
		updates["tech_stack"] = req.TechStack
	}
	if req.RepoURL != "" {
		updates["repo_url"] = req.RepoURL
	}

	if len(updates) > 0 {
		if err := s.db.Model(project).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	return project, nil
}

// Delete removes a project and everything hanging off it. Creator only.
func (s *ProjectService) Delete(id, callerID uint) error {
	project, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if project.CreatorID != callerID {
		return response.NewForbidden("only the project creator can delete the project")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.JoinRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(project).Error
	})
	if err != nil {
		return err
	}

	// Everything under the project left the read model at once.
	Republish(eventstore.CollectionJoinRequests)
	Republish(eventstore.CollectionTasks)
	Republish(eventstore.CollectionMessages)
	return nil
}

// Members returns the users belonging to a project
func (s *ProjectService) Members(projectID uint) ([]models.User, error) {
	if _, err := s.GetByID(projectID); err != nil {
		return nil, err
	}

	var users []models.User
	err := s.db.
		Joins("JOIN project_members ON project_members.user_id = users.id").
		Where("project_members.project_id = ?", projectID).
		Order("users.username").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// IsMember reports whether the user belongs to the project
func (s *ProjectService) IsMember(projectID, userID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}
