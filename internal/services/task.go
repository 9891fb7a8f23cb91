package services

import (
	"errors"

	"github.com/devcollab/platform/backend/internal/eventstore"
	"github.com/devcollab/platform/backend/internal/models"
	"github.com/devcollab/platform/backend/internal/workflow"
	"github.com/devcollab/platform/backend/pkg/response"
	"gorm.io/gorm"
)

type TaskService struct {
	db       *gorm.DB
	projects *ProjectService
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db, projects: NewProjectService(db)}
}

type AssignTaskRequest struct {
	ProjectID  uint   `json:"projectId" binding:"required"`
	AssignedTo uint   `json:"assignedTo" binding:"required"`
	Details    string `json:"details" binding:"required"`
}

// Assign creates a REQUESTED task. Only the project creator assigns, and only
// to a current member.
func (s *TaskService) Assign(req *AssignTaskRequest, callerID uint) (*models.Task, error) {
	project, err := s.projects.GetByID(req.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.CreatorID != callerID {
		return nil, response.NewForbidden("only the project creator can assign tasks")
	}

	isMember, err := s.projects.IsMember(req.ProjectID, req.AssignedTo)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, response.NewBadRequest("assignee is not a member of the project")
	}

	task := models.Task{
		ProjectID:  req.ProjectID,
		AssignedTo: req.AssignedTo,
		AssignedBy: callerID,
		Details:    req.Details,
		Status:     string(workflow.TaskRequested),
	}
	if err := s.db.Create(&task).Error; err != nil {
		return nil, err
	}

	Republish(eventstore.CollectionTasks)
	return &task, nil
}

type TaskStatusRequest struct {
	Status         string `json:"status" binding:"required"`
	PullRequestURL string `json:"pullRequestUrl"`
}

// Transition moves a task through its lifecycle. The caller's role against
// the task decides which moves are open; everything else is a conflict.
func (s *TaskService) Transition(taskID, callerID uint, req *TaskStatusRequest) (*models.Task, error) {
	if !workflow.ValidTaskStatus(req.Status) {
		return nil, response.NewBadRequest("unknown task status")
	}

	task, err := s.getByID(taskID)
	if err != nil {
		return nil, err
	}

	role := s.roleOn(task, callerID)
	from := workflow.TaskStatus(task.Status)
	to := workflow.TaskStatus(req.Status)

	ref := req.PullRequestURL
	if ref == "" {
		ref = task.PullRequestURL
	}

	if err := workflow.CheckTaskTransition(role, from, to, ref); err != nil {
		if role == workflow.RoleNone {
			return nil, response.NewForbidden("not allowed to act on this task")
		}
		return nil, response.NewConflict(err.Error())
	}

	updates := map[string]interface{}{"status": string(to)}
	if req.PullRequestURL != "" {
		updates["pull_request_url"] = req.PullRequestURL
	}
	if err := s.db.Model(task).Updates(updates).Error; err != nil {
		return nil, err
	}

	Republish(eventstore.CollectionTasks)
	return task, nil
}

// Delete cancels a task. Only the creator may cancel, and only while the
// assignee is working on it.
func (s *TaskService) Delete(taskID, callerID uint) error {
	task, err := s.getByID(taskID)
	if err != nil {
		return err
	}

	role := s.roleOn(task, callerID)
	if err := workflow.CheckTaskDelete(role, workflow.TaskStatus(task.Status)); err != nil {
		if role == workflow.RoleNone {
			return response.NewForbidden("not allowed to act on this task")
		}
		return response.NewConflict(err.Error())
	}

	if err := s.db.Delete(task).Error; err != nil {
		return err
	}

	Republish(eventstore.CollectionTasks)
	return nil
}

// ListAssigned returns tasks assigned to the user.
func (s *TaskService) ListAssigned(userID uint) ([]models.Task, error) {
	var tasks []models.Task
	if err := s.db.Where("assigned_to = ?", userID).Order("id").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListForProject returns all tasks of a project. Members only.
func (s *TaskService) ListForProject(projectID, callerID uint) ([]models.Task, error) {
	isMember, err := s.projects.IsMember(projectID, callerID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, response.NewForbidden("not a member of this project")
	}

	var tasks []models.Task
	if err := s.db.Where("project_id = ?", projectID).Order("id").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *TaskService) getByID(id uint) (*models.Task, error) {
	var task models.Task
	if err := s.db.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("task not found")
		}
		return nil, err
	}
	return &task, nil
}

// roleOn derives the caller's role against a task. AssignedBy is the project
// creator, so no project lookup is needed.
func (s *TaskService) roleOn(task *models.Task, callerID uint) workflow.Role {
	switch callerID {
	case task.AssignedBy:
		return workflow.RoleCreator
	case task.AssignedTo:
		return workflow.RoleAssignee
	}
	return workflow.RoleNone
}
