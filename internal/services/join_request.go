package services

import (
	"errors"

	"github.com/devcollab/platform/backend/internal/eventstore"
	"github.com/devcollab/platform/backend/internal/models"
	"github.com/devcollab/platform/backend/internal/workflow"
	"github.com/devcollab/platform/backend/pkg/response"
	"gorm.io/gorm"
)

type JoinRequestService struct {
	db       *gorm.DB
	projects *ProjectService
}

func NewJoinRequestService(db *gorm.DB) *JoinRequestService {
	return &JoinRequestService{db: db, projects: NewProjectService(db)}
}

// Send creates a PENDING join request from userID to the project. At most one
// request per (user, project) pair may exist at a time; a second attempt
// while one is live is a conflict, never a silent duplicate.
func (s *JoinRequestService) Send(userID, projectID uint) (*models.JoinRequest, error) {
	project, err := s.projects.GetByID(projectID)
	if err != nil {
		return nil, err
	}
	if project.CreatorID == userID {
		return nil, response.NewBadRequest("cannot request to join your own project")
	}

	isMember, err := s.projects.IsMember(projectID, userID)
	if err != nil {
		return nil, err
	}
	if isMember {
		return nil, response.NewConflict("already a member of this project")
	}

	var existing models.JoinRequest
	err = s.db.Where("user_id = ? AND project_id = ?", userID, projectID).First(&existing).Error
	if err == nil {
		return nil, response.NewConflict("a join request for this project already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	request := models.JoinRequest{
		UserID:    userID,
		ProjectID: projectID,
		Status:    string(workflow.RequestPending),
	}
	if err := s.db.Create(&request).Error; err != nil {
		// Unique index on (user, project) backstops the check above under
		// concurrent sends.
		return nil, response.NewConflict("a join request for this project already exists")
	}

	Republish(eventstore.CollectionJoinRequests)
	return &request, nil
}

// Decide records the project creator's ruling on a pending request. Accepting
// adds the requester to the member list in the same transaction.
func (s *JoinRequestService) Decide(requestID, callerID uint, accept bool) (*models.JoinRequest, error) {
	request, err := s.getByID(requestID)
	if err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(request.ProjectID)
	if err != nil {
		return nil, err
	}

	role := workflow.RoleNone
	if project.CreatorID == callerID {
		role = workflow.RoleCreator
	}

	to := workflow.RequestRejected
	if accept {
		to = workflow.RequestAccepted
	}

	if err := workflow.CheckRequestDecision(role, workflow.RequestStatus(request.Status), to); err != nil {
		return nil, decisionError(err, role)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(request).Update("status", string(to)).Error; err != nil {
			return err
		}
		if accept {
			member := models.ProjectMember{ProjectID: request.ProjectID, UserID: request.UserID}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	Republish(eventstore.CollectionJoinRequests)
	return request, nil
}

// Delete removes a join request: withdrawal by the requester while pending,
// or acknowledgment/dismissal of a decided one by either side.
func (s *JoinRequestService) Delete(requestID, callerID uint) error {
	request, err := s.getByID(requestID)
	if err != nil {
		return err
	}

	project, err := s.projects.GetByID(request.ProjectID)
	if err != nil {
		return err
	}

	role := workflow.RoleNone
	switch callerID {
	case request.UserID:
		role = workflow.RoleRequester
	case project.CreatorID:
		role = workflow.RoleCreator
	}

	if err := workflow.CheckRequestDelete(role, workflow.RequestStatus(request.Status)); err != nil {
		return decisionError(err, role)
	}

	if err := s.db.Delete(request).Error; err != nil {
		return err
	}

	Republish(eventstore.CollectionJoinRequests)
	return nil
}

// ListForUser returns the user's own requests, optionally limited to decided
// ones awaiting acknowledgment.
func (s *JoinRequestService) ListForUser(userID uint, decidedOnly bool) ([]models.JoinRequest, error) {
	query := s.db.Where("user_id = ?", userID)
	if decidedOnly {
		query = query.Where("status <> ?", string(workflow.RequestPending))
	}

	var requests []models.JoinRequest
	if err := query.Order("id").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// ListIncoming returns pending requests against projects the user created.
func (s *JoinRequestService) ListIncoming(creatorID uint) ([]models.JoinRequest, error) {
	var requests []models.JoinRequest
	err := s.db.
		Joins("JOIN projects ON projects.id = join_requests.project_id").
		Where("projects.creator_id = ? AND join_requests.status = ?", creatorID, string(workflow.RequestPending)).
		Order("join_requests.id").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (s *JoinRequestService) getByID(id uint) (*models.JoinRequest, error) {
	var request models.JoinRequest
	if err := s.db.First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("join request not found")
		}
		return nil, err
	}
	return &request, nil
}

// decisionError maps a workflow rejection onto the API error taxonomy: a
// caller without standing gets 403, a bad move by the right caller gets 409.
func decisionError(err error, role workflow.Role) error {
	if role == workflow.RoleNone {
		return response.NewForbidden("not allowed to act on this resource")
	}
	return response.NewConflict(err.Error())
}
