package services

import (
	"errors"
	"strings"

	"github.com/devcollab/platform/backend/internal/eventstore"
	"github.com/devcollab/platform/backend/internal/models"
	"github.com/devcollab/platform/backend/pkg/response"
	"gorm.io/gorm"
)

type MessageService struct {
	db       *gorm.DB
	projects *ProjectService
}

func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{db: db, projects: NewProjectService(db)}
}

type SendMessageRequest struct {
	ProjectID uint   `json:"projectId" binding:"required"`
	Body      string `json:"message" binding:"required"`
}

// Send appends a message to the project chat. Members only; an empty or
// whitespace body is rejected before it reaches storage.
func (s *MessageService) Send(req *SendMessageRequest, senderID uint) (*models.Message, error) {
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, response.NewBadRequest("message body must not be empty")
	}

	if _, err := s.projects.GetByID(req.ProjectID); err != nil {
		return nil, err
	}

	isMember, err := s.projects.IsMember(req.ProjectID, senderID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, response.NewForbidden("only project members can post messages")
	}

	message := models.Message{
		ProjectID: req.ProjectID,
		SenderID:  senderID,
		Body:      body,
	}
	if err := s.db.Create(&message).Error; err != nil {
		return nil, err
	}

	Republish(eventstore.CollectionMessages)
	return &message, nil
}

// Delete removes a message. Senders delete their own messages; nobody else
// touches them, project creator included.
func (s *MessageService) Delete(messageID, callerID uint) error {
	var message models.Message
	if err := s.db.First(&message, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewNotFound("message not found")
		}
		return err
	}

	if message.SenderID != callerID {
		return response.NewForbidden("only the sender can delete a message")
	}

	if err := s.db.Delete(&message).Error; err != nil {
		return err
	}

	Republish(eventstore.CollectionMessages)
	return nil
}

// ListForProject returns the project's messages oldest first. Members only.
func (s *MessageService) ListForProject(projectID, callerID uint) ([]models.Message, error) {
	isMember, err := s.projects.IsMember(projectID, callerID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, response.NewForbidden("not a member of this project")
	}

	var messages []models.Message
	if err := s.db.Where("project_id = ?", projectID).Order("created_at, id").Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}
