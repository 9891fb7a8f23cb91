package handlers

import (
	"strconv"

	"github.com/devcollab/platform/backend/internal/middleware"
	"github.com/devcollab/platform/backend/internal/services"
	"github.com/devcollab/platform/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type JoinRequestHandler struct {
	requestService *services.JoinRequestService
}

func NewJoinRequestHandler(db *gorm.DB) *JoinRequestHandler {
	return &JoinRequestHandler{
		requestService: services.NewJoinRequestService(db),
	}
}

type sendJoinRequestBody struct {
	ProjectID uint `json:"projectId" binding:"required"`
}

// Send creates a pending join request
// POST /api/requests
func (h *JoinRequestHandler) Send(c *gin.Context) {
	var body sendJoinRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	request, err := h.requestService.Send(middleware.GetUserID(c), body.ProjectID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, request)
}

type decideRequestBody struct {
	Accept *bool `json:"accept" binding:"required"`
}

// Decide records the creator's ruling on a pending request
// PUT /api/requests/:id
func (h *JoinRequestHandler) Decide(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid request id")
		return
	}

	var body decideRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	request, err := h.requestService.Decide(uint(id), middleware.GetUserID(c), *body.Accept)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, request)
}

// Delete withdraws or acknowledges a request
// DELETE /api/requests/:id
func (h *JoinRequestHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid request id")
		return
	}

	if err := h.requestService.Delete(uint(id), middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "request removed"})
}

// ListOwn returns the caller's requests
// GET /api/requests
func (h *JoinRequestHandler) ListOwn(c *gin.Context) {
	decidedOnly := c.Query("decided") == "true"

	requests, err := h.requestService.ListForUser(middleware.GetUserID(c), decidedOnly)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, requests)
}

// ListIncoming returns pending requests against the caller's projects
// GET /api/requests/incoming
func (h *JoinRequestHandler) ListIncoming(c *gin.Context) {
	requests, err := h.requestService.ListIncoming(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, requests)
}
