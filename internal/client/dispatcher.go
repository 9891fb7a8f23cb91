package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/devcollab/platform/backend/internal/workflow"
	"github.com/devcollab/platform/backend/pkg/logger"
)

// DefaultCommandTimeout bounds every command round-trip. A command that has
// not answered by then is reported as a transient network failure, not left
// hanging.
const DefaultCommandTimeout = 10 * time.Second

// Dispatcher issues mutating REST commands. Commands never touch the
// reconciliation store: success or failure, the next snapshot from the event
// stream is the only thing that changes rendered state.
type Dispatcher struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewDispatcher creates a dispatcher for the command API at baseURL,
// authenticating with the given bearer token.
func NewDispatcher(baseURL, token string) *Dispatcher {
	return &Dispatcher{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: DefaultCommandTimeout},
	}
}

// SendJoinRequest asks to join a project.
func (d *Dispatcher) SendJoinRequest(ctx context.Context, projectID uint) error {
	if projectID == 0 {
		return &ValidationError{Message: "no project selected"}
	}
	return d.do(ctx, http.MethodPost, "/api/requests", map[string]interface{}{
		"projectId": projectID,
	})
}

// AcceptRequest approves a pending join request.
func (d *Dispatcher) AcceptRequest(ctx context.Context, requestID uint) error {
	return d.decideRequest(ctx, requestID, true)
}

// RejectRequest declines a pending join request.
func (d *Dispatcher) RejectRequest(ctx context.Context, requestID uint) error {
	return d.decideRequest(ctx, requestID, false)
}

func (d *Dispatcher) decideRequest(ctx context.Context, requestID uint, accept bool) error {
	if requestID == 0 {
		return &ValidationError{Message: "no request selected"}
	}
	return d.do(ctx, http.MethodPut, fmt.Sprintf("/api/requests/%d", requestID), map[string]interface{}{
		"accept": accept,
	})
}

// WithdrawRequest removes the caller's own pending request.
func (d *Dispatcher) WithdrawRequest(ctx context.Context, requestID uint) error {
	return d.deleteRequest(ctx, requestID)
}

// AcknowledgeRequest clears a decided request after the caller has seen the
// outcome. The entity's lifecycle ends here, not at the status change.
func (d *Dispatcher) AcknowledgeRequest(ctx context.Context, requestID uint) error {
	return d.deleteRequest(ctx, requestID)
}

func (d *Dispatcher) deleteRequest(ctx context.Context, requestID uint) error {
	if requestID == 0 {
		return &ValidationError{Message: "no request selected"}
	}
	return d.do(ctx, http.MethodDelete, fmt.Sprintf("/api/requests/%d", requestID), nil)
}

// AssignTask creates a task for a project member.
func (d *Dispatcher) AssignTask(ctx context.Context, projectID, assignedTo uint, details string) error {
	if projectID == 0 {
		return &ValidationError{Message: "no project selected"}
	}
	if assignedTo == 0 {
		return &ValidationError{Message: "no assignee selected"}
	}
	if strings.TrimSpace(details) == "" {
		return &ValidationError{Message: "task details must not be empty"}
	}
	return d.do(ctx, http.MethodPost, "/api/tasks", map[string]interface{}{
		"projectId":  projectID,
		"assignedTo": assignedTo,
		"details":    details,
	})
}

// TransitionTask moves a task to a new status. completionRef is required for
// the move into REQUEST_COMPLETE and ignored otherwise.
func (d *Dispatcher) TransitionTask(ctx context.Context, taskID uint, status string, completionRef string) error {
	if taskID == 0 {
		return &ValidationError{Message: "no task selected"}
	}
	if !workflow.ValidTaskStatus(status) {
		return &ValidationError{Message: "unknown task status"}
	}
	if workflow.TaskStatus(status) == workflow.TaskRequestComplete && strings.TrimSpace(completionRef) == "" {
		return &ValidationError{Message: "a completion reference is required"}
	}
	body := map[string]interface{}{"status": status}
	if completionRef != "" {
		body["pullRequestUrl"] = completionRef
	}
	return d.do(ctx, http.MethodPut, fmt.Sprintf("/api/tasks/%d/status", taskID), body)
}

// AcceptTask marks an assigned task as seen and accepted. Opening the task
// view triggers this; acceptance and acknowledgment are one transition.
func (d *Dispatcher) AcceptTask(ctx context.Context, taskID uint) error {
	return d.TransitionTask(ctx, taskID, string(workflow.TaskPending), "")
}

// DeleteTask cancels a task.
func (d *Dispatcher) DeleteTask(ctx context.Context, taskID uint) error {
	if taskID == 0 {
		return &ValidationError{Message: "no task selected"}
	}
	return d.do(ctx, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", taskID), nil)
}

// SendMessage posts to a project chat.
func (d *Dispatcher) SendMessage(ctx context.Context, projectID uint, body string) error {
	if projectID == 0 {
		return &ValidationError{Message: "no project selected"}
	}
	if strings.TrimSpace(body) == "" {
		return &ValidationError{Message: "message body must not be empty"}
	}
	return d.do(ctx, http.MethodPost, "/api/messages", map[string]interface{}{
		"projectId": projectID,
		"message":   body,
	})
}

// DeleteMessage removes the caller's own message.
func (d *Dispatcher) DeleteMessage(ctx context.Context, messageID uint) error {
	if messageID == 0 {
		return &ValidationError{Message: "no message selected"}
	}
	return d.do(ctx, http.MethodDelete, fmt.Sprintf("/api/messages/%d", messageID), nil)
}

// apiResponse mirrors the server's envelope.
type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// do performs one command round-trip and maps the outcome onto the error
// taxonomy. 401/403 mean the actor lacks the role, 409 means the entity moved
// on, other 4xx are treated as conflicts too since the request was well-formed
// locally, and 5xx or transport trouble is transient.
func (d *Dispatcher) do(ctx context.Context, method, path string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &ValidationError{Message: err.Error()}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+d.token)

	resp, err := d.client.Do(req)
	if err != nil {
		logger.Warn().Err(err).Str("method", method).Str("path", path).Msg("command transport failure")
		return &TransientNetworkError{Message: "command did not reach the server", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 {
		return nil
	}

	var envelope apiResponse
	message := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Message != "" {
		message = envelope.Message
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthorizationError{Message: message}
	case resp.StatusCode >= 500:
		logger.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("command failed server-side")
		return &TransientNetworkError{Message: message}
	default:
		return &ConflictError{Message: message}
	}
}
