package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/devcollab/platform/backend/internal/eventstore"
	"github.com/devcollab/platform/backend/internal/middleware"
	"github.com/devcollab/platform/backend/internal/services"
	"github.com/devcollab/platform/backend/pkg/logger"
	"github.com/devcollab/platform/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// heartbeatInterval keeps proxies from reaping idle streams.
const heartbeatInterval = 25 * time.Second

// StreamHandler serves query subscriptions over Server-Sent Events. Each
// connection carries exactly one query; the client opens one connection per
// notification bucket.
type StreamHandler struct {
	hub      *eventstore.Hub
	projects *services.ProjectService
}

func NewStreamHandler(hub *eventstore.Hub, db *gorm.DB) *StreamHandler {
	return &StreamHandler{hub: hub, projects: services.NewProjectService(db)}
}

// authorizeQuery enforces the visibility rules of the REST read endpoints on
// subscriptions: project-scoped queries are member-only, and queries without
// a project filter must be scoped to the caller.
func (h *StreamHandler) authorizeQuery(userID uint, q eventstore.Query) error {
	projectIDs := filterValues(q, "projectId")

	switch q.Collection {
	case eventstore.CollectionMessages:
		if len(projectIDs) == 0 {
			return response.NewForbidden("message subscriptions must be scoped to a project")
		}
		return h.requireMembership(userID, projectIDs)
	case eventstore.CollectionTasks:
		if filterMatches(q, "assignedTo", userID) {
			return nil
		}
		if len(projectIDs) == 0 {
			return response.NewForbidden("task subscriptions must name a project or the caller")
		}
		return h.requireMembership(userID, projectIDs)
	case eventstore.CollectionJoinRequests:
		if filterMatches(q, "userId", userID) {
			return nil
		}
		if len(projectIDs) == 0 {
			return response.NewForbidden("request subscriptions must name a project or the caller")
		}
		return h.requireCreator(userID, projectIDs)
	}
	return nil
}

func (h *StreamHandler) requireMembership(userID uint, projectIDs []uint) error {
	for _, id := range projectIDs {
		isMember, err := h.projects.IsMember(id, userID)
		if err != nil {
			return err
		}
		if !isMember {
			return response.NewForbidden("not a member of this project")
		}
	}
	return nil
}

func (h *StreamHandler) requireCreator(userID uint, projectIDs []uint) error {
	for _, id := range projectIDs {
		project, err := h.projects.GetByID(id)
		if err != nil {
			return err
		}
		if project.CreatorID != userID {
			return response.NewForbidden("not the creator of this project")
		}
	}
	return nil
}

// filterValues collects the numeric values a query pins field to, across
// both == and in filters.
func filterValues(q eventstore.Query, field string) []uint {
	var out []uint
	for _, f := range q.Filters {
		if f.Field != field {
			continue
		}
		switch f.Op {
		case eventstore.OpEqual:
			if v, ok := filterUint(f.Value); ok {
				out = append(out, v)
			}
		case eventstore.OpIn:
			switch list := f.Value.(type) {
			case []interface{}:
				for _, e := range list {
					if v, ok := filterUint(e); ok {
						out = append(out, v)
					}
				}
			case []uint:
				out = append(out, list...)
			}
		}
	}
	return out
}

// filterMatches reports whether the query pins field to exactly id.
func filterMatches(q eventstore.Query, field string, id uint) bool {
	for _, f := range q.Filters {
		if f.Field != field || f.Op != eventstore.OpEqual {
			continue
		}
		if v, ok := filterUint(f.Value); ok && v == id {
			return true
		}
	}
	return false
}

// filterUint coerces a filter value that arrived either as JSON (float64) or
// in-process (uint).
func filterUint(v interface{}) (uint, bool) {
	switch n := v.(type) {
	case uint:
		return n, true
	case int:
		return uint(n), true
	case int64:
		return uint(n), true
	case uint64:
		return uint(n), true
	case float64:
		return uint(n), true
	}
	return 0, false
}

// Subscribe opens an event stream for the query in the `query` parameter
// GET /api/stream?query=<json>
func (h *StreamHandler) Subscribe(c *gin.Context) {
	raw := c.Query("query")
	if raw == "" {
		response.BadRequest(c, "missing query parameter")
		return
	}

	var query eventstore.Query
	if err := json.Unmarshal([]byte(raw), &query); err != nil {
		response.BadRequest(c, "malformed query: "+err.Error())
		return
	}

	if err := h.authorizeQuery(middleware.GetUserID(c), query); err != nil {
		response.Error(c, err)
		return
	}

	sub, err := h.hub.Subscribe(query)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	logger.Info().
		Str("subscription_id", sub.ID).
		Str("collection", query.Collection).
		Int("total", h.hub.SubscriberCount()).
		Msg("stream client connected")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case snap, ok := <-sub.C:
			if !ok {
				return false
			}
			data, err := json.Marshal(snap)
			if err != nil {
				logger.Error().Err(err).Msg("snapshot marshal error")
				return true
			}
			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
			c.Writer.Flush()
			return true
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			c.Writer.Flush()
			return true
		case <-c.Request.Context().Done():
			logger.Info().Str("subscription_id", sub.ID).Msg("stream client disconnected")
			return false
		}
	})
}
