package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/service"
)

type taskRequest struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Status      optionalString `json:"status"`
	Assignee    *string        `json:"assignee"`
}

// optionalString tells an absent key apart from an explicit null.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// handleListTasks returns every task.
func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.tasks.List(c.Request.Context())
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, tasks)
}

// handleCreateTask inserts a new task.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	task, err := s.tasks.Create(c.Request.Context(), service.NewTask{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status.Value,
		StatusSet:   req.Status.Set,
		Assignee:    req.Assignee,
	})
	if err != nil {
		s.respondServiceError(c, err)
		return
	}

	s.logger.InfoContext(c.Request.Context(), "task created",
		"task_id", task.ID, "by", currentUser(c), "request_id", c.GetString(requestIDKey))
	respondSuccess(c, http.StatusOK, gin.H{"message": "Task created!"})
}
