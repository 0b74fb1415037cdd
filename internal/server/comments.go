package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// The author is taken from the session, never from the body.
type commentRequest struct {
	Comment *string `json:"comment"`
}

// handleListComments returns all comments attached to a task.
func (s *Server) handleListComments(c *gin.Context) {
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}

	comments, err := s.comments.ListForTask(c.Request.Context(), taskID)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, comments)
}

// handleAddComment attaches a comment authored by the session user.
func (s *Server) handleAddComment(c *gin.Context) {
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if _, err := s.comments.Add(c.Request.Context(), taskID, currentUser(c), req.Comment); err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"message": "Comment added!"})
}
