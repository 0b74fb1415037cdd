package service

import (
	"context"
	"fmt"

	"taskboard/internal/models"
)

// CommentStore is the persistence surface needed by CommentService.
type CommentStore interface {
	CreateComment(ctx context.Context, c models.Comment) (models.Comment, error)
	ListCommentsByTask(ctx context.Context, taskID int64) ([]models.Comment, error)
}

// CommentService attaches comments to tasks.
type CommentService struct {
	comments CommentStore
}

// NewCommentService builds a CommentService over comments.
func NewCommentService(comments CommentStore) *CommentService {
	return &CommentService{comments: comments}
}

// Add stores text against taskID with author taken from the session.
// taskID is not checked against existing tasks.
func (s *CommentService) Add(ctx context.Context, taskID int64, author string, text *string) (models.Comment, error) {
	if text == nil {
		return models.Comment{}, missing("comment")
	}

	comment, err := s.comments.CreateComment(ctx, models.Comment{
		TaskID:  taskID,
		Comment: *text,
		Author:  author,
	})
	if err != nil {
		return models.Comment{}, fmt.Errorf("add comment: %w", err)
	}
	return comment, nil
}

// ListForTask returns the comments attached to taskID.
func (s *CommentService) ListForTask(ctx context.Context, taskID int64) ([]models.Comment, error) {
	comments, err := s.comments.ListCommentsByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}
