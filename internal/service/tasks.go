package service

import (
	"context"
	"fmt"

	"taskboard/internal/models"
)

// TaskStore is the persistence surface needed by TaskService.
type TaskStore interface {
	CreateTask(ctx context.Context, t models.Task) (models.Task, error)
	ListTasks(ctx context.Context) ([]models.Task, error)
}

// NewTask carries task creation input. Nil pointers mean the key was absent or null.
type NewTask struct {
	Title       *string
	Description *string
	Status      *string
	// StatusSet reports whether the status key was sent at all; an explicit
	// null leaves Status nil and is stored as NULL.
	StatusSet bool
	Assignee  *string
}

// TaskService creates and lists tasks.
type TaskService struct {
	tasks TaskStore
}

// NewTaskService builds a TaskService over tasks.
func NewTaskService(tasks TaskStore) *TaskService {
	return &TaskService{tasks: tasks}
}

// Create validates and persists a task. Status defaults to "To Do" only when the key is absent.
func (s *TaskService) Create(ctx context.Context, in NewTask) (models.Task, error) {
	if in.Title == nil {
		return models.Task{}, missing("title")
	}
	if in.Assignee == nil {
		return models.Task{}, missing("assignee")
	}

	status := in.Status
	if !in.StatusSet {
		def := models.DefaultTaskStatus
		status = &def
	}

	task, err := s.tasks.CreateTask(ctx, models.Task{
		Title:       *in.Title,
		Description: in.Description,
		Status:      status,
		Assignee:    *in.Assignee,
	})
	if err != nil {
		return models.Task{}, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// List returns every task in storage order.
func (s *TaskService) List(ctx context.Context) ([]models.Task, error) {
	tasks, err := s.tasks.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}
