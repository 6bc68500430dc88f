package tasks

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-todo-client/api"
	"github.com/pkg/errors"
)

// Service is the thin REST wrapper over the /tasks endpoints. All calls go
// through the authenticated pipeline, so an expired access token is refreshed
// and retried transparently.
type Service struct {
	pipeline *api.Pipeline
}

// NewService creates a task Service dispatching through pipeline.
func NewService(pipeline *api.Pipeline) (*Service, error) {
	if pipeline == nil {
		return nil, errors.New("[NewService] pipeline is required")
	}
	return &Service{pipeline: pipeline}, nil
}

// List fetches all tasks for the current user.
func (s *Service) List(ctx context.Context) ([]Task, error) {
	var out []Task
	if err := s.pipeline.Do(ctx, http.MethodGet, "/tasks", nil, &out); err != nil {
		return nil, errors.Wrap(err, "[Service.List]")
	}
	return out, nil
}

// Get fetches a single task by ID.
func (s *Service) Get(ctx context.Context, id string) (*Task, error) {
	var out Task
	if err := s.pipeline.Do(ctx, http.MethodGet, taskPath(id), nil, &out); err != nil {
		return nil, errors.Wrap(err, "[Service.Get]")
	}
	return &out, nil
}

// Create creates a task and returns the server's representation, including
// the assigned id and userId.
func (s *Service) Create(ctx context.Context, draft Draft) (*Task, error) {
	var out Task
	if err := s.pipeline.Do(ctx, http.MethodPost, "/tasks", draft, &out); err != nil {
		return nil, errors.Wrap(err, "[Service.Create]")
	}
	return &out, nil
}

// Update applies a partial update and returns the server's merged task.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Task, error) {
	var out Task
	if err := s.pipeline.Do(ctx, http.MethodPatch, taskPath(id), patch, &out); err != nil {
		return nil, errors.Wrap(err, "[Service.Update]")
	}
	return &out, nil
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.pipeline.Do(ctx, http.MethodDelete, taskPath(id), nil, nil); err != nil {
		return errors.Wrap(err, "[Service.Delete]")
	}
	return nil
}

func taskPath(id string) string {
	return fmt.Sprintf("/tasks/%s", url.PathEscape(id))
}
