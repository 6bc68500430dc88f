package tasks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// TaskNotFoundErr is returned when a store operation targets an unknown task.
var TaskNotFoundErr = errors.New("task not found")

// MutationState tracks the lifecycle of one optimistic mutation.
type MutationState string

const (
	MutationPending    MutationState = "pending"
	MutationConfirmed  MutationState = "confirmed"
	MutationRolledBack MutationState = "rolled-back"
)

// pendingPrefix marks locally assigned placeholder IDs for tasks the server
// has not confirmed yet.
const pendingPrefix = "pending-"

// mutation is one optimistic change awaiting the server's verdict. rollback
// undoes the local application; confirm reconciles it with the server's
// returned representation.
type mutation struct {
	id       string
	state    MutationState
	rollback func()
	confirm  func(serverTask *Task)
}

// Store is the task-list state container: mutations apply locally first and
// are reconciled with the server response, moving each through an explicit
// pending, then confirmed or rolled-back transition.
type Store struct {
	svc    *Service
	logger zerolog.Logger

	mu       sync.RWMutex
	tasks    []Task
	inFlight map[string]*mutation
	loading  bool
	lastErr  string
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates an empty task store backed by svc.
func NewStore(svc *Service, options ...StoreOption) (*Store, error) {
	if svc == nil {
		return nil, errors.New("[NewStore] service is required")
	}
	s := &Store{svc: svc, inFlight: make(map[string]*mutation)}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Refresh replaces the local list with the server's.
func (s *Store) Refresh(ctx context.Context) error {
	s.begin()
	fetched, err := s.svc.List(ctx)
	if err != nil {
		return s.fail("[Store.Refresh]", err)
	}
	s.mu.Lock()
	s.tasks = fetched
	s.loading = false
	s.mu.Unlock()
	return nil
}

// Tasks returns a copy of the current list, optimistic entries included.
func (s *Store) Tasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]Task, len(s.tasks))
	copy(copied, s.tasks)
	return copied
}

// Get returns the task with the given ID, if present locally.
func (s *Store) Get(id string) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, task := range s.tasks {
		if task.ID == id {
			return task, true
		}
	}
	return Task{}, false
}

// Create inserts the draft locally under a placeholder ID, then reconciles
// with the server: the confirmed task replaces the placeholder, or the
// placeholder is rolled back on failure.
func (s *Store) Create(ctx context.Context, draft Draft) (*Task, error) {
	placeholderID := pendingPrefix + uuid.NewString()
	placeholder := Task{
		ID:          placeholderID,
		Title:       draft.Title,
		Description: draft.Description,
		Done:        draft.Done,
		Priority:    draft.Priority,
		DueDate:     draft.DueDate,
		Reminder:    draft.Reminder,
		RepeatType:  draft.RepeatType,
	}

	mut := s.track(&mutation{
		id: placeholderID,
		rollback: func() {
			s.removeLocked(placeholderID)
		},
		confirm: func(serverTask *Task) {
			s.replaceLocked(placeholderID, *serverTask)
		},
	})

	s.begin()
	s.mu.Lock()
	s.tasks = append(s.tasks, placeholder)
	s.mu.Unlock()

	created, err := s.svc.Create(ctx, draft)
	if err != nil {
		s.resolve(mut, nil, false)
		return nil, s.fail("[Store.Create]", err)
	}
	s.resolve(mut, created, true)
	s.endOperation()
	return created, nil
}

// Update applies the patch locally, then reconciles with the server's merged
// representation, restoring the prior task on failure.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (*Task, error) {
	s.mu.Lock()
	prior, ok := s.findLocked(id)
	if !ok {
		s.mu.Unlock()
		return nil, s.fail("[Store.Update]", TaskNotFoundErr)
	}
	s.replaceLocked(id, patch.applyTo(prior))
	s.mu.Unlock()

	mut := s.track(&mutation{
		id: id,
		rollback: func() {
			s.replaceLocked(id, prior)
		},
		confirm: func(serverTask *Task) {
			s.replaceLocked(id, *serverTask)
		},
	})

	s.begin()
	updated, err := s.svc.Update(ctx, id, patch)
	if err != nil {
		s.resolve(mut, nil, false)
		return nil, s.fail("[Store.Update]", err)
	}
	s.resolve(mut, updated, true)
	s.endOperation()
	return updated, nil
}

// Delete removes the task locally, reinserting it if the server rejects the
// deletion.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	prior, ok := s.findLocked(id)
	if !ok {
		s.mu.Unlock()
		return s.fail("[Store.Delete]", TaskNotFoundErr)
	}
	s.removeLocked(id)
	s.mu.Unlock()

	mut := s.track(&mutation{
		id: id,
		rollback: func() {
			s.tasks = append(s.tasks, prior)
		},
		confirm: func(*Task) {},
	})

	s.begin()
	if err := s.svc.Delete(ctx, id); err != nil {
		s.resolve(mut, nil, false)
		return s.fail("[Store.Delete]", err)
	}
	s.resolve(mut, nil, true)
	s.endOperation()
	return nil
}

// Toggle flips a task's completion status.
func (s *Store) Toggle(ctx context.Context, id string) error {
	task, ok := s.Get(id)
	if !ok {
		return s.fail("[Store.Toggle]", TaskNotFoundErr)
	}
	done := !task.Done
	_, err := s.Update(ctx, id, Patch{Done: &done})
	return err
}

// PendingMutations reports how many optimistic changes are still awaiting the
// server.
func (s *Store) PendingMutations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.inFlight)
}

// Loading reports whether a store operation is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the last recorded failure message, or "".
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Store) track(mut *mutation) *mutation {
	mut.state = MutationPending
	s.mu.Lock()
	s.inFlight[mut.id] = mut
	s.mu.Unlock()
	return mut
}

// resolve moves a pending mutation to confirmed or rolled-back. serverTask
// carries the server's representation when it returned one (nil for an
// acknowledged delete).
func (s *Store) resolve(mut *mutation, serverTask *Task, confirmed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, mut.id)
	if !confirmed {
		mut.state = MutationRolledBack
		mut.rollback()
		s.logger.Debug().Str("mutation", mut.id).Msg("optimistic mutation rolled back")
		return
	}
	mut.state = MutationConfirmed
	if serverTask != nil {
		mut.confirm(serverTask)
	}
}

func (s *Store) begin() {
	s.mu.Lock()
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *Store) endOperation() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

func (s *Store) fail(op string, err error) error {
	s.mu.Lock()
	s.loading = false
	s.lastErr = err.Error()
	s.mu.Unlock()
	return errors.Wrap(err, op)
}

func (s *Store) findLocked(id string) (Task, bool) {
	for _, task := range s.tasks {
		if task.ID == id {
			return task, true
		}
	}
	return Task{}, false
}

func (s *Store) replaceLocked(id string, task Task) {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks[i] = task
			return
		}
	}
	s.tasks = append(s.tasks, task)
}

func (s *Store) removeLocked(id string) {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return
		}
	}
}
