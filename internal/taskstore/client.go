// Package taskstore is the task store client: create, update and delete
// operations plus a live, team-scoped subscription that delivers the full task
// set on every change.
package taskstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskboard/internal/domain"
)

// Backend is the document store the client delegates to.
//
// Create assigns the ID and both timestamps and always stores the task as
// pending. Update and Delete fail with domain.ErrNotFound for unknown IDs.
// Subscribe emits the team's complete task set, first immediately and then on
// every change; the channel closes when ctx ends, cleanup is called, or the
// feed fails.
type Backend interface {
	Create(ctx context.Context, in domain.NewTask) (*domain.Task, error)
	Update(ctx context.Context, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Subscribe(ctx context.Context, teamID uuid.UUID) (<-chan domain.Snapshot, func(), error)
}

// Client validates requests and classifies backend failures into the domain
// error taxonomy.
type Client struct {
	backend Backend
}

// New creates a Client on top of backend.
func New(backend Backend) *Client {
	return &Client{backend: backend}
}

// CreateTask stores a new pending task. Invalid input is rejected with a
// *domain.ValidationError before the backend is called.
func (c *Client) CreateTask(ctx context.Context, in domain.NewTask) (*domain.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("taskstore.Client.CreateTask: %w", err)
	}

	t, err := c.backend.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("taskstore.Client.CreateTask: %w", classify(err))
	}

	return t, nil
}

// UpdateTask applies patch to the task and returns the stored result.
func (c *Client) UpdateTask(ctx context.Context, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, fmt.Errorf("taskstore.Client.UpdateTask: %w", err)
	}

	t, err := c.backend.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("taskstore.Client.UpdateTask: %w", classify(err))
	}

	return t, nil
}

// DeleteTask permanently removes the task.
func (c *Client) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if err := c.backend.Delete(ctx, id); err != nil {
		return fmt.Errorf("taskstore.Client.DeleteTask: %w", classify(err))
	}
	return nil
}

// SubscribeToTeamTasks calls onChange with the team's full task set whenever
// any of its tasks is added, updated or deleted, starting with the current
// set. Calls are serial and happen on a goroutine owned by the subscription.
//
// The returned unsubscribe func stops delivery and releases the feed. Once it
// returns no further callbacks run. It waits for an in-progress callback, so
// it must not be called from inside onChange. A panicking callback is logged
// and delivery continues with the next snapshot.
func (c *Client) SubscribeToTeamTasks(ctx context.Context, teamID uuid.UUID, onChange func(domain.Snapshot)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	snapshots, cleanup, err := c.backend.Subscribe(ctx, teamID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("taskstore.Client.SubscribeToTeamTasks: %w", classify(err))
	}

	var (
		mu      sync.Mutex
		stopped atomic.Bool
	)

	go func() {
		deliver := func(snap domain.Snapshot) (delivered bool) {
			mu.Lock()
			defer mu.Unlock()
			if stopped.Load() {
				return false
			}
			defer func() {
				if r := recover(); r != nil {
					delivered = true
					log.Error().Interface("panic", r).Str("team_id", teamID.String()).Msg("task feed callback panicked")
				}
			}()
			onChange(snap)
			return true
		}
		for snap := range snapshots {
			if !deliver(snap) {
				return
			}
		}
		if !stopped.Load() && ctx.Err() == nil {
			log.Warn().Str("team_id", teamID.String()).Msg("task feed closed by backend")
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			stopped.Store(true)
			cancel()
			cleanup()
			// Wait out a callback that is already running.
			mu.Lock()
			mu.Unlock() //nolint:staticcheck // empty critical section is the barrier
		})
	}

	return unsubscribe, nil
}

// classify maps a backend error onto the domain taxonomy. Not-found and
// validation errors pass through; anything else is a backend failure.
func classify(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrBackend),
		errors.Is(err, domain.ErrInvalidStatus):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrBackend, err)
	}
}
