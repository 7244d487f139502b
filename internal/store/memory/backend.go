// Package memory is an in-process task backend with live queries. It backs the
// client-side tests and any caller that needs a task store without PostgreSQL
// and Redis.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/domain"
)

// UpdateCall records one Update invocation.
type UpdateCall struct {
	ID    uuid.UUID
	Patch domain.TaskPatch
}

// Calls counts mutation attempts, including failed ones.
type Calls struct {
	Create  int
	Update  int
	Delete  int
	Updates []UpdateCall
}

// Writes is the total number of mutation attempts.
func (c Calls) Writes() int { return c.Create + c.Update + c.Delete }

type subscriber struct {
	teamID uuid.UUID
	wake   chan struct{}
}

// Backend satisfies taskstore.Backend.
type Backend struct {
	mu       sync.Mutex
	tasks    map[uuid.UUID]*domain.Task
	subs     map[*subscriber]struct{}
	now      func() time.Time
	calls    Calls
	failNext error
}

// Option configures a Backend.
type Option func(*Backend)

// WithClock replaces time.Now as the source of server timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

func New(opts ...Option) *Backend {
	b := &Backend{
		tasks: make(map[uuid.UUID]*domain.Task),
		subs:  make(map[*subscriber]struct{}),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// FailNext makes the next Create, Update or Delete return err without
// touching the data.
func (b *Backend) FailNext(err error) {
	b.mu.Lock()
	b.failNext = err
	b.mu.Unlock()
}

// Calls returns a copy of the mutation counters.
func (b *Backend) Calls() Calls {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.calls
	c.Updates = slices.Clone(b.calls.Updates)
	return c
}

// Get returns a copy of the stored task.
func (b *Backend) Get(id uuid.UUID) (*domain.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.tasks[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Snapshot returns the current task set of a team.
func (b *Backend) Snapshot(teamID uuid.UUID) domain.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked(teamID)
}

func (b *Backend) Create(_ context.Context, in domain.NewTask) (*domain.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls.Create++
	if err := b.takeFailure(); err != nil {
		return nil, err
	}

	t := in.Task()
	t.ID = uuid.New()
	now := b.now()
	t.CreatedAt = now
	t.UpdatedAt = now
	b.tasks[t.ID] = t
	b.notifyLocked(t.TeamID)

	return t.Clone(), nil
}

func (b *Backend) Update(_ context.Context, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls.Update++
	b.calls.Updates = append(b.calls.Updates, UpdateCall{ID: id, Patch: patch})
	if err := b.takeFailure(); err != nil {
		return nil, err
	}

	t, ok := b.tasks[id]
	if !ok {
		return nil, fmt.Errorf("memory.Backend.Update: %w", domain.ErrNotFound)
	}
	patch.Apply(t, b.now())
	b.notifyLocked(t.TeamID)

	return t.Clone(), nil
}

func (b *Backend) Delete(_ context.Context, id uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls.Delete++
	if err := b.takeFailure(); err != nil {
		return err
	}

	t, ok := b.tasks[id]
	if !ok {
		return fmt.Errorf("memory.Backend.Delete: %w", domain.ErrNotFound)
	}
	delete(b.tasks, id)
	b.notifyLocked(t.TeamID)

	return nil
}

// Subscribe emits the team's snapshot immediately and after every change.
// Changes that land while the consumer is busy collapse into one snapshot.
func (b *Backend) Subscribe(ctx context.Context, teamID uuid.UUID) (<-chan domain.Snapshot, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &subscriber{teamID: teamID, wake: make(chan struct{}, 1)}
	sub.wake <- struct{}{} // initial snapshot

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	out := make(chan domain.Snapshot)
	go func() {
		defer close(out)
		defer func() {
			b.mu.Lock()
			delete(b.subs, sub)
			b.mu.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.wake:
			}

			snap := b.Snapshot(teamID)
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cancel, nil
}

// Subscribers reports how many live feeds are open.
func (b *Backend) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Backend) takeFailure() error {
	err := b.failNext
	b.failNext = nil
	return err
}

func (b *Backend) notifyLocked(teamID uuid.UUID) {
	for sub := range b.subs {
		if sub.teamID != teamID {
			continue
		}
		select {
		case sub.wake <- struct{}{}:
		default: // a wake-up is already pending
		}
	}
}

func (b *Backend) snapshotLocked(teamID uuid.UUID) domain.Snapshot {
	tasks := make([]*domain.Task, 0)
	for _, t := range b.tasks {
		if t.TeamID == teamID {
			tasks = append(tasks, t.Clone())
		}
	}
	slices.SortFunc(tasks, func(a, c *domain.Task) int {
		if n := a.CreatedAt.Compare(c.CreatedAt); n != 0 {
			return n
		}
		return slices.Compare(a.ID[:], c.ID[:])
	})
	return domain.Snapshot{TeamID: teamID, Tasks: tasks, At: b.now()}
}
