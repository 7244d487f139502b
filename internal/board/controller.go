package board

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskboard/internal/domain"
)

const (
	MsgMoveFailedTitle = "Error"
	MsgMoveFailed      = "Failed to update task status. Please try again."
)

// Updater is the mutation half of taskstore.Client used for moves.
type Updater interface {
	UpdateTask(ctx context.Context, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error)
}

// Outcome is the result of a gesture that ends a move.
type Outcome int

const (
	// OutcomeIdle means no task was in flight.
	OutcomeIdle Outcome = iota
	// OutcomeUnchanged means the target was the task's current status; no write.
	OutcomeUnchanged
	// OutcomeMoved means one status update was issued and accepted.
	OutcomeMoved
	// OutcomeAbandoned means a touch drag ended outside every column.
	OutcomeAbandoned
	// OutcomeFailed means the update was issued and rejected by the backend.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeMoved:
		return "moved"
	case OutcomeAbandoned:
		return "abandoned"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Controller turns gestures into status updates. At most one task is in flight;
// starting a new drag replaces the previous one without a move.
//
// The cache is never changed optimistically. A successful move becomes visible
// when the next snapshot arrives, and a failed one leaves nothing to roll back.
type Controller struct {
	cache   *Cache
	tasks   Updater
	notify  Notifier
	mu      sync.Mutex
	dragged *domain.Task
	touch   *Point
	columns map[domain.TaskStatus]Rect
}

func NewController(cache *Cache, tasks Updater, notify Notifier) *Controller {
	return &Controller{
		cache:   cache,
		tasks:   tasks,
		notify:  notify,
		columns: make(map[domain.TaskStatus]Rect),
	}
}

// ---------------------------------------------------------------------------
// Mouse drag
// ---------------------------------------------------------------------------

// DragStart records the cached task as in flight.
func (c *Controller) DragStart(taskID uuid.UUID) error {
	t, ok := c.cache.Get(taskID)
	if !ok {
		return fmt.Errorf("board.Controller.DragStart: %w", domain.ErrNotFound)
	}

	c.mu.Lock()
	c.dragged = t
	c.touch = nil
	c.mu.Unlock()

	return nil
}

// Drop moves the in-flight task to target and clears it.
func (c *Controller) Drop(ctx context.Context, target domain.TaskStatus) (Outcome, error) {
	if !target.Valid() {
		return OutcomeIdle, fmt.Errorf("board.Controller.Drop: %w: %q", domain.ErrInvalidStatus, string(target))
	}

	t := c.take()
	if t == nil {
		return OutcomeIdle, nil
	}

	return c.move(ctx, t, target)
}

// CancelDrag forgets the in-flight task.
func (c *Controller) CancelDrag() {
	c.take()
}

// InFlight returns a copy of the task being dragged.
func (c *Controller) InFlight() (domain.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dragged == nil {
		return domain.Task{}, false
	}
	return *c.dragged.Clone(), true
}

// ---------------------------------------------------------------------------
// Direct selection
// ---------------------------------------------------------------------------

// Select moves a task chosen from a status picker. It does not touch the
// in-flight drag.
func (c *Controller) Select(ctx context.Context, taskID uuid.UUID, target domain.TaskStatus) (Outcome, error) {
	if !target.Valid() {
		return OutcomeIdle, fmt.Errorf("board.Controller.Select: %w: %q", domain.ErrInvalidStatus, string(target))
	}

	t, ok := c.cache.Get(taskID)
	if !ok {
		return OutcomeIdle, fmt.Errorf("board.Controller.Select: %w", domain.ErrNotFound)
	}

	return c.move(ctx, t, target)
}

// ---------------------------------------------------------------------------
// Touch drag
// ---------------------------------------------------------------------------

// SetColumnBounds records where a column is drawn. Touch drops are hit-tested
// against these boxes.
func (c *Controller) SetColumnBounds(status domain.TaskStatus, r Rect) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r.Empty() {
		delete(c.columns, status)
		return
	}
	c.columns[status] = r
}

func (c *Controller) TouchStart(taskID uuid.UUID, p Point) error {
	t, ok := c.cache.Get(taskID)
	if !ok {
		return fmt.Errorf("board.Controller.TouchStart: %w", domain.ErrNotFound)
	}

	c.mu.Lock()
	c.dragged = t
	c.touch = &p
	c.mu.Unlock()

	return nil
}

// TouchMove tracks the finger. It is ignored when no touch drag is active.
func (c *Controller) TouchMove(p Point) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dragged != nil && c.touch != nil {
		c.touch = &p
	}
}

// TouchEnd drops the in-flight task on the column under the last touch point.
// A mouse drag in progress is left alone.
func (c *Controller) TouchEnd(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	t, p := c.dragged, c.touch
	if t == nil || p == nil {
		c.mu.Unlock()
		return OutcomeIdle, nil
	}
	c.dragged, c.touch = nil, nil
	target, hit := c.hitTestLocked(*p)
	c.mu.Unlock()

	if !hit {
		return OutcomeAbandoned, nil
	}

	return c.move(ctx, t, target)
}

func (c *Controller) hitTestLocked(p Point) (domain.TaskStatus, bool) {
	// Fixed order so overlapping boxes resolve the same way every time.
	for _, s := range domain.TaskStatuses() {
		if r, ok := c.columns[s]; ok && r.Contains(p) {
			return s, true
		}
	}
	return "", false
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func (c *Controller) take() *domain.Task {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.dragged
	c.dragged, c.touch = nil, nil
	return t
}

// move compares against the freshest cached copy so a drag that started before
// a remote change does not issue a redundant write.
func (c *Controller) move(ctx context.Context, t *domain.Task, target domain.TaskStatus) (Outcome, error) {
	current := t.Status
	if latest, ok := c.cache.Get(t.ID); ok {
		current = latest.Status
	}

	if !current.ValidTransition(target) {
		return OutcomeUnchanged, nil
	}

	if _, err := c.tasks.UpdateTask(ctx, t.ID, domain.StatusPatch(target)); err != nil {
		log.Warn().Err(err).
			Str("task_id", t.ID.String()).
			Str("from", current.String()).
			Str("to", target.String()).
			Msg("board: status update failed")
		c.notify.Error(MsgMoveFailedTitle, MsgMoveFailed)
		return OutcomeFailed, fmt.Errorf("board.Controller.move: %w", err)
	}

	return OutcomeMoved, nil
}
