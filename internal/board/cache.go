// Package board holds the client-side board model: a cache of the team's tasks
// fed by a live subscription, and the controller that turns selection, drag
// and touch gestures into status transitions.
package board

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/domain"
)

// Cache is the last snapshot delivered for one team, indexed by task ID. It is
// only ever replaced wholesale; nothing merges into it.
type Cache struct {
	mu       sync.RWMutex
	teamID   uuid.UUID
	byID     map[uuid.UUID]*domain.Task
	ordered  []*domain.Task
	at       time.Time
	onChange func(domain.Snapshot)
}

func NewCache() *Cache {
	return &Cache{byID: make(map[uuid.UUID]*domain.Task)}
}

// OnReplace registers fn to run after every Replace, outside the lock.
func (c *Cache) OnReplace(fn func(domain.Snapshot)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Replace swaps in the tasks of s.
func (c *Cache) Replace(s domain.Snapshot) {
	byID := make(map[uuid.UUID]*domain.Task, len(s.Tasks))
	ordered := make([]*domain.Task, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		if t == nil {
			continue
		}
		cp := t.Clone()
		byID[cp.ID] = cp
		ordered = append(ordered, cp)
	}

	c.mu.Lock()
	c.teamID = s.TeamID
	c.byID = byID
	c.ordered = ordered
	c.at = s.At
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}

// Clear empties the cache without firing OnReplace.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.byID = make(map[uuid.UUID]*domain.Task)
	c.ordered = nil
	c.at = time.Time{}
	c.mu.Unlock()
}

// Get returns a copy of the cached task.
func (c *Cache) Get(id uuid.UUID) (*domain.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Tasks returns copies of all cached tasks in snapshot order.
func (c *Cache) Tasks() []*domain.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*domain.Task, len(c.ordered))
	for i, t := range c.ordered {
		out[i] = t.Clone()
	}
	return out
}

// Columns groups the cached tasks into the three board columns.
func (c *Cache) Columns() []domain.Column {
	return domain.Columns(c.Tasks())
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// UpdatedAt is the timestamp of the snapshot currently held.
func (c *Cache) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.at
}

// Subscriber is the live-query half of taskstore.Client.
type Subscriber interface {
	SubscribeToTeamTasks(ctx context.Context, teamID uuid.UUID, onChange func(domain.Snapshot)) (func(), error)
}

// Attach feeds c from the team's live task feed. The returned detach func
// unsubscribes and clears the cache.
func Attach(ctx context.Context, sub Subscriber, teamID uuid.UUID, c *Cache) (func(), error) {
	unsubscribe, err := sub.SubscribeToTeamTasks(ctx, teamID, c.Replace)
	if err != nil {
		return nil, fmt.Errorf("board.Attach: %w", err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			c.Clear()
		})
	}, nil
}
