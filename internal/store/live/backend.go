// Package live joins the PostgreSQL task repository with Redis pub/sub into a
// task backend with live, team-scoped queries.
//
// Every committed mutation publishes a Change on the team's channel.
// Subscribers treat a Change only as a wake-up and re-read the team's tasks
// from the database, so every snapshot reflects committed state and a late
// notice can never roll a board back.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskboard/internal/domain"
	redisstore "github.com/gosuda/taskboard/internal/store/redis"
)

// Change types carried on a team channel.
const (
	ChangeCreated = "task_created"
	ChangeUpdated = "task_updated"
	ChangeDeleted = "task_deleted"
)

// Change is the notice published after a task mutation.
type Change struct {
	Type   string    `json:"type"`
	TaskID uuid.UUID `json:"task_id"`
	TeamID uuid.UUID `json:"team_id"`
}

// Bus is the publish/subscribe transport. *redis.PubSub satisfies it.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Backend satisfies taskstore.Backend.
type Backend struct {
	tasks domain.TaskRepository
	bus   Bus
}

func New(tasks domain.TaskRepository, bus Bus) *Backend {
	return &Backend{tasks: tasks, bus: bus}
}

func (b *Backend) Create(ctx context.Context, in domain.NewTask) (*domain.Task, error) {
	t := in.Task()
	if err := b.tasks.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("live.Backend.Create: %w", err)
	}

	b.publish(ctx, Change{Type: ChangeCreated, TaskID: t.ID, TeamID: t.TeamID})
	return t, nil
}

func (b *Backend) Update(ctx context.Context, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error) {
	t, err := b.tasks.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("live.Backend.Update: %w", err)
	}

	b.publish(ctx, Change{Type: ChangeUpdated, TaskID: t.ID, TeamID: t.TeamID})
	return t, nil
}

func (b *Backend) Delete(ctx context.Context, id uuid.UUID) error {
	t, err := b.tasks.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("live.Backend.Delete: %w", err)
	}

	b.publish(ctx, Change{Type: ChangeDeleted, TaskID: t.ID, TeamID: t.TeamID})
	return nil
}

// Subscribe listens on the team channel before reading the initial snapshot,
// so a change committed in between still triggers a re-read.
func (b *Backend) Subscribe(ctx context.Context, teamID uuid.UUID) (<-chan domain.Snapshot, func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	notices, closeSub, err := b.bus.Subscribe(ctx, redisstore.TeamChannel(teamID))
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("live.Backend.Subscribe: %w", err)
	}

	out := make(chan domain.Snapshot)
	go func() {
		defer close(out)

		for {
			snap, err := b.load(ctx, teamID)
			if err != nil {
				if ctx.Err() == nil {
					log.Error().Err(err).Str("team_id", teamID.String()).Msg("live: reload team tasks")
				}
				return
			}

			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}

			if !waitNotice(ctx, notices) {
				return
			}
		}
	}()

	cleanup := func() {
		cancel()
		closeSub()
	}

	return out, cleanup, nil
}

func (b *Backend) load(ctx context.Context, teamID uuid.UUID) (domain.Snapshot, error) {
	tasks, err := b.tasks.ListByTeam(ctx, teamID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return domain.Snapshot{TeamID: teamID, Tasks: tasks, At: time.Now().UTC()}, nil
}

// publish logs failures instead of returning them; the write has committed.
func (b *Backend) publish(ctx context.Context, c Change) {
	payload, err := json.Marshal(c)
	if err != nil {
		log.Error().Err(err).Msg("live: marshal change")
		return
	}

	if err := b.bus.Publish(ctx, redisstore.TeamChannel(c.TeamID), payload); err != nil {
		log.Warn().Err(err).
			Str("team_id", c.TeamID.String()).
			Str("task_id", c.TaskID.String()).
			Str("type", c.Type).
			Msg("live: publish change")
	}
}

// waitNotice blocks for one notice and then drains any that queued up behind
// it. It returns false when the feed is over.
func waitNotice(ctx context.Context, notices <-chan []byte) bool {
	select {
	case <-ctx.Done():
		return false
	case _, ok := <-notices:
		if !ok {
			return false
		}
	}

	for {
		select {
		case _, ok := <-notices:
			if !ok {
				return false
			}
		default:
			return true
		}
	}
}
