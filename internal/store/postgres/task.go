package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/taskboard/internal/domain"
)

const taskColumns = `id, team_id, title, description, status, created_by, assigned_to, created_at, updated_at`

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

// Create inserts t with a database-generated ID. created_at and updated_at
// both come from the same transaction timestamp, so they are equal.
func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tasks (id, team_id, title, description, status, created_by, assigned_to, created_at, updated_at)
		 VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, now(), now())
		 RETURNING id, created_at, updated_at`,
		t.TeamID, t.Title, t.Description, string(t.Status), t.CreatedBy, t.AssignedTo,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("taskRepo.Create: %w", err)
	}

	return nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`,
		id,
	)

	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("taskRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("taskRepo.GetByID: %w", err)
	}

	return t, nil
}

func (r *TaskRepo) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]*domain.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE team_id = $1
		 ORDER BY created_at, id
		 LIMIT 5000`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.ListByTeam: %w", err)
	}
	defer rows.Close()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("taskRepo.ListByTeam: scan: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("taskRepo.ListByTeam: rows: %w", err)
	}

	return tasks, nil
}

// Update applies the non-nil fields of patch and refreshes updated_at.
func (r *TaskRepo) Update(ctx context.Context, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error) {
	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}

	row := r.pool.QueryRow(ctx,
		`UPDATE tasks SET
		        title = COALESCE($2, title),
		        description = COALESCE($3, description),
		        status = COALESCE($4, status),
		        assigned_to = CASE WHEN $5 THEN $6 ELSE assigned_to END,
		        updated_at = GREATEST(now(), created_at)
		 WHERE id = $1
		 RETURNING `+taskColumns,
		id, patch.Title, patch.Description, status, patch.SetAssignee, patch.AssignedTo,
	)

	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("taskRepo.Update: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("taskRepo.Update: %w", err)
	}

	return t, nil
}

func (r *TaskRepo) Delete(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx,
		`DELETE FROM tasks WHERE id = $1 RETURNING `+taskColumns,
		id,
	)

	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("taskRepo.Delete: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("taskRepo.Delete: %w", err)
	}

	return t, nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		t      domain.Task
		status string
	)
	if err := row.Scan(
		&t.ID, &t.TeamID, &t.Title, &t.Description, &status,
		&t.CreatedBy, &t.AssignedTo, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}

	st, err := domain.ParseTaskStatus(status)
	if err != nil {
		return nil, err
	}
	t.Status = st

	return &t, nil
}
