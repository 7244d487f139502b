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

type TeamRepo struct {
	pool *pgxpool.Pool
}

func NewTeamRepo(pool *pgxpool.Pool) *TeamRepo {
	return &TeamRepo{pool: pool}
}

func (r *TeamRepo) Create(ctx context.Context, t *domain.Team) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO teams (id, name, slug, created_at) VALUES ($1, $2, $3, $4)`,
		t.ID, t.Name, t.Slug, t.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("teamRepo.Create: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("teamRepo.Create: %w", err)
	}

	return nil
}

func (r *TeamRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Team, error) {
	var t domain.Team

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, slug, created_at FROM teams WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("teamRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("teamRepo.GetByID: %w", err)
	}

	return &t, nil
}

func (r *TeamRepo) GetBySlug(ctx context.Context, slug string) (*domain.Team, error) {
	var t domain.Team

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, slug, created_at FROM teams WHERE slug = $1`,
		slug,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("teamRepo.GetBySlug: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("teamRepo.GetBySlug: %w", err)
	}

	return &t, nil
}
