package domain

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Team is the partition boundary for tasks. Every query and subscription is
// scoped to exactly one team.
type Team struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTeam creates a Team. Invalid input yields a *ValidationError.
func NewTeam(name, slug string) (*Team, error) {
	name = strings.TrimSpace(name)

	verr := &ValidationError{}
	if name == "" {
		verr.Add("name", "Name is required")
	}
	if !slugPattern.MatchString(slug) {
		verr.Add("slug", "Slug must be lowercase letters, digits and dashes")
	}
	if err := verr.ErrOrNil(); err != nil {
		return nil, err
	}

	return &Team{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slug,
		CreatedAt: time.Now(),
	}, nil
}

type TeamRepository interface {
	Create(ctx context.Context, t *Team) error
	GetByID(ctx context.Context, id uuid.UUID) (*Team, error)
	GetBySlug(ctx context.Context, slug string) (*Team, error)
}
