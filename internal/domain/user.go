package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	TeamID       uuid.UUID `json:"team_id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"` // argon2id
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, teamID, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, teamID uuid.UUID, email string) (*User, error)
	ListByTeam(ctx context.Context, teamID uuid.UUID) ([]*User, error)
}
