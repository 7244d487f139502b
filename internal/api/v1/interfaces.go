package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/auth"
	"github.com/gosuda/taskboard/internal/domain"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Teams() domain.TeamRepository
	Users() domain.UserRepository
	Tasks() domain.TaskRepository
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Register(ctx context.Context, teamID uuid.UUID, email, password, displayName string) (*domain.User, error)
	Login(ctx context.Context, teamID uuid.UUID, email, password string) (*auth.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
	GetUser(ctx context.Context, teamID, userID uuid.UUID) (*domain.User, error)
}

// TaskService performs task mutations. Writes go through it rather than the
// repository so that live subscribers are notified.
// *taskstore.Client satisfies this interface.
type TaskService interface {
	CreateTask(ctx context.Context, in domain.NewTask) (*domain.Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error
}
