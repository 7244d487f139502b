package v1_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/auth"
	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/server/middleware"
)

// principalCtx returns a context carrying the authenticated team and user.
func principalCtx(teamID, userID uuid.UUID) context.Context {
	return middleware.WithPrincipal(context.Background(), teamID, userID)
}

// ---------------------------------------------------------------------------
// mockDataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	teams *mockTeamRepo
	users *mockUserRepo
	tasks *mockTaskRepo
}

func (m *mockDataStore) Teams() domain.TeamRepository { return m.teams }
func (m *mockDataStore) Users() domain.UserRepository { return m.users }
func (m *mockDataStore) Tasks() domain.TaskRepository { return m.tasks }

// ---------------------------------------------------------------------------
// mockTeamRepo
// ---------------------------------------------------------------------------

type mockTeamRepo struct {
	createFunc    func(ctx context.Context, t *domain.Team) error
	getByIDFunc   func(ctx context.Context, id uuid.UUID) (*domain.Team, error)
	getBySlugFunc func(ctx context.Context, slug string) (*domain.Team, error)
}

func (m *mockTeamRepo) Create(ctx context.Context, t *domain.Team) error {
	return m.createFunc(ctx, t)
}

func (m *mockTeamRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Team, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockTeamRepo) GetBySlug(ctx context.Context, slug string) (*domain.Team, error) {
	return m.getBySlugFunc(ctx, slug)
}

// ---------------------------------------------------------------------------
// mockUserRepo
// ---------------------------------------------------------------------------

type mockUserRepo struct {
	createFunc     func(ctx context.Context, u *domain.User) error
	getByIDFunc    func(ctx context.Context, teamID, id uuid.UUID) (*domain.User, error)
	getByEmailFunc func(ctx context.Context, teamID uuid.UUID, email string) (*domain.User, error)
	listByTeamFunc func(ctx context.Context, teamID uuid.UUID) ([]*domain.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	return m.createFunc(ctx, u)
}

func (m *mockUserRepo) GetByID(ctx context.Context, teamID, id uuid.UUID) (*domain.User, error) {
	return m.getByIDFunc(ctx, teamID, id)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, teamID uuid.UUID, email string) (*domain.User, error) {
	return m.getByEmailFunc(ctx, teamID, email)
}

func (m *mockUserRepo) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]*domain.User, error) {
	return m.listByTeamFunc(ctx, teamID)
}

// ---------------------------------------------------------------------------
// mockTaskRepo
// ---------------------------------------------------------------------------

type mockTaskRepo struct {
	createFunc     func(ctx context.Context, t *domain.Task) error
	getByIDFunc    func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	listByTeamFunc func(ctx context.Context, teamID uuid.UUID) ([]*domain.Task, error)
	updateFunc     func(ctx context.Context, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error)
	deleteFunc     func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
}

func (m *mockTaskRepo) Create(ctx context.Context, t *domain.Task) error {
	return m.createFunc(ctx, t)
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockTaskRepo) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]*domain.Task, error) {
	return m.listByTeamFunc(ctx, teamID)
}

func (m *mockTaskRepo) Update(ctx context.Context, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error) {
	return m.updateFunc(ctx, id, patch)
}

func (m *mockTaskRepo) Delete(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// mockTaskService
// ---------------------------------------------------------------------------

type mockTaskService struct {
	createFunc func(ctx context.Context, in domain.NewTask) (*domain.Task, error)
	updateFunc func(ctx context.Context, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error)
	deleteFunc func(ctx context.Context, id uuid.UUID) error
}

func (m *mockTaskService) CreateTask(ctx context.Context, in domain.NewTask) (*domain.Task, error) {
	return m.createFunc(ctx, in)
}

func (m *mockTaskService) UpdateTask(ctx context.Context, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error) {
	return m.updateFunc(ctx, id, patch)
}

func (m *mockTaskService) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// mockAuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	registerFunc     func(ctx context.Context, teamID uuid.UUID, email, password, displayName string) (*domain.User, error)
	loginFunc        func(ctx context.Context, teamID uuid.UUID, email, password string) (*auth.TokenPair, error)
	refreshTokenFunc func(ctx context.Context, refreshToken string) (string, error)
	getUserFunc      func(ctx context.Context, teamID, userID uuid.UUID) (*domain.User, error)
}

func (m *mockAuthService) Register(ctx context.Context, teamID uuid.UUID, email, password, displayName string) (*domain.User, error) {
	return m.registerFunc(ctx, teamID, email, password, displayName)
}

func (m *mockAuthService) Login(ctx context.Context, teamID uuid.UUID, email, password string) (*auth.TokenPair, error) {
	return m.loginFunc(ctx, teamID, email, password)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshTokenFunc(ctx, refreshToken)
}

func (m *mockAuthService) GetUser(ctx context.Context, teamID, userID uuid.UUID) (*domain.User, error) {
	return m.getUserFunc(ctx, teamID, userID)
}
