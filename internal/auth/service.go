package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/gosuda/taskboard/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrUserAlreadyExists  = fmt.Errorf("auth: user already exists: %w", domain.ErrConflict)
	ErrUserNotFound       = errors.New("auth: user not found")
)

// argon2id parameters following OWASP recommendations.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

const minPasswordLen = 8

// TokenPair is what a successful login returns.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Service registers users, checks passwords and issues tokens.
type Service struct {
	users      domain.UserRepository
	jwtSecret  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(users domain.UserRepository, jwtSecret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		users:      users,
		jwtSecret:  jwtSecret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Register creates a team member. The password is stored as an argon2id hash.
func (s *Service) Register(ctx context.Context, teamID uuid.UUID, email, password, displayName string) (*domain.User, error) {
	email = normalizeEmail(email)
	displayName = strings.TrimSpace(displayName)

	verr := &domain.ValidationError{}
	if _, err := mail.ParseAddress(email); err != nil {
		verr.Add("email", "A valid email address is required")
	}
	if len(password) < minPasswordLen {
		verr.Add("password", fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	}
	if displayName == "" {
		verr.Add("display_name", "Display name is required")
	}
	if err := verr.ErrOrNil(); err != nil {
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	if existing, err := s.users.GetByEmail(ctx, teamID, email); err == nil && existing != nil {
		return nil, fmt.Errorf("auth.Register: %w", ErrUserAlreadyExists)
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		TeamID:       teamID,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("auth.Register: %w", ErrUserAlreadyExists)
		}
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	return user, nil
}

// Login checks email and password within a team and issues a token pair.
func (s *Service) Login(ctx context.Context, teamID uuid.UUID, email, password string) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, teamID, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	if !verifyPassword(password, user.PasswordHash) {
		return nil, fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, fmt.Errorf("auth.Login: %w", err)
	}

	return pair, nil
}

// RefreshToken exchanges a refresh token for a new access token.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := ValidateToken(s.jwtSecret, refreshToken)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	if claims.TokenType != TokenTypeRefresh {
		return "", fmt.Errorf("auth.RefreshToken: %w", ErrInvalidToken)
	}

	teamID, userID, err := claims.IDs()
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	// The user may have been removed since the refresh token was issued.
	user, err := s.users.GetByID(ctx, teamID, userID)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", ErrUserNotFound)
	}

	access, err := IssueAccessToken(s.jwtSecret, user.TeamID, user.ID, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	return access, nil
}

func (s *Service) GetUser(ctx context.Context, teamID, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, teamID, userID)
	if err != nil {
		return nil, fmt.Errorf("auth.GetUser: %w", err)
	}

	return user, nil
}

func (s *Service) issuePair(user *domain.User) (*TokenPair, error) {
	access, err := IssueAccessToken(s.jwtSecret, user.TeamID, user.ID, s.accessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := IssueRefreshToken(s.jwtSecret, user.TeamID, user.ID, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(s.accessTTL),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// hashPassword returns hex(salt) + "$" + hex(argon2id(password, salt)).
func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

func verifyPassword(password, encoded string) bool {
	saltHex, hashHex, ok := strings.Cut(encoded, "$")
	if !ok || saltHex == "" || hashHex == "" {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}

	want, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return subtle.ConstantTimeCompare(got, want) == 1
}
