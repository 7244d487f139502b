package auth

import (
	"sync"

	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/domain"
)

// Identity is the signed-in user as the board client sees it.
type Identity struct {
	ID          uuid.UUID `json:"id"`
	TeamID      uuid.UUID `json:"team_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
}

func IdentityOf(u *domain.User) Identity {
	return Identity{ID: u.ID, TeamID: u.TeamID, DisplayName: u.DisplayName, Email: u.Email}
}

// Session tracks who is signed in on a client. The zero value is signed out.
type Session struct {
	mu       sync.RWMutex
	identity *Identity
	token    string
}

func (s *Session) SignIn(id Identity, accessToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = &id
	s.token = accessToken
}

func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = nil
	s.token = ""
}

func (s *Session) SignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil
}

// Current returns the signed-in identity.
func (s *Session) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// Token is the access token of the current session, empty when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}
