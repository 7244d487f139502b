package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/auth"
	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/server/middleware"
)

type RegisterInput struct {
	Body struct {
		TeamSlug    string `json:"team_slug" minLength:"1" maxLength:"63" doc:"Team slug"`
		Email       string `json:"email" minLength:"3" maxLength:"255" doc:"User email"`
		Password    string `json:"password" minLength:"8" maxLength:"128" doc:"Password"` //nolint:gosec // G117: login credential DTO
		DisplayName string `json:"display_name" minLength:"1" maxLength:"255" doc:"Display name"`
	}
}

type RegisterOutput struct {
	Body struct {
		User         *domain.User `json:"user"`
		AccessToken  string       `json:"access_token"`  //nolint:gosec // G117: auth response DTO
		RefreshToken string       `json:"refresh_token"` //nolint:gosec // G117: auth response DTO
		ExpiresAt    time.Time    `json:"expires_at"`
	}
}

type LoginInput struct {
	Body struct {
		TeamSlug string `json:"team_slug" minLength:"1" maxLength:"63" doc:"Team slug"`
		Email    string `json:"email" minLength:"3" maxLength:"255" doc:"User email"`
		Password string `json:"password" minLength:"1" maxLength:"128" doc:"Password"` //nolint:gosec // G117: login credential DTO
	}
}

type LoginOutput struct {
	Body *auth.TokenPair
}

type RefreshInput struct {
	Body struct {
		RefreshToken string `json:"refresh_token" minLength:"1" doc:"Refresh token"` //nolint:gosec // G117: token refresh DTO
	}
}

type RefreshOutput struct {
	Body struct {
		AccessToken string `json:"access_token"` //nolint:gosec // G117: auth response DTO
	}
}

type MeOutput struct {
	Body auth.Identity
}

func RegisterAuthRoutes(api huma.API, store DataStore, authSvc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Register a new team member",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *RegisterInput) (*RegisterOutput, error) {
		teamID, err := lookupTeam(ctx, store, input.Body.TeamSlug)
		if err != nil {
			return nil, err
		}

		user, err := authSvc.Register(ctx, teamID, input.Body.Email, input.Body.Password, input.Body.DisplayName)
		if err != nil {
			if errors.Is(err, auth.ErrUserAlreadyExists) {
				return nil, huma.Error409Conflict("user already exists")
			}
			return nil, toHTTPError(err, "failed to register user")
		}

		pair, err := authSvc.Login(ctx, teamID, input.Body.Email, input.Body.Password)
		if err != nil {
			return nil, toHTTPError(err, "failed to issue tokens")
		}

		out := &RegisterOutput{}
		out.Body.User = user
		out.Body.AccessToken = pair.AccessToken
		out.Body.RefreshToken = pair.RefreshToken
		out.Body.ExpiresAt = pair.ExpiresAt
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Authenticate and receive tokens",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
		team, err := store.Teams().GetBySlug(ctx, input.Body.TeamSlug)
		if err != nil {
			// An unknown team answers like a bad password.
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error401Unauthorized("invalid credentials")
			}
			return nil, toHTTPError(err, "failed to look up team")
		}

		pair, err := authSvc.Login(ctx, team.ID, input.Body.Email, input.Body.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				return nil, huma.Error401Unauthorized("invalid credentials")
			}
			return nil, toHTTPError(err, "failed to log in")
		}

		return &LoginOutput{Body: pair}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refresh-token",
		Method:      http.MethodPost,
		Path:        "/auth/refresh",
		Summary:     "Refresh an access token",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *RefreshInput) (*RefreshOutput, error) {
		accessToken, err := authSvc.RefreshToken(ctx, input.Body.RefreshToken)
		if err != nil {
			return nil, huma.Error401Unauthorized("invalid refresh token")
		}

		out := &RefreshOutput{}
		out.Body.AccessToken = accessToken
		return out, nil
	})
}

// RegisterMeRoute mounts the signed-in identity lookup. It must sit behind
// middleware.Auth.
func RegisterMeRoute(api huma.API, authSvc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID: "get-me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Get the signed-in user",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, _ *struct{}) (*MeOutput, error) {
		teamID, userID, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		user, err := authSvc.GetUser(ctx, teamID, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error401Unauthorized("user no longer exists")
			}
			return nil, toHTTPError(err, "failed to load user")
		}

		return &MeOutput{Body: auth.IdentityOf(user)}, nil
	})
}

func lookupTeam(ctx context.Context, store DataStore, slug string) (uuid.UUID, error) {
	team, err := store.Teams().GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return uuid.Nil, huma.Error404NotFound("team not found")
		}
		return uuid.Nil, toHTTPError(err, "failed to look up team")
	}
	return team.ID, nil
}

func principal(ctx context.Context) (teamID, userID uuid.UUID, err error) {
	teamID, ok := middleware.TeamIDFromContext(ctx)
	if !ok {
		return uuid.Nil, uuid.Nil, huma.Error403Forbidden("team context required")
	}
	userID, ok = middleware.UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, uuid.Nil, huma.Error401Unauthorized("authentication required")
	}
	return teamID, userID, nil
}
