package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/taskboard/internal/domain"
)

type CreateTeamInput struct {
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"255" doc:"Team name"`
		Slug string `json:"slug" minLength:"1" maxLength:"63" doc:"URL-safe team slug"`
	}
}

type TeamOutput struct {
	Body *domain.Team
}

// RegisterTeamRoutes mounts team creation. It is public: a team must exist
// before anyone can register into it.
func RegisterTeamRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-team",
		Method:        http.MethodPost,
		Path:          "/teams",
		Summary:       "Create a team",
		Tags:          []string{"Teams"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateTeamInput) (*TeamOutput, error) {
		team, err := domain.NewTeam(input.Body.Name, input.Body.Slug)
		if err != nil {
			return nil, toHTTPError(err, "failed to create team")
		}

		if err := store.Teams().Create(ctx, team); err != nil {
			return nil, toHTTPError(err, "failed to create team")
		}

		return &TeamOutput{Body: team}, nil
	})
}
