package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/taskboard/internal/domain"
)

type GetBoardOutput struct {
	Body struct {
		Columns []domain.Column `json:"columns"`
		Total   int             `json:"total"`
		At      time.Time       `json:"at"`
	}
}

// RegisterBoardRoutes mounts the one-shot board read. Live clients use the
// websocket feed instead.
func RegisterBoardRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/board",
		Summary:     "Get the team's board grouped by status",
		Tags:        []string{"Board"},
	}, func(ctx context.Context, _ *struct{}) (*GetBoardOutput, error) {
		teamID, _, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		tasks, err := store.Tasks().ListByTeam(ctx, teamID)
		if err != nil {
			return nil, toHTTPError(err, "failed to list tasks for board")
		}

		out := &GetBoardOutput{}
		out.Body.Columns = domain.Columns(tasks)
		out.Body.Total = len(tasks)
		out.Body.At = time.Now().UTC()
		return out, nil
	})
}
