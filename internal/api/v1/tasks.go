package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/domain"
)

type CreateTaskInput struct {
	Body struct {
		Title       string     `json:"title" minLength:"1" maxLength:"500" doc:"Task title"`
		Description string     `json:"description" minLength:"1" doc:"Task description"`
		AssignedTo  *uuid.UUID `json:"assigned_to,omitempty" required:"false" doc:"Assignee user ID"`
	}
}

type TaskOutput struct {
	Body *domain.Task
}

type ListTasksInput struct {
	Status string `query:"status" required:"false" doc:"Only tasks in this column (pending, doing, completed)"`
}

type ListTasksOutput struct {
	Body []*domain.Task
}

type GetTaskInput struct {
	ID uuid.UUID `path:"id" doc:"Task ID"`
}

type UpdateTaskInput struct {
	ID   uuid.UUID `path:"id" doc:"Task ID"`
	Body struct {
		Title       *string    `json:"title,omitempty" required:"false" minLength:"1" maxLength:"500" doc:"Task title"`
		Description *string    `json:"description,omitempty" required:"false" minLength:"1" doc:"Task description"`
		AssignedTo  *uuid.UUID `json:"assigned_to,omitempty" required:"false" doc:"New assignee user ID"`
		Unassign    bool       `json:"unassign,omitempty" required:"false" doc:"Clear the assignee"`
		Status      *string    `json:"status,omitempty" required:"false" doc:"Target column, applied in the same write as the other fields"`
	}
}

type UpdateStatusInput struct {
	ID   uuid.UUID `path:"id" doc:"Task ID"`
	Body struct {
		Status string `json:"status" doc:"Target column: pending, doing or completed"`
	}
}

type UpdateStatusOutput struct {
	Body struct {
		Task    *domain.Task `json:"task"`
		Changed bool         `json:"changed" doc:"False when the task was already in the target column"`
	}
}

type DeleteTaskInput struct {
	ID uuid.UUID `path:"id" doc:"Task ID"`
}

func RegisterTaskRoutes(api huma.API, store DataStore, tasks TaskService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create a task",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateTaskInput) (*TaskOutput, error) {
		teamID, userID, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		if input.Body.AssignedTo != nil {
			if err := checkMember(ctx, store, teamID, *input.Body.AssignedTo); err != nil {
				return nil, err
			}
		}

		task, err := tasks.CreateTask(ctx, domain.NewTask{
			TeamID:      teamID,
			CreatedBy:   userID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			AssignedTo:  input.Body.AssignedTo,
		})
		if err != nil {
			return nil, toHTTPError(err, "failed to create task")
		}

		return &TaskOutput{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List the team's tasks",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *ListTasksInput) (*ListTasksOutput, error) {
		teamID, _, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		var status domain.TaskStatus
		if input.Status != "" {
			status, err = domain.ParseTaskStatus(input.Status)
			if err != nil {
				return nil, toHTTPError(err, "")
			}
		}

		all, err := store.Tasks().ListByTeam(ctx, teamID)
		if err != nil {
			return nil, toHTTPError(err, "failed to list tasks")
		}

		out := make([]*domain.Task, 0, len(all))
		for _, t := range all {
			if status == "" || t.Status == status {
				out = append(out, t)
			}
		}

		return &ListTasksOutput{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get a task by ID",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *GetTaskInput) (*TaskOutput, error) {
		task, err := ownedTask(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}

		return &TaskOutput{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}",
		Summary:     "Edit a task",
		Description: "All supplied fields are applied in one write. A status equal to the current one is ignored.",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *UpdateTaskInput) (*TaskOutput, error) {
		var target domain.TaskStatus
		if input.Body.Status != nil {
			var err error
			if target, err = domain.ParseTaskStatus(*input.Body.Status); err != nil {
				return nil, toHTTPError(err, "")
			}
		}

		task, err := ownedTask(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}

		if input.Body.Unassign && input.Body.AssignedTo != nil {
			return nil, huma.Error422UnprocessableEntity("assigned_to and unassign are mutually exclusive")
		}

		patch := domain.TaskPatch{
			Title:       input.Body.Title,
			Description: input.Body.Description,
		}
		switch {
		case input.Body.Unassign:
			patch.SetAssignee = true
		case input.Body.AssignedTo != nil:
			if err := checkMember(ctx, store, task.TeamID, *input.Body.AssignedTo); err != nil {
				return nil, err
			}
			patch.SetAssignee = true
			patch.AssignedTo = input.Body.AssignedTo
		}
		if target != "" && task.Status.ValidTransition(target) {
			patch.Status = &target
		}

		if patch.IsEmpty() && input.Body.Status != nil {
			return &TaskOutput{Body: task}, nil
		}

		updated, err := tasks.UpdateTask(ctx, task.ID, patch)
		if err != nil {
			return nil, toHTTPError(err, "failed to update task")
		}

		return &TaskOutput{Body: updated}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task-status",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}/status",
		Summary:     "Move a task to another column",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *UpdateStatusInput) (*UpdateStatusOutput, error) {
		target, err := domain.ParseTaskStatus(input.Body.Status)
		if err != nil {
			return nil, toHTTPError(err, "")
		}

		task, err := ownedTask(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}

		out := &UpdateStatusOutput{}
		if !task.Status.ValidTransition(target) {
			out.Body.Task = task
			return out, nil
		}

		updated, err := tasks.UpdateTask(ctx, task.ID, domain.StatusPatch(target))
		if err != nil {
			return nil, toHTTPError(err, "failed to update task status")
		}

		out.Body.Task = updated
		out.Body.Changed = true
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete a task",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *DeleteTaskInput) (*struct{}, error) {
		task, err := ownedTask(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}

		if err := tasks.DeleteTask(ctx, task.ID); err != nil {
			return nil, toHTTPError(err, "failed to delete task")
		}

		return nil, nil
	})
}

// ownedTask loads a task and hides it unless it belongs to the caller's team.
func ownedTask(ctx context.Context, store DataStore, id uuid.UUID) (*domain.Task, error) {
	teamID, _, err := principal(ctx)
	if err != nil {
		return nil, err
	}

	task, err := store.Tasks().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("task not found")
		}
		return nil, toHTTPError(err, "failed to get task")
	}

	if task.TeamID != teamID {
		return nil, huma.Error404NotFound("task not found")
	}

	return task, nil
}

func checkMember(ctx context.Context, store DataStore, teamID, userID uuid.UUID) error {
	if _, err := store.Users().GetByID(ctx, teamID, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return huma.Error422UnprocessableEntity("validation failed", &huma.ErrorDetail{
				Location: "body.assigned_to",
				Message:  "Assignee is not a member of this team",
				Value:    userID,
			})
		}
		return toHTTPError(err, "failed to look up assignee")
	}
	return nil
}
