package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/taskboard/internal/api/v1"
	"github.com/gosuda/taskboard/internal/domain"
)

func fixtureTask(teamID uuid.UUID, status domain.TaskStatus) *domain.Task {
	now := time.Now().UTC()
	return &domain.Task{
		ID:          uuid.New(),
		TeamID:      teamID,
		Title:       "Design UI",
		Description: "Create mockups",
		Status:      status,
		CreatedBy:   uuid.New(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func taskStore(task *domain.Task) *mockDataStore {
	return &mockDataStore{
		tasks: &mockTaskRepo{
			getByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.Task, error) {
				if task == nil || id != task.ID {
					return nil, domain.ErrNotFound
				}
				return task.Clone(), nil
			},
		},
	}
}

// ---------------------------------------------------------------------------
// POST /tasks
// ---------------------------------------------------------------------------

func TestCreateTask(t *testing.T) {
	t.Parallel()

	teamID := uuid.New()
	userID := uuid.New()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		var got domain.NewTask
		_, api := humatest.New(t)
		svc := &mockTaskService{
			createFunc: func(_ context.Context, in domain.NewTask) (*domain.Task, error) {
				got = in
				task := in.Task()
				task.ID = uuid.New()
				task.CreatedAt = time.Now()
				task.UpdatedAt = task.CreatedAt
				return task, nil
			},
		}
		v1.RegisterTaskRoutes(api, &mockDataStore{}, svc)

		resp := api.PostCtx(principalCtx(teamID, userID), "/tasks", map[string]any{
			"title":       "Design UI",
			"description": "Create mockups",
		})

		require.Equal(t, http.StatusCreated, resp.Code)
		assert.Equal(t, teamID, got.TeamID)
		assert.Equal(t, userID, got.CreatedBy)
		assert.Nil(t, got.AssignedTo)

		var body domain.Task
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Design UI", body.Title)
		assert.Equal(t, domain.TaskStatusPending, body.Status)
		assert.NotEqual(t, uuid.Nil, body.ID)
	})

	t.Run("assignee_must_be_team_member", func(t *testing.T) {
		t.Parallel()

		stranger := uuid.New()
		_, api := humatest.New(t)
		store := &mockDataStore{
			users: &mockUserRepo{
				getByIDFunc: func(_ context.Context, tid, id uuid.UUID) (*domain.User, error) {
					assert.Equal(t, teamID, tid)
					assert.Equal(t, stranger, id)
					return nil, domain.ErrNotFound
				},
			},
		}
		svc := &mockTaskService{
			createFunc: func(context.Context, domain.NewTask) (*domain.Task, error) {
				t.Fatal("CreateTask must not be called")
				return nil, nil
			},
		}
		v1.RegisterTaskRoutes(api, store, svc)

		resp := api.PostCtx(principalCtx(teamID, userID), "/tasks", map[string]any{
			"title":       "Design UI",
			"description": "Create mockups",
			"assigned_to": stranger.String(),
		})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		assert.Contains(t, resp.Body.String(), "body.assigned_to")
	})

	t.Run("blank_description_is_field_error", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockTaskService{
			createFunc: func(_ context.Context, in domain.NewTask) (*domain.Task, error) {
				return nil, in.Validate()
			},
		}
		v1.RegisterTaskRoutes(api, &mockDataStore{}, svc)

		resp := api.PostCtx(principalCtx(teamID, userID), "/tasks", map[string]any{
			"title":       "Design UI",
			"description": "   ",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		assert.Contains(t, resp.Body.String(), "body.description")
		assert.Contains(t, resp.Body.String(), domain.MsgDescriptionRequired)
	})

	t.Run("missing_title_rejected_by_schema", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterTaskRoutes(api, &mockDataStore{}, &mockTaskService{})

		resp := api.PostCtx(principalCtx(teamID, userID), "/tasks", map[string]any{
			"description": "Create mockups",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("backend_unavailable", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockTaskService{
			createFunc: func(context.Context, domain.NewTask) (*domain.Task, error) {
				return nil, domain.ErrBackend
			},
		}
		v1.RegisterTaskRoutes(api, &mockDataStore{}, svc)

		resp := api.PostCtx(principalCtx(teamID, userID), "/tasks", map[string]any{
			"title":       "Design UI",
			"description": "Create mockups",
		})

		assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	})

	t.Run("no_principal", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterTaskRoutes(api, &mockDataStore{}, &mockTaskService{})

		resp := api.Post("/tasks", map[string]any{
			"title":       "Design UI",
			"description": "Create mockups",
		})

		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// GET /tasks
// ---------------------------------------------------------------------------

func TestListTasks(t *testing.T) {
	t.Parallel()

	teamID := uuid.New()
	pending := fixtureTask(teamID, domain.TaskStatusPending)
	doing := fixtureTask(teamID, domain.TaskStatusDoing)

	newAPI := func(t *testing.T) humatest.TestAPI {
		_, api := humatest.New(t)
		store := &mockDataStore{
			tasks: &mockTaskRepo{
				listByTeamFunc: func(_ context.Context, tid uuid.UUID) ([]*domain.Task, error) {
					assert.Equal(t, teamID, tid)
					return []*domain.Task{pending, doing}, nil
				},
			},
		}
		v1.RegisterTaskRoutes(api, store, &mockTaskService{})
		return api
	}

	t.Run("all", func(t *testing.T) {
		t.Parallel()

		resp := newAPI(t).GetCtx(principalCtx(teamID, uuid.New()), "/tasks")
		require.Equal(t, http.StatusOK, resp.Code)

		var body []domain.Task
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Len(t, body, 2)
	})

	t.Run("filtered_by_status", func(t *testing.T) {
		t.Parallel()

		resp := newAPI(t).GetCtx(principalCtx(teamID, uuid.New()), "/tasks?status=doing")
		require.Equal(t, http.StatusOK, resp.Code)

		var body []domain.Task
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body, 1)
		assert.Equal(t, doing.ID, body[0].ID)
	})

	t.Run("unknown_status", func(t *testing.T) {
		t.Parallel()

		resp := newAPI(t).GetCtx(principalCtx(teamID, uuid.New()), "/tasks?status=archived")
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// GET /tasks/{id}
// ---------------------------------------------------------------------------

func TestGetTask(t *testing.T) {
	t.Parallel()

	teamID := uuid.New()
	task := fixtureTask(teamID, domain.TaskStatusPending)

	t.Run("own_team", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterTaskRoutes(api, taskStore(task), &mockTaskService{})

		resp := api.GetCtx(principalCtx(teamID, uuid.New()), "/tasks/"+task.ID.String())
		require.Equal(t, http.StatusOK, resp.Code)

		var body domain.Task
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, task.ID, body.ID)
	})

	t.Run("other_team_is_hidden", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterTaskRoutes(api, taskStore(task), &mockTaskService{})

		resp := api.GetCtx(principalCtx(uuid.New(), uuid.New()), "/tasks/"+task.ID.String())
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterTaskRoutes(api, taskStore(task), &mockTaskService{})

		resp := api.GetCtx(principalCtx(teamID, uuid.New()), "/tasks/"+uuid.NewString())
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// PUT /tasks/{id}
// ---------------------------------------------------------------------------

func TestUpdateTask(t *testing.T) {
	t.Parallel()

	teamID := uuid.New()

	t.Run("edits_details_without_status", func(t *testing.T) {
		t.Parallel()

		task := fixtureTask(teamID, domain.TaskStatusDoing)
		var got domain.TaskPatch
		_, api := humatest.New(t)
		svc := &mockTaskService{
			updateFunc: func(_ context.Context, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error) {
				assert.Equal(t, task.ID, id)
				got = patch
				out := task.Clone()
				patch.Apply(out, time.Now())
				return out, nil
			},
		}
		v1.RegisterTaskRoutes(api, taskStore(task), svc)

		resp := api.PutCtx(principalCtx(teamID, uuid.New()), "/tasks/"+task.ID.String(), map[string]any{
			"title": "Design UI v2",
		})

		require.Equal(t, http.StatusOK, resp.Code)
		require.NotNil(t, got.Title)
		assert.Equal(t, "Design UI v2", *got.Title)
		assert.Nil(t, got.Status)
		assert.False(t, got.SetAssignee)

		var body domain.Task
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, domain.TaskStatusDoing, body.Status)
	})

	t.Run("unassign", func(t *testing.T) {
		t.Parallel()

		task := fixtureTask(teamID, domain.TaskStatusPending)
		var got domain.TaskPatch
		_, api := humatest.New(t)
		svc := &mockTaskService{
			updateFunc: func(_ context.Context, _ uuid.UUID, patch domain.TaskPatch) (*domain.Task, error) {
				got = patch
				return task, nil
			},
		}
		v1.RegisterTaskRoutes(api, taskStore(task), svc)

		resp := api.PutCtx(principalCtx(teamID, uuid.New()), "/tasks/"+task.ID.String(), map[string]any{
			"unassign": true,
		})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.True(t, got.SetAssignee)
		assert.Nil(t, got.AssignedTo)
	})

	t.Run("empty_patch", func(t *testing.T) {
		t.Parallel()

		task := fixtureTask(teamID, domain.TaskStatusPending)
		_, api := humatest.New(t)
		svc := &mockTaskService{
			updateFunc: func(_ context.Context, _ uuid.UUID, patch domain.TaskPatch) (*domain.Task, error) {
				return nil, patch.Validate()
			},
		}
		v1.RegisterTaskRoutes(api, taskStore(task), svc)

		resp := api.PutCtx(principalCtx(teamID, uuid.New()), "/tasks/"+task.ID.String(), map[string]any{})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("details_and_status_in_one_write", func(t *testing.T) {
		t.Parallel()

		task := fixtureTask(teamID, domain.TaskStatusPending)
		var patches []domain.TaskPatch
		_, api := humatest.New(t)
		svc := &mockTaskService{
			updateFunc: func(_ context.Context, _ uuid.UUID, patch domain.TaskPatch) (*domain.Task, error) {
				patches = append(patches, patch)
				out := task.Clone()
				patch.Apply(out, time.Now())
				return out, nil
			},
		}
		v1.RegisterTaskRoutes(api, taskStore(task), svc)

		resp := api.PutCtx(principalCtx(teamID, uuid.New()), "/tasks/"+task.ID.String(), map[string]any{
			"title":  "new",
			"status": "doing",
		})

		require.Equal(t, http.StatusOK, resp.Code)
		require.Len(t, patches, 1)
		require.NotNil(t, patches[0].Title)
		require.NotNil(t, patches[0].Status)
		assert.Equal(t, "new", *patches[0].Title)
		assert.Equal(t, domain.TaskStatusDoing, *patches[0].Status)

		var body domain.Task
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "new", body.Title)
		assert.Equal(t, domain.TaskStatusDoing, body.Status)
	})

	t.Run("details_and_status_fail_together", func(t *testing.T) {
		t.Parallel()

		task := fixtureTask(teamID, domain.TaskStatusPending)
		_, api := humatest.New(t)
		svc := &mockTaskService{
			updateFunc: func(context.Context, uuid.UUID, domain.TaskPatch) (*domain.Task, error) {
				return nil, fmt.Errorf("update: %w", domain.ErrBackend)
			},
		}
		v1.RegisterTaskRoutes(api, taskStore(task), svc)

		resp := api.PutCtx(principalCtx(teamID, uuid.New()), "/tasks/"+task.ID.String(), map[string]any{
			"title":  "new",
			"status": "doing",
		})

		assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	})

	t.Run("same_status_only_is_not_a_write", func(t *testing.T) {
		t.Parallel()

		task := fixtureTask(teamID, domain.TaskStatusDoing)
		_, api := humatest.New(t)
		svc := &mockTaskService{
			updateFunc: func(context.Context, uuid.UUID, domain.TaskPatch) (*domain.Task, error) {
				t.Error("unexpected update")
				return nil, errors.New("unexpected")
			},
		}
		v1.RegisterTaskRoutes(api, taskStore(task), svc)

		resp := api.PutCtx(principalCtx(teamID, uuid.New()), "/tasks/"+task.ID.String(), map[string]any{
			"status": "doing",
		})

		require.Equal(t, http.StatusOK, resp.Code)
		var body domain.Task
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, domain.TaskStatusDoing, body.Status)
	})

	t.Run("unknown_status", func(t *testing.T) {
		t.Parallel()

		task := fixtureTask(teamID, domain.TaskStatusPending)
		_, api := humatest.New(t)
		v1.RegisterTaskRoutes(api, taskStore(task), &mockTaskService{})

		resp := api.PutCtx(principalCtx(teamID, uuid.New()), "/tasks/"+task.ID.String(), map[string]any{
			"title":  "new",
			"status": "archived",
		})

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("other_team", func(t *testing.T) {
		t.Parallel()

		task := fixtureTask(teamID, domain.TaskStatusPending)
		_, api := humatest.New(t)
		v1.RegisterTaskRoutes(api, taskStore(task), &mockTaskService{})

		resp := api.PutCtx(principalCtx(uuid.New(), uuid.New()), "/tasks/"+task.ID.String(), map[string]any{
			"title": "hijack",
		})

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// PATCH /tasks/{id}/status
// ---------------------------------------------------------------------------

func TestUpdateTaskStatus(t *testing.T) {
	t.Parallel()

	teamID := uuid.New()

	t.Run("moves_to_new_column", func(t *testing.T) {
		t.Parallel()

		task := fixtureTask(teamID, domain.TaskStatusPending)
		var calls int
		_, api := humatest.New(t)
		svc := &mockTaskService{
			updateFunc: func(_ context.Context, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error) {
				calls++
				require.NotNil(t, patch.Status)
				assert.Equal(t, domain.TaskStatusDoing, *patch.Status)
				assert.Nil(t, patch.Title)
				assert.Nil(t, patch.Description)
				out := task.Clone()
				patch.Apply(out, time.Now())
				return out, nil
			},
		}
		v1.RegisterTaskRoutes(api, taskStore(task), svc)

		resp := api.PatchCtx(principalCtx(teamID, uuid.New()), "/tasks/"+task.ID.String()+"/status", map[string]any{
			"status": "doing",
		})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, 1, calls)

		var body struct {
			Task    domain.Task `json:"task"`
			Changed bool        `json:"changed"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.True(t, body.Changed)
		assert.Equal(t, domain.TaskStatusDoing, body.Task.Status)
	})

	t.Run("same_column_is_not_a_write", func(t *testing.T) {
		t.Parallel()

		task := fixtureTask(teamID, domain.TaskStatusDoing)
		_, api := humatest.New(t)
		svc := &mockTaskService{
			updateFunc: func(context.Context, uuid.UUID, domain.TaskPatch) (*domain.Task, error) {
				t.Fatal("UpdateTask must not be called for a self-transition")
				return nil, nil
			},
		}
		v1.RegisterTaskRoutes(api, taskStore(task), svc)

		resp := api.PatchCtx(principalCtx(teamID, uuid.New()), "/tasks/"+task.ID.String()+"/status", map[string]any{
			"status": "doing",
		})

		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Changed bool `json:"changed"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.False(t, body.Changed)
	})

	t.Run("unknown_status", func(t *testing.T) {
		t.Parallel()

		task := fixtureTask(teamID, domain.TaskStatusPending)
		_, api := humatest.New(t)
		v1.RegisterTaskRoutes(api, taskStore(task), &mockTaskService{})

		resp := api.PatchCtx(principalCtx(teamID, uuid.New()), "/tasks/"+task.ID.String()+"/status", map[string]any{
			"status": "archived",
		})

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("backend_failure", func(t *testing.T) {
		t.Parallel()

		task := fixtureTask(teamID, domain.TaskStatusPending)
		_, api := humatest.New(t)
		svc := &mockTaskService{
			updateFunc: func(context.Context, uuid.UUID, domain.TaskPatch) (*domain.Task, error) {
				return nil, errors.Join(domain.ErrBackend, errors.New("connection reset"))
			},
		}
		v1.RegisterTaskRoutes(api, taskStore(task), svc)

		resp := api.PatchCtx(principalCtx(teamID, uuid.New()), "/tasks/"+task.ID.String()+"/status", map[string]any{
			"status": "completed",
		})

		assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// DELETE /tasks/{id}
// ---------------------------------------------------------------------------

func TestDeleteTask(t *testing.T) {
	t.Parallel()

	teamID := uuid.New()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		task := fixtureTask(teamID, domain.TaskStatusCompleted)
		var deleted uuid.UUID
		_, api := humatest.New(t)
		svc := &mockTaskService{
			deleteFunc: func(_ context.Context, id uuid.UUID) error {
				deleted = id
				return nil
			},
		}
		v1.RegisterTaskRoutes(api, taskStore(task), svc)

		resp := api.DeleteCtx(principalCtx(teamID, uuid.New()), "/tasks/"+task.ID.String())

		assert.Equal(t, http.StatusNoContent, resp.Code)
		assert.Equal(t, task.ID, deleted)
	})

	t.Run("other_team", func(t *testing.T) {
		t.Parallel()

		task := fixtureTask(teamID, domain.TaskStatusCompleted)
		_, api := humatest.New(t)
		v1.RegisterTaskRoutes(api, taskStore(task), &mockTaskService{})

		resp := api.DeleteCtx(principalCtx(uuid.New(), uuid.New()), "/tasks/"+task.ID.String())

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// GET /board
// ---------------------------------------------------------------------------

func TestGetBoard(t *testing.T) {
	t.Parallel()

	teamID := uuid.New()
	tasks := []*domain.Task{
		fixtureTask(teamID, domain.TaskStatusPending),
		fixtureTask(teamID, domain.TaskStatusPending),
		fixtureTask(teamID, domain.TaskStatusCompleted),
	}

	_, api := humatest.New(t)
	store := &mockDataStore{
		tasks: &mockTaskRepo{
			listByTeamFunc: func(context.Context, uuid.UUID) ([]*domain.Task, error) {
				return tasks, nil
			},
		},
	}
	v1.RegisterBoardRoutes(api, store)

	resp := api.GetCtx(principalCtx(teamID, uuid.New()), "/board")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Columns []domain.Column `json:"columns"`
		Total   int             `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 3, body.Total)
	require.Len(t, body.Columns, 3)
	assert.Equal(t, domain.TaskStatusPending, body.Columns[0].Status)
	assert.Equal(t, 2, body.Columns[0].Count)
	assert.Equal(t, 0, body.Columns[1].Count)
	assert.Empty(t, body.Columns[1].Tasks)
	assert.Equal(t, "Completed", body.Columns[2].Title)
}
