package client_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskboard/internal/api/ws"
	"github.com/gosuda/taskboard/internal/auth"
	"github.com/gosuda/taskboard/internal/client"
	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/server/middleware"
	"github.com/gosuda/taskboard/internal/store/memory"
	"github.com/gosuda/taskboard/internal/taskstore"
)

var _ taskstore.Backend = (*client.Client)(nil)

// recorder captures the requests a fake server receives.
type recorder struct {
	mu   sync.Mutex
	reqs []recorded
}

type recorded struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

func (rec *recorder) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.Body != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &body)
			r.Body = io.NopCloser(bytes.NewReader(raw))
		}
		rec.mu.Lock()
		rec.reqs = append(rec.reqs, recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Auth:   r.Header.Get("Authorization"),
			Body:   body,
		})
		rec.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (rec *recorder) all() []recorded {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]recorded(nil), rec.reqs...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newServer(t *testing.T, routes func(r chi.Router)) (*httptest.Server, *recorder) {
	t.Helper()

	rec := &recorder{}
	r := chi.NewRouter()
	r.Use(rec.middleware)
	r.Route("/api/v1", routes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestLoginStoresToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	srv, rec := newServer(t, func(r chi.Router) {
		r.Post("/auth/login", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, auth.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"})
		})
		r.Get("/auth/me", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, auth.Identity{ID: userID, DisplayName: "Alice"})
		})
	})

	c := client.New(srv.URL+"/", "")
	pair, err := c.Login(context.Background(), "acme", "alice@acme.io", "password123")
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", pair.RefreshToken)
	assert.Equal(t, "access-1", c.Token())

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, userID, me.ID)

	reqs := rec.all()
	require.Len(t, reqs, 2)
	assert.Equal(t, "acme", reqs[0].Body["team_slug"])
	assert.Empty(t, reqs[0].Auth)
	assert.Equal(t, "Bearer access-1", reqs[1].Auth)
}

func TestCreate(t *testing.T) {
	t.Parallel()

	assignee := uuid.New()
	srv, rec := newServer(t, func(r chi.Router) {
		r.Post("/tasks", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusCreated, domain.Task{ID: uuid.New(), Title: "Design UI", Status: domain.TaskStatusPending})
		})
	})

	c := client.New(srv.URL, "tok")
	task, err := c.Create(context.Background(), domain.NewTask{
		TeamID:      uuid.New(),
		CreatedBy:   uuid.New(),
		Title:       "Design UI",
		Description: "Create mockups",
		AssignedTo:  &assignee,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, task.Status)

	reqs := rec.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Design UI", reqs[0].Body["title"])
	assert.Equal(t, assignee.String(), reqs[0].Body["assigned_to"])
	assert.NotContains(t, reqs[0].Body, "team_id")
	assert.NotContains(t, reqs[0].Body, "status")
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	routes := func(r chi.Router) {
		r.Put("/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
			var in struct {
				Status string `json:"status"`
			}
			_ = json.NewDecoder(r.Body).Decode(&in)
			task := domain.Task{ID: id, Title: "edited", Status: domain.TaskStatusPending}
			if in.Status != "" {
				task.Status = domain.TaskStatus(in.Status)
			}
			writeJSON(w, http.StatusOK, task)
		})
		r.Patch("/tasks/{id}/status", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"task":    domain.Task{ID: id, Title: "edited", Status: domain.TaskStatusDoing},
				"changed": true,
			})
		})
	}

	t.Run("status_only", func(t *testing.T) {
		t.Parallel()

		srv, rec := newServer(t, routes)
		task, err := client.New(srv.URL, "tok").Update(context.Background(), id, domain.StatusPatch(domain.TaskStatusDoing))
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusDoing, task.Status)

		reqs := rec.all()
		require.Len(t, reqs, 1)
		assert.Equal(t, http.MethodPatch, reqs[0].Method)
		assert.Equal(t, "/api/v1/tasks/"+id.String()+"/status", reqs[0].Path)
		assert.Equal(t, "doing", reqs[0].Body["status"])
	})

	t.Run("details_only", func(t *testing.T) {
		t.Parallel()

		srv, rec := newServer(t, routes)
		title := "edited"
		_, err := client.New(srv.URL, "tok").Update(context.Background(), id, domain.TaskPatch{
			Title:       &title,
			SetAssignee: true,
		})
		require.NoError(t, err)

		reqs := rec.all()
		require.Len(t, reqs, 1)
		assert.Equal(t, http.MethodPut, reqs[0].Method)
		assert.Equal(t, "edited", reqs[0].Body["title"])
		assert.Equal(t, true, reqs[0].Body["unassign"])
	})

	t.Run("details_and_status", func(t *testing.T) {
		t.Parallel()

		srv, rec := newServer(t, routes)
		title := "edited"
		status := domain.TaskStatusDoing
		task, err := client.New(srv.URL, "tok").Update(context.Background(), id, domain.TaskPatch{
			Title:  &title,
			Status: &status,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusDoing, task.Status)

		reqs := rec.all()
		require.Len(t, reqs, 1, "one request carries the whole patch")
		assert.Equal(t, http.MethodPut, reqs[0].Method)
		assert.Equal(t, "edited", reqs[0].Body["title"])
		assert.Equal(t, "doing", reqs[0].Body["status"])
	})

	t.Run("details_and_status_rejected", func(t *testing.T) {
		t.Parallel()

		srv, rec := newServer(t, func(r chi.Router) {
			r.Put("/tasks/{id}", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{
					"title": "Service Unavailable", "status": 503, "detail": "store unavailable",
				})
			})
			r.Patch("/tasks/{id}/status", func(w http.ResponseWriter, _ *http.Request) {
				t.Error("status endpoint must not be called for a mixed patch")
			})
		})
		title := "new"
		status := domain.TaskStatusDoing
		_, err := client.New(srv.URL, "tok").Update(context.Background(), id, domain.TaskPatch{
			Title:  &title,
			Status: &status,
		})
		require.ErrorIs(t, err, domain.ErrBackend)

		reqs := rec.all()
		require.Len(t, reqs, 1, "a failed write leaves nothing half applied")
		assert.Equal(t, http.MethodPut, reqs[0].Method)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		srv, rec := newServer(t, routes)
		_, err := client.New(srv.URL, "tok").Update(context.Background(), id, domain.TaskPatch{})
		require.ErrorIs(t, err, domain.ErrValidation)
		assert.Empty(t, rec.all())
	})
}

func TestErrors(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t, func(r chi.Router) {
		r.Post("/tasks", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"title":  "Unprocessable Entity",
				"status": 422,
				"detail": "validation failed",
				"errors": []map[string]string{
					{"location": "body.title", "message": domain.MsgTitleRequired},
				},
			})
		})
		r.Delete("/tasks/{id}", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]any{"title": "Not Found", "status": 404, "detail": "task not found"})
		})
		r.Get("/board", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"title": "Service Unavailable", "status": 503})
		})
	})
	c := client.New(srv.URL, "tok")
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		t.Parallel()

		_, err := c.Create(ctx, domain.NewTask{Title: " ", Description: "x"})
		require.ErrorIs(t, err, domain.ErrValidation)

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, domain.MsgTitleRequired, verr.Message("title"))
	})

	t.Run("not_found", func(t *testing.T) {
		t.Parallel()

		err := c.Delete(ctx, uuid.New())
		require.ErrorIs(t, err, domain.ErrNotFound)

		var apiErr *client.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "task not found", apiErr.Detail)
	})

	t.Run("unavailable", func(t *testing.T) {
		t.Parallel()

		_, err := c.Board(ctx)
		assert.ErrorIs(t, err, domain.ErrBackend)
	})

	t.Run("unreachable", func(t *testing.T) {
		t.Parallel()

		dead := httptest.NewServer(http.NotFoundHandler())
		dead.Close()

		_, err := client.New(dead.URL, "").Me(ctx)
		assert.ErrorIs(t, err, domain.ErrBackend)
	})
}

// boardServer serves the real websocket hub for one team on top of an
// in-memory store.
func boardServer(t *testing.T, teamID uuid.UUID) (*httptest.Server, *taskstore.Client) {
	t.Helper()

	tasks := taskstore.New(memory.New())
	hub := ws.NewHub(tasks, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		hub.ServeBoard(w, r.WithContext(middleware.WithPrincipal(r.Context(), teamID, uuid.New())))
	}))
	t.Cleanup(srv.Close)
	return srv, tasks
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	teamID := uuid.New()
	srv, tasks := boardServer(t, teamID)

	snaps, cleanup, err := client.New(srv.URL, "tok").Subscribe(ctx, teamID)
	require.NoError(t, err)
	defer cleanup()

	first := <-snaps
	assert.Equal(t, teamID, first.TeamID)
	assert.Empty(t, first.Tasks)

	_, err = tasks.CreateTask(ctx, domain.NewTask{
		TeamID: teamID, CreatedBy: uuid.New(), Title: "Design UI", Description: "Create mockups",
	})
	require.NoError(t, err)

	select {
	case next := <-snaps:
		require.Len(t, next.Tasks, 1)
		assert.Equal(t, "Design UI", next.Tasks[0].Title)
	case <-ctx.Done():
		t.Fatal("no snapshot after create")
	}

	cleanup()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-snaps:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubscribe_OtherTeamEndsFeed(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv, _ := boardServer(t, uuid.New())

	snaps, cleanup, err := client.New(srv.URL, "tok").Subscribe(ctx, uuid.New())
	require.NoError(t, err)
	defer cleanup()

	select {
	case _, ok := <-snaps:
		assert.False(t, ok)
	case <-ctx.Done():
		t.Fatal("feed stayed open")
	}
}

func TestSubscribe_Unauthorized(t *testing.T) {
	t.Parallel()

	srv, _ := boardServer(t, uuid.New())

	_, _, err := client.New(srv.URL, "wrong").Subscribe(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}
