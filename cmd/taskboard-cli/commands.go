package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gosuda/taskboard/internal/auth"
	"github.com/gosuda/taskboard/internal/board"
	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/taskform"
)

// ---------------------------------------------------------------------------
// Account
// ---------------------------------------------------------------------------

func newTeamsCmd(a *app) *cobra.Command {
	teams := &cobra.Command{
		Use:   "teams",
		Short: "Manage teams",
	}
	teams.AddCommand(&cobra.Command{
		Use:   "create NAME SLUG",
		Short: "Create a team",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			team, err := a.api.CreateTeam(cmd.Context(), args[0], args[1])
			if err != nil {
				return explain(err)
			}
			a.printf("created team %s (%s)\n", team.Slug, team.ID)
			return nil
		},
	})
	return teams
}

type credentials struct {
	team, email, password string
}

func (c *credentials) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.team, "team", "", "team slug")
	cmd.Flags().StringVar(&c.email, "email", "", "email address")
	cmd.Flags().StringVar(&c.password, "password", "", "password")
	_ = cmd.MarkFlagRequired("team")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
}

func newRegisterCmd(a *app) *cobra.Command {
	var (
		creds credentials
		name  string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account in a team",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, pair, err := a.api.Register(cmd.Context(), creds.team, creds.email, creds.password, name)
			if err != nil {
				return explain(err)
			}
			a.printf("registered %s\n", user.DisplayName)
			a.printTokens(pair)
			return nil
		},
	}
	creds.bind(cmd)
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print an access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pair, err := a.api.Login(cmd.Context(), creds.team, creds.email, creds.password)
			if err != nil {
				return explain(err)
			}
			a.printTokens(pair)
			return nil
		},
	}
	creds.bind(cmd)
	return cmd
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			me, err := a.api.Me(cmd.Context())
			if err != nil {
				return explain(err)
			}
			a.printf("%s <%s>\nuser %s\nteam %s\n", me.DisplayName, me.Email, me.ID, me.TeamID)
			return nil
		},
	}
}

func (a *app) printTokens(pair *auth.TokenPair) {
	a.printf("export TASKBOARD_TOKEN=%s\n", pair.AccessToken)
	a.printf("# refresh token: %s\n", pair.RefreshToken)
}

// ---------------------------------------------------------------------------
// Board
// ---------------------------------------------------------------------------

func newBoardCmd(a *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the team board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			_, cache, detach, err := a.attach(ctx)
			if err != nil {
				return explain(err)
			}
			defer detach()

			if !watch {
				renderBoard(a.out, cache.Columns())
				return nil
			}

			watchBoard(ctx, a.out, cache)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep printing the board as it changes")
	return cmd
}

// watchBoard prints the board and then every later snapshot until ctx ends.
// The callback goes in before the first render so no replacement is missed.
func watchBoard(ctx context.Context, w io.Writer, cache *board.Cache) {
	var mu sync.Mutex
	cache.OnReplace(func(s domain.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		_, _ = fmt.Fprintf(w, "\n--- %s ---\n", s.At.Local().Format("15:04:05"))
		renderBoard(w, s.Columns())
	})

	mu.Lock()
	renderBoard(w, cache.Columns())
	mu.Unlock()

	<-ctx.Done()
}

// attach resolves the signed-in identity and fills a cache from the team's
// live feed. It returns once the first snapshot has arrived.
func (a *app) attach(ctx context.Context) (auth.Identity, *board.Cache, func(), error) {
	me, err := a.api.Me(ctx)
	if err != nil {
		return auth.Identity{}, nil, nil, err
	}

	cache := board.NewCache()
	ready := make(chan struct{})
	var once sync.Once
	cache.OnReplace(func(domain.Snapshot) { once.Do(func() { close(ready) }) })

	detach, err := board.Attach(ctx, a.tasks, me.TeamID, cache)
	if err != nil {
		return auth.Identity{}, nil, nil, err
	}

	select {
	case <-ready:
	case <-ctx.Done():
		detach()
		return auth.Identity{}, nil, nil, ctx.Err()
	}

	return me, cache, detach, nil
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

func newCreateCmd(a *app) *cobra.Command {
	var title, description, assignee string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pending task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			me, err := a.api.Me(ctx)
			if err != nil {
				return explain(err)
			}

			form := taskform.NewCreate(a.tasks, a.notifier(), me)
			form.SetTitle(title)
			form.SetDescription(description)
			if assignee != "" {
				id, err := uuid.Parse(assignee)
				if err != nil {
					return fmt.Errorf("--assign: %w", err)
				}
				form.SetAssignee(&id)
			}

			task, err := form.Submit(ctx)
			if err != nil {
				return a.formError(err)
			}
			a.printf("%s\n", task.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "task title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().StringVar(&assignee, "assign", "", "assignee user ID")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var (
		title, description, assignee string
		unassign                     bool
	)
	cmd := &cobra.Command{
		Use:   "edit TASK_ID",
		Short: "Edit a task's title, description or assignee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("task id: %w", err)
			}

			task, err := a.api.GetTask(ctx, id)
			if err != nil {
				return explain(err)
			}

			form := taskform.NewEdit(a.tasks, a.notifier(), task)
			flags := cmd.Flags()
			if flags.Changed("title") {
				form.SetTitle(title)
			}
			if flags.Changed("description") {
				form.SetDescription(description)
			}
			switch {
			case unassign:
				form.SetAssignee(nil)
			case assignee != "":
				uid, err := uuid.Parse(assignee)
				if err != nil {
					return fmt.Errorf("--assign: %w", err)
				}
				form.SetAssignee(&uid)
			}

			if _, err := form.Submit(ctx); err != nil {
				return a.formError(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVar(&assignee, "assign", "", "new assignee user ID")
	cmd.Flags().BoolVar(&unassign, "unassign", false, "clear the assignee")
	cmd.MarkFlagsMutuallyExclusive("assign", "unassign")
	return cmd
}

func newMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "move TASK_ID STATUS",
		Short:     "Move a task to pending, doing or completed",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"pending", "doing", "completed"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("task id: %w", err)
			}
			target, err := domain.ParseTaskStatus(args[1])
			if err != nil {
				return err
			}

			_, cache, detach, err := a.attach(ctx)
			if err != nil {
				return explain(err)
			}
			defer detach()

			ctrl := board.NewController(cache, a.tasks, a.notifier())
			outcome, err := ctrl.Select(ctx, id, target)
			if err != nil {
				return explain(err)
			}

			switch outcome {
			case board.OutcomeUnchanged:
				a.printf("already in %s\n", target.Title())
			default:
				a.printf("moved to %s\n", target.Title())
			}
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete TASK_ID",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("task id: %w", err)
			}
			if err := a.tasks.DeleteTask(cmd.Context(), id); err != nil {
				return explain(err)
			}
			a.printf("deleted %s\n", id)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// errors
// ---------------------------------------------------------------------------

// formError prints field messages for a rejected form. Save failures were
// already reported by the form's notifier.
func (a *app) formError(err error) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		for _, f := range verr.Fields {
			a.printf("%s: %s\n", f.Field, f.Message)
		}
		return errors.New("task not saved")
	}
	return explain(err)
}

// explain replaces transport detail with what the user can act on.
func explain(err error) error {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return fmt.Errorf("not found: %w", err)
	case domain.KindBackend:
		return fmt.Errorf("server unavailable: %w", err)
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		return errors.New("not signed in or token expired; run login and export TASKBOARD_TOKEN")
	}
	return err
}
