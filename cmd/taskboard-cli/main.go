package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/taskboard/internal/board"
	"github.com/gosuda/taskboard/internal/client"
	"github.com/gosuda/taskboard/internal/config"
	"github.com/gosuda/taskboard/internal/taskstore"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app is shared by every subcommand once flags are parsed.
type app struct {
	out     io.Writer
	api     *client.Client
	tasks   *taskstore.Client
	log     zerolog.Logger
	verbose bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	env := config.LoadClient()
	a := &app{
		out: stdout,
		log: zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: true}),
	}

	var url, token string

	root := &cobra.Command{
		Use:           "taskboard-cli",
		Short:         "taskboard-cli - work with a team task board from the terminal",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if a.verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			a.api = client.New(url, token)
			a.tasks = taskstore.New(a.api)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&url, "url", env.URL, "server URL (TASKBOARD_URL)")
	root.PersistentFlags().StringVar(&token, "token", env.Token, "access token (TASKBOARD_TOKEN)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newTeamsCmd(a),
		newRegisterCmd(a),
		newLoginCmd(a),
		newWhoamiCmd(a),
		newBoardCmd(a),
		newCreateCmd(a),
		newEditCmd(a),
		newMoveCmd(a),
		newDeleteCmd(a),
	)
	return root
}

// notifier reports form and move results on the command's stderr.
func (a *app) notifier() board.LogNotifier {
	return board.LogNotifier{Logger: &a.log}
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}
