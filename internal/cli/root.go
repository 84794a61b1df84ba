package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"threadshelf/internal/assistant"
	"threadshelf/internal/clock"
	"threadshelf/internal/config"
	"threadshelf/internal/format"
	"threadshelf/internal/kv"
	"threadshelf/internal/logging"
	"threadshelf/internal/repo"
	"threadshelf/internal/tui"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type App struct {
	Dir        string
	Backend    string
	PrettyJSON bool
	Format     string
	LogLevel   string

	cfg      *config.Config
	settings config.Resolved
	log      *log.Logger

	store *kv.Store
	repo  *repo.Repository

	clock        clock.Clock
	stdinIsTTY   func() bool
	newAssistant func(ctx context.Context, app *App) (assistant.Client, error)
	runTUI       func(ctx context.Context, app *App, r *repo.Repository) error
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{})
}

func newRootCmd(app *App) *cobra.Command {
	if app.clock == nil {
		app.clock = clock.Real{}
	}
	if app.stdinIsTTY == nil {
		app.stdinIsTTY = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	}
	if app.newAssistant == nil {
		app.newAssistant = newGeminiAssistant
	}
	if app.runTUI == nil {
		app.runTUI = runTUI
	}

	cmd := &cobra.Command{
		Use:          "threadshelf",
		Short:        "Organize AI conversation exports into threads (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  threadshelf

  # Create a thread and attach an export to it
  threadshelf threads add "Q4 roadmap"
  threadshelf convs upload ./chat-export.json

  # Direct lookup (shortcut for: threadshelf convs show <conv-id>)
  threadshelf conv-3f9a1c2b7e

  # Archive everything
  threadshelf export --out ./backup.zip
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				r, err := openRepo(cmd, app)
				if err != nil {
					return writeErr(cmd, err)
				}
				return app.runTUI(cmd.Context(), app, r)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.resolve(cmd)
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr(config.EnvDataDir, ""), "Path to the data dir (default: config dataDir, else ~/.threadshelf/data)")
	cmd.PersistentFlags().StringVar(&app.Backend, "backend", envOr(config.EnvBackend, ""), "Storage backend (sqlite|pebble|memory)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("THREADSHELF_FORMAT", "json"), "Output format (json|text)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr(config.EnvLogLevel, ""), "Log level (debug|info|warn|error)")

	cmd.AddCommand(newThreadsCmd(app))
	cmd.AddCommand(newConvsCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newChatCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	closeAfterRun(cmd, app)
	return cmd
}

// resolve applies flags over env/config/defaults and builds the logger.
func (app *App) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return writeErr(cmd, err)
	}
	settings, err := config.Resolve(cfg)
	if err != nil {
		return writeErr(cmd, err)
	}
	if v := strings.TrimSpace(app.Dir); v != "" {
		settings.DataDir = v
	}
	if v := strings.TrimSpace(app.Backend); v != "" {
		settings.Backend = v
	}
	if v := strings.TrimSpace(app.LogLevel); v != "" {
		settings.LogLevel = v
	}
	app.cfg = cfg
	app.settings = settings
	app.log = logging.New(cmd.ErrOrStderr(), settings.LogLevel)
	return nil
}

// openRepo opens the configured store and loads the repository. The store is
// closed by closeAfterRun once the command returns.
func openRepo(cmd *cobra.Command, app *App) (*repo.Repository, error) {
	if app.repo != nil {
		return app.repo, nil
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := kv.Open(ctx, app.settings.Backend, app.settings.DataDir, app.log)
	if err != nil {
		return nil, err
	}
	app.log.Debug("store opened", "backend", app.settings.Backend, "dir", app.settings.DataDir)
	app.store = st
	app.repo = repo.Open(ctx, st, repo.WithClock(app.clock), repo.WithLogger(app.log))
	return app.repo, nil
}

// closeAfterRun wraps every command so a failed write is reported and the
// store is closed, whether or not the command itself succeeded.
func closeAfterRun(root *cobra.Command, app *App) {
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		if run := c.RunE; run != nil {
			c.RunE = func(cmd *cobra.Command, args []string) error {
				err := run(cmd, args)
				return app.finish(cmd, err)
			}
		}
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(root)
}

func (app *App) finish(cmd *cobra.Command, runErr error) error {
	if app.repo != nil && runErr == nil {
		if perr := app.repo.PersistErr(); perr != nil {
			runErr = writeErr(cmd, fmt.Errorf("changes were not saved: %w", perr))
		}
	}
	if app.store != nil {
		if err := app.store.Close(); err != nil {
			app.log.Warn("closing store", "err", err)
		}
	}
	app.store = nil
	app.repo = nil
	return runErr
}

func runTUI(ctx context.Context, app *App, r *repo.Repository) error {
	var client assistant.Client
	if app.settings.GeminiKeySet {
		if c, err := app.newAssistant(ctx, app); err == nil {
			client = c
		} else {
			app.log.Warn("assistant unavailable", "err", err)
		}
	}
	return tui.Run(ctx, tui.Options{
		Repo:      r,
		DataDir:   app.settings.DataDir,
		LogLevel:  app.settings.LogLevel,
		Theme:     app.settings.Theme,
		Clock:     app.clock,
		Assistant: client,
	})
}

func newGeminiAssistant(ctx context.Context, app *App) (assistant.Client, error) {
	return assistant.NewGemini(ctx, assistant.Options{
		APIKey: app.settings.GeminiKey(),
		Model:  app.settings.GeminiModel,
		Logger: app.log,
	})
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON, app.clock.Now())
}

// writeResult writes data inside the JSON envelope, or data's own text
// rendering when --format text is selected.
func writeResult(cmd *cobra.Command, app *App, data any, hints ...string) error {
	if app.Format == "text" {
		if _, ok := data.(format.Texter); ok {
			return writeOut(cmd, app, data)
		}
	}
	env := map[string]any{"data": data}
	if len(hints) > 0 {
		env["_hints"] = hints
	}
	return writeOut(cmd, app, env)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
