package tui

import (
	"context"
	"os"
	"path/filepath"

	"threadshelf/internal/assistant"
	"threadshelf/internal/clock"
	"threadshelf/internal/logging"
	"threadshelf/internal/repo"

	tea "github.com/charmbracelet/bubbletea"
)

// Options configures an interactive session.
type Options struct {
	Repo     *repo.Repository
	DataDir  string
	LogLevel string
	// Theme is auto, dark, light or notty.
	Theme string
	Clock clock.Clock
	// Assistant is optional; chat is disabled when nil.
	Assistant assistant.Client
}

// Run blocks until the user quits. Logs go to <DataDir>/tui.log while the
// program owns the terminal.
func Run(ctx context.Context, opt Options) error {
	applyColorProfilePreference(opt.Theme)
	applyThemePreference(opt.Theme)

	logger := logging.Discard()
	if opt.DataDir != "" {
		if err := os.MkdirAll(opt.DataDir, 0o755); err == nil {
			l, f, err := logging.OpenFile(filepath.Join(opt.DataDir, "tui.log"), opt.LogLevel)
			if err == nil {
				defer f.Close()
				logger = l
			}
		}
	}

	m := newAppModel(ctx, opt, logger)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
