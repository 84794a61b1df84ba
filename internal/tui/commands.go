package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"threadshelf/internal/assistant"
	"threadshelf/internal/export"
	"threadshelf/internal/model"
	"threadshelf/internal/repo"

	tea "github.com/charmbracelet/bubbletea"
)

type uploadDoneMsg struct {
	threadID string
	path     string
	content  string
	err      error
}

type exportDoneMsg struct {
	res export.WriteResult
	err error
}

type chatDoneMsg struct {
	convID string
	prompt string
	reply  string
	err    error
}

type flashDoneMsg struct{ seq int }

const flashTTL = 4 * time.Second

// uploadCmd reads the file off the update loop. The repository is only
// touched when the result comes back.
func uploadCmd(threadID, path string) tea.Cmd {
	return func() tea.Msg {
		path = expandHome(path)
		if err := repo.CheckUploadPath(path); err != nil {
			return uploadDoneMsg{threadID: threadID, path: path, err: err}
		}
		b, err := os.ReadFile(path)
		return uploadDoneMsg{threadID: threadID, path: path, content: string(b), err: err}
	}
}

func exportCmd(path string, snap repo.Snapshot, now time.Time) tea.Cmd {
	return func() tea.Msg {
		res, err := export.WriteFile(expandHome(path), snap, export.WriteOptions{Now: now})
		return exportDoneMsg{res: res, err: err}
	}
}

func chatCmd(ctx context.Context, client assistant.Client, convID string, history []model.Message, prompt string) tea.Cmd {
	return func() tea.Msg {
		reply, err := client.GetChatResponse(ctx, history, prompt)
		return chatDoneMsg{convID: convID, prompt: prompt, reply: reply, err: err}
	}
}

func expandHome(path string) string {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
