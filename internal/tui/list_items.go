package tui

import (
	"fmt"
	"time"

	"threadshelf/internal/format"
	"threadshelf/internal/model"
	"threadshelf/internal/repo"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
)

type threadItem struct {
	thread  model.Thread
	convs   int
	current bool
	now     time.Time
}

func (i threadItem) FilterValue() string { return i.thread.Title }
func (i threadItem) Title() string {
	if i.current {
		return i.thread.Title + " •"
	}
	return i.thread.Title
}
func (i threadItem) Description() string {
	noun := "conversations"
	if i.convs == 1 {
		noun = "conversation"
	}
	return fmt.Sprintf("%d %s · updated %s", i.convs, noun, format.Ago(i.thread.LastUpdatedAt, i.now))
}

type convItem struct {
	conv model.Conversation
	now  time.Time
}

func (i convItem) FilterValue() string { return i.conv.Title }
func (i convItem) Title() string {
	if i.conv.Modifications != "" {
		return i.conv.Title + " ✎"
	}
	return i.conv.Title
}
func (i convItem) Description() string {
	return fmt.Sprintf("%s · uploaded %s", format.Bytes(int64(len(i.conv.Content))), format.Ago(i.conv.UploadedAt, i.now))
}

func threadItems(r *repo.Repository, now time.Time) []list.Item {
	active := r.Active()
	threads := r.ThreadsByRecency()
	items := make([]list.Item, 0, len(threads))
	for _, t := range threads {
		items = append(items, threadItem{
			thread:  t,
			convs:   len(r.ConversationsForThread(t.ID)),
			current: t.ID == active,
			now:     now,
		})
	}
	return items
}

func convItems(r *repo.Repository, threadID string, now time.Time) []list.Item {
	convs := r.ConversationsForThread(threadID)
	items := make([]list.Item, 0, len(convs))
	for _, c := range convs {
		items = append(items, convItem{conv: c, now: now})
	}
	return items
}

func newList(title string, items []list.Item, width, height int) list.Model {
	d := list.NewDefaultDelegate()
	d.Styles.SelectedTitle = d.Styles.SelectedTitle.
		Foreground(colorSelectedFg).
		BorderForeground(colorAccent)
	d.Styles.SelectedDesc = d.Styles.SelectedDesc.
		Foreground(colorMuted).
		BorderForeground(colorAccent)

	l := list.New(items, d, width, height)
	l.Title = title
	l.Styles.Title = lipgloss.NewStyle().Bold(true).Padding(0, 1).
		Foreground(colorAccentFg).Background(colorAccent)
	l.SetShowHelp(false)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()
	return l
}
