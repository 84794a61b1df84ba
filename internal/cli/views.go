package cli

import (
	"fmt"
	"strings"
	"time"

	"threadshelf/internal/format"
	"threadshelf/internal/interpret"
	"threadshelf/internal/model"
	"threadshelf/internal/repo"
)

type threadView struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	Conversations int       `json:"conversations"`
	Active        bool      `json:"active"`
	Score         *int      `json:"score,omitempty"`
}

func newThreadView(r *repo.Repository, t model.Thread) threadView {
	return threadView{
		ID:            t.ID,
		Title:         t.Title,
		LastUpdatedAt: t.LastUpdatedAt,
		Conversations: len(r.ConversationsForThread(t.ID)),
		Active:        r.Active() == t.ID,
	}
}

type threadList []threadView

func (l threadList) Text(now time.Time) string {
	rows := make([][]string, 0, len(l))
	for _, t := range l {
		mark := ""
		if t.Active {
			mark = "*"
		}
		rows = append(rows, []string{mark, t.ID, t.Title, format.Ago(t.LastUpdatedAt, now), format.Count(int64(t.Conversations))})
	}
	return format.Table([]string{"", "ID", "TITLE", "UPDATED", "CONVS"}, rows)
}

func (t threadView) Text(now time.Time) string {
	return threadList{t}.Text(now)
}

type convView struct {
	ID               string    `json:"id"`
	ThreadID         string    `json:"threadId"`
	Title            string    `json:"title"`
	UploadedAt       time.Time `json:"uploadedAt"`
	Bytes            int       `json:"bytes"`
	HasModifications bool      `json:"hasModifications"`
}

func newConvView(c model.Conversation) convView {
	return convView{
		ID:               c.ID,
		ThreadID:         c.ThreadID,
		Title:            c.Title,
		UploadedAt:       c.UploadedAt,
		Bytes:            len(c.Content),
		HasModifications: c.Modifications != "",
	}
}

type convList []convView

func (l convList) Text(now time.Time) string {
	rows := make([][]string, 0, len(l))
	for _, c := range l {
		note := ""
		if c.HasModifications {
			note = "yes"
		}
		rows = append(rows, []string{c.ID, c.Title, format.Ago(c.UploadedAt, now), format.Bytes(int64(c.Bytes)), note})
	}
	return format.Table([]string{"ID", "TITLE", "UPLOADED", "SIZE", "NOTE"}, rows)
}

func (c convView) Text(now time.Time) string {
	return convList{c}.Text(now)
}

type threadDetail struct {
	Thread        threadView `json:"thread"`
	Conversations convList   `json:"conversations"`
}

func (d threadDetail) Text(now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  (%s)\nupdated %s\n\n", d.Thread.Title, d.Thread.ID, format.Ago(d.Thread.LastUpdatedAt, now))
	b.WriteString(d.Conversations.Text(now))
	return b.String()
}

type convDetail struct {
	Conversation   model.Conversation `json:"conversation"`
	Kind           string             `json:"kind"`
	Sections       []string           `json:"sections"`
	Section        string             `json:"section,omitempty"`
	SectionEntries int                `json:"sectionEntries"`
	Markdown       string             `json:"markdown"`
}

func newConvDetail(c model.Conversation, res interpret.Result, section interpret.Section) convDetail {
	secs := []string{}
	for _, s := range res.Sections() {
		secs = append(secs, string(s))
	}
	return convDetail{
		Conversation:   c,
		Kind:           res.Kind.String(),
		Sections:       secs,
		Section:        string(section),
		SectionEntries: res.Count(section),
		Markdown:       res.Markdown(section),
	}
}

func (d convDetail) Text(now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  (%s)\nuploaded %s  %s  %s\n", d.Conversation.Title, d.Conversation.ID,
		format.Ago(d.Conversation.UploadedAt, now), format.Bytes(int64(len(d.Conversation.Content))), d.Kind)
	if len(d.Sections) > 0 {
		fmt.Fprintf(&b, "sections: %s\n", strings.Join(d.Sections, ", "))
	}
	b.WriteString("\n")
	b.WriteString(d.Markdown)
	if d.Conversation.Modifications != "" {
		b.WriteString("\n--- note ---\n")
		b.WriteString(d.Conversation.Modifications)
		b.WriteString("\n")
	}
	return b.String()
}

type deleteResult struct {
	ID                   string `json:"id"`
	Deleted              bool   `json:"deleted"`
	ConversationsRemoved int    `json:"conversationsRemoved,omitempty"`
	Active               string `json:"active,omitempty"`
}

func (d deleteResult) Text(time.Time) string {
	if !d.Deleted {
		return "not deleted: " + d.ID
	}
	if d.ConversationsRemoved > 0 {
		return fmt.Sprintf("deleted %s (%d conversation(s))", d.ID, d.ConversationsRemoved)
	}
	return "deleted " + d.ID
}

type chatReply struct {
	ConversationID string `json:"conversationId"`
	Model          string `json:"model,omitempty"`
	HistoryTurns   int    `json:"historyTurns"`
	Reply          string `json:"reply"`
}

func (c chatReply) Text(time.Time) string { return c.Reply }
