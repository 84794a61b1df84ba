package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"threadshelf/internal/assistant"
	"threadshelf/internal/clock"
	"threadshelf/internal/export"
	"threadshelf/internal/interpret"
	"threadshelf/internal/model"
	"threadshelf/internal/repo"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/ansi"
)

type view int

const (
	viewThreads view = iota
	viewConversations
	viewConversation
)

// Header, footer and flash line.
const chromeHeight = 3

type appModel struct {
	ctx       context.Context
	repo      *repo.Repository
	clock     clock.Clock
	log       *log.Logger
	cache     *interpret.Cache
	assistant assistant.Client
	theme     string

	width  int
	height int

	view     view
	threadID string

	threads list.Model
	convs   list.Model
	viewer  viewerState

	modal        modalKind
	input        textinput.Model
	note         textarea.Model
	confirmFocus confirmFocus
	pendingID    string

	flash    string
	flashErr bool
	flashSeq int
	busy     string
}

func newAppModel(ctx context.Context, opt Options, logger *log.Logger) appModel {
	clk := opt.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	m := appModel{
		ctx:       ctx,
		repo:      opt.Repo,
		clock:     clk,
		log:       logger,
		cache:     interpret.NewCache(interpret.DefaultCacheSize),
		assistant: opt.Assistant,
		theme:     opt.Theme,
		view:      viewThreads,
	}
	m.threads = newList("Threads", threadItems(m.repo, clk.Now()), 0, 0)
	m.convs = newList("Conversations", nil, 0, 0)
	m.viewer.vp = viewport.New(0, 0)
	m.selectThreadID(m.repo.Active())
	return m
}

func (m appModel) Init() tea.Cmd { return nil }

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case uploadDoneMsg:
		return m.handleUploadDone(msg)

	case exportDoneMsg:
		m.busy = ""
		if msg.err != nil {
			m.log.Error("export failed", "err", msg.err)
			return m, m.setFlash(msg.err.Error(), true)
		}
		m.log.Info("archive written", "path", msg.res.Path, "entries", len(msg.res.Entries))
		return m, m.setFlash(fmt.Sprintf("exported %d files to %s", len(msg.res.Entries), msg.res.Path), false)

	case chatDoneMsg:
		return m.handleChatDone(msg)

	case flashDoneMsg:
		if msg.seq == m.flashSeq {
			m.flash = ""
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.modal != modalNone {
			return m.updateModal(msg)
		}
		switch m.view {
		case viewConversations:
			return m.updateConversations(msg)
		case viewConversation:
			return m.updateViewer(msg)
		default:
			return m.updateThreads(msg)
		}
	}

	return m.updateActive(msg)
}

// updateActive forwards non-key messages (blink, filter results, mouse) to
// whatever currently has focus.
func (m appModel) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.modal == modalEditNote:
		m.note, cmd = m.note.Update(msg)
	case m.modal != modalNone:
		m.input, cmd = m.input.Update(msg)
	case m.view == viewConversations:
		m.convs, cmd = m.convs.Update(msg)
	case m.view == viewConversation:
		m.viewer.vp, cmd = m.viewer.vp.Update(msg)
	default:
		m.threads, cmd = m.threads.Update(msg)
	}
	return m, cmd
}

func (m appModel) updateThreads(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.threads.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.threads, cmd = m.threads.Update(msg)
		return m, cmd
	}
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "enter", "right", "l":
		if t, ok := m.selectedThread(); ok {
			return m, m.openThread(t.ID)
		}
		return m, nil
	case "a":
		return m, m.openInput(modalAddThread, "", "Thread title")
	case "r":
		if t, ok := m.selectedThread(); ok {
			m.pendingID = t.ID
			return m, m.openInput(modalRenameThread, t.Title, "Thread title")
		}
		return m, nil
	case "d":
		if t, ok := m.selectedThread(); ok {
			m.pendingID = t.ID
			m.openConfirm(modalConfirmDeleteThread)
		}
		return m, nil
	case "e":
		return m, m.openInput(modalExport, export.DefaultFileName(m.clock.Now().Local()), "Archive path")
	}
	var cmd tea.Cmd
	m.threads, cmd = m.threads.Update(msg)
	return m, cmd
}

func (m appModel) updateConversations(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.convs.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.convs, cmd = m.convs.Update(msg)
		return m, cmd
	}
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "left", "h":
		if msg.String() == "esc" && m.convs.FilterState() == list.FilterApplied {
			m.convs.ResetFilter()
			return m, nil
		}
		m.view = viewThreads
		return m, m.refreshThreads()
	case "enter", "right", "l":
		if c, ok := m.selectedConv(); ok {
			m.openViewer(c)
		}
		return m, nil
	case "u":
		return m, m.openInput(modalUpload, "", "Path to a .txt or .json file")
	case "n":
		if c, ok := m.selectedConv(); ok {
			return m, m.openNoteEditor(c)
		}
		return m, nil
	case "d":
		if c, ok := m.selectedConv(); ok {
			m.pendingID = c.ID
			m.openConfirm(modalConfirmDeleteConv)
		}
		return m, nil
	case "e":
		return m, m.openInput(modalExport, export.DefaultFileName(m.clock.Now().Local()), "Archive path")
	}
	var cmd tea.Cmd
	m.convs, cmd = m.convs.Update(msg)
	return m, cmd
}

func (m appModel) updateViewer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "left", "h":
		m.view = viewConversations
		return m, m.refreshConvs()
	case "tab":
		if m.viewer.cycle(1) {
			m.viewer.render(m.width, m.theme)
		}
		return m, nil
	case "shift+tab":
		if m.viewer.cycle(-1) {
			m.viewer.render(m.width, m.theme)
		}
		return m, nil
	case "n":
		return m, m.openNoteEditor(m.viewer.conv)
	case "d":
		m.pendingID = m.viewer.conv.ID
		m.openConfirm(modalConfirmDeleteConv)
		return m, nil
	case "c":
		if m.assistant == nil {
			return m, m.setFlash("chat unavailable: set GEMINI_API_KEY or gemini.apiKey", true)
		}
		if m.busy != "" {
			return m, nil
		}
		m.pendingID = m.viewer.conv.ID
		return m, m.openInput(modalChat, "", "Message")
	}
	var cmd tea.Cmd
	m.viewer.vp, cmd = m.viewer.vp.Update(msg)
	return m, cmd
}

func (m appModel) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.modal {
	case modalConfirmDeleteThread, modalConfirmDeleteConv:
		switch msg.String() {
		case "esc", "n":
			m.closeModal()
		case "tab", "shift+tab", "left", "right":
			if m.confirmFocus == confirmFocusConfirm {
				m.confirmFocus = confirmFocusCancel
			} else {
				m.confirmFocus = confirmFocusConfirm
			}
		case "y":
			return m.confirmDelete()
		case "enter":
			if m.confirmFocus == confirmFocusConfirm {
				return m.confirmDelete()
			}
			m.closeModal()
		}
		return m, nil

	case modalEditNote:
		switch msg.String() {
		case "esc":
			m.closeModal()
			return m, nil
		case "ctrl+s":
			return m.saveNote()
		}
		var cmd tea.Cmd
		m.note, cmd = m.note.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "esc":
		m.closeModal()
		return m, nil
	case "enter":
		return m.submitInput()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m appModel) submitInput() (tea.Model, tea.Cmd) {
	value := m.input.Value()
	kind := m.modal
	id := m.pendingID
	m.closeModal()

	switch kind {
	case modalAddThread:
		t, err := m.repo.AddThread(m.ctx, value)
		if err != nil {
			return m, m.setFlash(err.Error(), true)
		}
		m.repo.SelectAdded(m.ctx, t)
		cmd := m.refreshThreads()
		m.selectThreadID(t.ID)
		return m, tea.Batch(cmd, m.afterMutation("added "+t.Title))

	case modalRenameThread:
		if err := m.repo.RenameThread(m.ctx, id, value); err != nil {
			return m, m.setFlash(err.Error(), true)
		}
		return m, tea.Batch(m.refreshThreads(), m.afterMutation("renamed"))

	case modalUpload:
		if strings.TrimSpace(value) == "" {
			return m, nil
		}
		m.busy = "uploading…"
		return m, uploadCmd(m.threadID, value)

	case modalExport:
		if strings.TrimSpace(value) == "" {
			return m, nil
		}
		m.busy = "exporting…"
		return m, exportCmd(value, m.repo.Snapshot(), m.clock.Now())

	case modalChat:
		if strings.TrimSpace(value) == "" || m.viewer.conv.ID != id {
			return m, nil
		}
		m.busy = "waiting for the model…"
		return m, chatCmd(m.ctx, m.assistant, id, m.viewer.history(), value)
	}
	return m, nil
}

func (m appModel) confirmDelete() (tea.Model, tea.Cmd) {
	kind := m.modal
	id := m.pendingID
	m.closeModal()

	switch kind {
	case modalConfirmDeleteThread:
		t, _ := m.repo.Thread(id)
		m.repo.DeleteThread(m.ctx, id)
		m.log.Info("thread deleted", "id", id)
		cmd := m.refreshThreads()
		m.selectThreadID(m.repo.Active())
		return m, tea.Batch(cmd, m.afterMutation("deleted "+t.Title))

	case modalConfirmDeleteConv:
		c, _ := m.repo.Conversation(id)
		m.repo.DeleteConversation(m.ctx, id)
		m.log.Info("conversation deleted", "id", id)
		if m.view == viewConversation && m.viewer.conv.ID == id {
			m.view = viewConversations
		}
		return m, tea.Batch(m.refreshConvs(), m.afterMutation("deleted "+c.Title))
	}
	return m, nil
}

func (m appModel) saveNote() (tea.Model, tea.Cmd) {
	id := m.pendingID
	text := m.note.Value()
	m.closeModal()

	if err := m.repo.SaveModification(m.ctx, id, text); err != nil {
		return m, m.setFlash(err.Error(), true)
	}
	if m.viewer.conv.ID == id {
		if c, ok := m.repo.Conversation(id); ok {
			m.viewer.conv = c
			m.viewer.render(m.width, m.theme)
		}
	}
	return m, tea.Batch(m.refreshConvs(), m.afterMutation("note saved"))
}

func (m appModel) handleUploadDone(msg uploadDoneMsg) (tea.Model, tea.Cmd) {
	m.busy = ""
	if msg.err != nil {
		m.log.Warn("upload failed", "path", msg.path, "err", msg.err)
		return m, m.setFlash(msg.err.Error(), true)
	}
	c, err := m.repo.AttachConversation(m.ctx, msg.threadID, repo.UploadTitle(msg.path), msg.content)
	if err != nil {
		return m, m.setFlash(err.Error(), true)
	}
	m.log.Info("conversation uploaded", "id", c.ID, "thread", msg.threadID, "bytes", len(msg.content))
	cmd := m.refreshConvs()
	m.selectConvID(c.ID)
	return m, tea.Batch(cmd, m.refreshThreads(), m.afterMutation("uploaded "+c.Title))
}

func (m appModel) handleChatDone(msg chatDoneMsg) (tea.Model, tea.Cmd) {
	m.busy = ""
	if msg.err != nil {
		m.log.Error("chat failed", "conversation", msg.convID, "err", msg.err)
		return m, m.setFlash(msg.err.Error(), true)
	}
	if m.viewer.conv.ID != msg.convID {
		return m, nil
	}
	m.viewer.chat = append(m.viewer.chat,
		model.Message{Role: model.RoleUser, Content: msg.prompt},
		model.Message{Role: model.RoleModel, Content: msg.reply},
	)
	m.viewer.render(m.width, m.theme)
	m.viewer.vp.GotoBottom()
	return m, nil
}

func (m *appModel) openThread(id string) tea.Cmd {
	m.repo.Pick(m.ctx, id)
	m.threadID = id
	t, _ := m.repo.Thread(id)
	m.convs.Title = t.Title
	m.convs.ResetFilter()
	cmd := m.convs.SetItems(convItems(m.repo, id, m.clock.Now()))
	m.convs.Select(0)
	m.view = viewConversations
	return tea.Batch(cmd, m.refreshThreads())
}

func (m *appModel) openViewer(c model.Conversation) {
	m.viewer.open(c, m.cache)
	m.viewer.render(m.width, m.theme)
	m.view = viewConversation
}

func (m *appModel) openInput(kind modalKind, value string, placeholder string) tea.Cmd {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = placeholder
	ti.Width = modalBodyWidth(m.width) - 4
	ti.SetValue(value)
	ti.CursorEnd()
	m.input = ti
	m.modal = kind
	return m.input.Focus()
}

func (m *appModel) openConfirm(kind modalKind) {
	m.modal = kind
	m.confirmFocus = confirmFocusCancel
}

func (m *appModel) openNoteEditor(c model.Conversation) tea.Cmd {
	ta := textarea.New()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.Placeholder = "Describe what you changed…"
	ta.SetWidth(modalBodyWidth(m.width))
	ta.SetHeight(10)
	ta.SetValue(c.Modifications)
	m.note = ta
	m.pendingID = c.ID
	m.modal = modalEditNote
	return m.note.Focus()
}

func (m *appModel) closeModal() {
	switch m.modal {
	case modalEditNote:
		m.note.Blur()
	case modalConfirmDeleteThread, modalConfirmDeleteConv, modalNone:
	default:
		m.input.Blur()
	}
	m.modal = modalNone
}

func (m *appModel) setFlash(s string, isErr bool) tea.Cmd {
	m.flashSeq++
	m.flash = s
	m.flashErr = isErr
	seq := m.flashSeq
	return tea.Tick(flashTTL, func(time.Time) tea.Msg { return flashDoneMsg{seq: seq} })
}

// afterMutation surfaces store write failures; mutations themselves never
// fail on persistence.
func (m *appModel) afterMutation(ok string) tea.Cmd {
	if err := m.repo.PersistErr(); err != nil {
		return m.setFlash("changes were not saved: "+err.Error(), true)
	}
	return m.setFlash(ok, false)
}

func (m *appModel) refreshThreads() tea.Cmd {
	sel := ""
	if t, ok := m.selectedThread(); ok {
		sel = t.ID
	}
	cmd := m.threads.SetItems(threadItems(m.repo, m.clock.Now()))
	if sel != "" {
		m.selectThreadID(sel)
	}
	return cmd
}

func (m *appModel) refreshConvs() tea.Cmd {
	if m.threadID == "" {
		return nil
	}
	if _, ok := m.repo.Thread(m.threadID); !ok {
		m.threadID = ""
		m.view = viewThreads
		return m.convs.SetItems(nil)
	}
	sel := ""
	if c, ok := m.selectedConv(); ok {
		sel = c.ID
	}
	cmd := m.convs.SetItems(convItems(m.repo, m.threadID, m.clock.Now()))
	if sel != "" {
		m.selectConvID(sel)
	}
	return cmd
}

func (m appModel) selectedThread() (model.Thread, bool) {
	it, ok := m.threads.SelectedItem().(threadItem)
	if !ok {
		return model.Thread{}, false
	}
	return it.thread, true
}

func (m appModel) selectedConv() (model.Conversation, bool) {
	it, ok := m.convs.SelectedItem().(convItem)
	if !ok {
		return model.Conversation{}, false
	}
	return it.conv, true
}

func (m *appModel) selectThreadID(id string) {
	for i, it := range m.threads.Items() {
		if ti, ok := it.(threadItem); ok && ti.thread.ID == id {
			m.threads.Select(i)
			return
		}
	}
}

func (m *appModel) selectConvID(id string) {
	for i, it := range m.convs.Items() {
		if ci, ok := it.(convItem); ok && ci.conv.ID == id {
			m.convs.Select(i)
			return
		}
	}
}

func (m *appModel) resize() {
	h := m.height - chromeHeight
	if h < 1 {
		h = 1
	}
	m.threads.SetSize(m.width, h)
	m.convs.SetSize(m.width, h)
	m.viewer.vp.Width = m.width
	m.viewer.vp.Height = max(h-1, 1)
	if m.view == viewConversation {
		m.viewer.render(m.width, m.theme)
	}
}

func (m appModel) View() string {
	if m.modal != modalNone {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.renderModal())
	}

	var body string
	switch m.view {
	case viewConversations:
		body = m.convs.View()
	case viewConversation:
		body = m.viewer.tabs(m.width) + "\n" + m.viewer.vp.View()
	default:
		body = m.threads.View()
	}
	return strings.Join([]string{m.renderHeader(), body, m.renderFlash(), m.renderFooter()}, "\n")
}

func (m appModel) renderHeader() string {
	crumbs := []string{"threadshelf"}
	if m.view != viewThreads {
		if t, ok := m.repo.Thread(m.threadID); ok {
			crumbs = append(crumbs, t.Title)
		}
	}
	if m.view == viewConversation {
		crumbs = append(crumbs, m.viewer.conv.Title)
	}
	return ansi.Truncate(styleHeader().Render(strings.Join(crumbs, " › ")), m.width, "…")
}

func (m appModel) renderFlash() string {
	switch {
	case m.busy != "":
		return styleMuted().Render(m.busy)
	case m.flash != "":
		return ansi.Truncate(styleFlash(m.flashErr).Render(m.flash), m.width, "…")
	}
	return ""
}

func (m appModel) renderFooter() string {
	var help string
	switch m.view {
	case viewConversations:
		help = "enter: view  u: upload  n: note  d: delete  e: export  /: filter  esc: back  q: quit"
	case viewConversation:
		help = "tab: section  ↑/↓: scroll  n: note  d: delete"
		if m.assistant != nil {
			help += "  c: chat"
		}
		help += "  esc: back  q: quit"
	default:
		help = "enter: open  a: add  r: rename  d: delete  e: export  /: filter  q: quit"
	}
	return ansi.Truncate(styleMuted().Render(help), m.width, "…")
}

func (m appModel) renderModal() string {
	switch m.modal {
	case modalAddThread:
		return renderInputModal(m.width, "New thread", m.input.View(), "enter: create   esc: cancel")
	case modalRenameThread:
		return renderInputModal(m.width, "Rename thread", m.input.View(), "enter: save   esc: cancel")
	case modalUpload:
		return renderInputModal(m.width, "Upload conversation", m.input.View(), "enter: upload   esc: cancel")
	case modalExport:
		return renderInputModal(m.width, "Export archive", m.input.View(), "enter: write ZIP   esc: cancel")
	case modalChat:
		return renderInputModal(m.width, "Chat", m.input.View(), "enter: send   esc: cancel")
	case modalEditNote:
		return renderInputModal(m.width, "Modification note", m.note.View(), "ctrl+s: save   esc: cancel")
	case modalConfirmDeleteThread:
		t, _ := m.repo.Thread(m.pendingID)
		n := len(m.repo.ConversationsForThread(m.pendingID))
		body := fmt.Sprintf("Delete %q and its %d conversation(s)? This cannot be undone.", t.Title, n)
		return renderConfirmModal(m.width, "Delete thread", body, "Delete", m.confirmFocus)
	case modalConfirmDeleteConv:
		c, _ := m.repo.Conversation(m.pendingID)
		return renderConfirmModal(m.width, "Delete conversation", fmt.Sprintf("Delete %q?", c.Title), "Delete", m.confirmFocus)
	}
	return ""
}
