// Package repo owns the thread and conversation collections. All mutation goes
// through Repository; every mutation is mirrored to the kv store.
package repo

import (
	"context"
	"slices"
	"strings"

	"threadshelf/internal/clock"
	"threadshelf/internal/kv"
	"threadshelf/internal/logging"
	"threadshelf/internal/model"

	"github.com/charmbracelet/log"
)

const (
	KeyThreads       = "threads"
	KeyConversations = "conversations"
	KeySelection     = "selection"
)

// Repository is single-owner: callers serialize access (one CLI command, or the TUI update loop).
type Repository struct {
	store *kv.Store
	clock clock.Clock
	log   *log.Logger
	newID func(prefix string) string

	threads []model.Thread
	convs   []model.Conversation
	sel     Selection

	persistErr error
}

type Option func(*Repository)

func WithClock(c clock.Clock) Option {
	return func(r *Repository) { r.clock = c }
}

func WithLogger(l *log.Logger) Option {
	return func(r *Repository) { r.log = l }
}

// WithIDs replaces the random id generator (tests).
func WithIDs(f func(prefix string) string) Option {
	return func(r *Repository) { r.newID = f }
}

// Open loads both collections and the active selection from store. Missing or
// unreadable values fall back to the seed threads, no conversations, and no selection.
// A store with no threads key gets the seed threads written on first open.
func Open(ctx context.Context, store *kv.Store, opts ...Option) *Repository {
	r := &Repository{
		store: store,
		clock: clock.Real{},
		log:   logging.Discard(),
		newID: newRandomID,
	}
	for _, o := range opts {
		o(r)
	}

	seeded := false
	if ok, err := store.Has(ctx, KeyThreads); err == nil && !ok {
		seeded = true
	}
	r.threads = kv.Load(ctx, store, KeyThreads, SeedThreads(r.clock.Now()))
	r.convs = kv.Load(ctx, store, KeyConversations, []model.Conversation{})
	if r.threads == nil {
		r.threads = []model.Thread{}
	}
	if r.convs == nil {
		r.convs = []model.Conversation{}
	}
	if seeded {
		// Stamp the seed threads once; later opens read them back unchanged.
		r.persistThreads(ctx)
	}
	r.sel = Selection{threadID: kv.Load(ctx, store, KeySelection, "")}
	r.sel.Repair(r)
	return r
}

// PersistErr returns the most recent store write failure, if any. Mutations
// never fail because of persistence; callers that care check this afterwards.
func (r *Repository) PersistErr() error { return r.persistErr }

func (r *Repository) persist(ctx context.Context, key string, v any) {
	if r.store == nil {
		return
	}
	if err := r.store.Save(ctx, key, v); err != nil {
		r.persistErr = err
		r.log.Warn("persist failed", "key", key, "err", err)
	}
}

func (r *Repository) persistThreads(ctx context.Context) { r.persist(ctx, KeyThreads, r.threads) }

func (r *Repository) persistConversations(ctx context.Context) {
	r.persist(ctx, KeyConversations, r.convs)
}

func (r *Repository) persistSelection(ctx context.Context) {
	r.persist(ctx, KeySelection, r.sel.threadID)
}

func (r *Repository) AddThread(ctx context.Context, title string) (model.Thread, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Thread{}, ErrEmptyTitle
	}
	t := model.Thread{
		ID:            r.nextID(threadIDPrefix),
		Title:         title,
		LastUpdatedAt: r.clock.Now(),
	}
	r.threads = append(r.threads, t)
	r.persistThreads(ctx)
	r.log.Debug("thread added", "id", t.ID)
	return t, nil
}

// RenameThread is a no-op for unknown ids.
func (r *Repository) RenameThread(ctx context.Context, id string, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	i := r.threadIndex(id)
	if i < 0 {
		return nil
	}
	r.threads[i].Title = title
	r.threads[i].LastUpdatedAt = r.clock.Now()
	r.persistThreads(ctx)
	return nil
}

// DeleteThread removes the thread and every conversation attached to it, then
// repairs the active selection if it pointed at the deleted thread.
func (r *Repository) DeleteThread(ctx context.Context, id string) {
	if r.threadIndex(id) < 0 {
		return
	}
	threads := make([]model.Thread, 0, len(r.threads))
	for _, t := range r.threads {
		if t.ID != id {
			threads = append(threads, t)
		}
	}
	convs := make([]model.Conversation, 0, len(r.convs))
	removed := 0
	for _, c := range r.convs {
		if c.ThreadID == id {
			removed++
			continue
		}
		convs = append(convs, c)
	}
	// Swap both collections together so no caller sees a thread without its
	// conversations removed, or the reverse.
	r.threads, r.convs = threads, convs

	// Conversations first: a crash between the two writes leaves an empty
	// thread rather than orphaned conversations.
	r.persistConversations(ctx)
	r.persistThreads(ctx)

	before := r.sel.ThreadID()
	r.sel.Repair(r)
	if r.sel.ThreadID() != before {
		r.persistSelection(ctx)
	}
	r.log.Debug("thread deleted", "id", id, "conversations", removed)
}

func (r *Repository) AttachConversation(ctx context.Context, threadID string, title string, content string) (model.Conversation, error) {
	i := r.threadIndex(threadID)
	if i < 0 {
		return model.Conversation{}, InvalidTargetError{Kind: "thread", ID: threadID}
	}
	now := r.clock.Now()
	c := model.Conversation{
		ID:         r.nextID(conversationIDPrefix),
		ThreadID:   threadID,
		Title:      title,
		Content:    content,
		UploadedAt: now,
	}
	r.convs = append(r.convs, c)
	r.threads[i].LastUpdatedAt = now
	r.persistConversations(ctx)
	r.persistThreads(ctx)
	r.log.Debug("conversation attached", "id", c.ID, "thread", threadID, "bytes", len(content))
	return c, nil
}

func (r *Repository) DeleteConversation(ctx context.Context, id string) {
	i := r.conversationIndex(id)
	if i < 0 {
		return
	}
	r.convs = slices.Delete(slices.Clone(r.convs), i, i+1)
	r.persistConversations(ctx)
}

// SaveModification overwrites the conversation's note (last write wins).
func (r *Repository) SaveModification(ctx context.Context, conversationID string, text string) error {
	i := r.conversationIndex(conversationID)
	if i < 0 {
		return InvalidTargetError{Kind: "conversation", ID: conversationID}
	}
	r.convs[i].Modifications = text
	r.persistConversations(ctx)
	return nil
}

// ConversationsForThread returns the thread's conversations, most recently
// uploaded first. Ties keep insertion order.
func (r *Repository) ConversationsForThread(threadID string) []model.Conversation {
	out := []model.Conversation{}
	for _, c := range r.convs {
		if c.ThreadID == threadID {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Conversation) int {
		return b.UploadedAt.Compare(a.UploadedAt)
	})
	return out
}

// ThreadsByRecency returns all threads, most recently updated first. Ties keep insertion order.
func (r *Repository) ThreadsByRecency() []model.Thread {
	out := slices.Clone(r.threads)
	if out == nil {
		out = []model.Thread{}
	}
	slices.SortStableFunc(out, func(a, b model.Thread) int {
		return b.LastUpdatedAt.Compare(a.LastUpdatedAt)
	})
	return out
}

// SearchThreads filters ThreadsByRecency by a case-insensitive title substring.
// An empty query returns every thread.
func (r *Repository) SearchThreads(query string) []model.Thread {
	all := r.ThreadsByRecency()
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all
	}
	out := []model.Thread{}
	for _, t := range all {
		if strings.Contains(strings.ToLower(t.Title), q) {
			out = append(out, t)
		}
	}
	return out
}

// RepairSelection returns current when it names a live thread; otherwise the
// most recently updated thread, or "" when there are none.
func (r *Repository) RepairSelection(current string) string {
	if current != "" && r.threadIndex(current) >= 0 {
		return current
	}
	ordered := r.ThreadsByRecency()
	if len(ordered) == 0 {
		return ""
	}
	return ordered[0].ID
}

func (r *Repository) Thread(id string) (model.Thread, bool) {
	i := r.threadIndex(id)
	if i < 0 {
		return model.Thread{}, false
	}
	return r.threads[i], true
}

func (r *Repository) Conversation(id string) (model.Conversation, bool) {
	i := r.conversationIndex(id)
	if i < 0 {
		return model.Conversation{}, false
	}
	return r.convs[i], true
}

// Threads returns the thread collection in insertion order.
func (r *Repository) Threads() []model.Thread {
	out := slices.Clone(r.threads)
	if out == nil {
		out = []model.Thread{}
	}
	return out
}

// Conversations returns every conversation in insertion order.
func (r *Repository) Conversations() []model.Conversation {
	out := slices.Clone(r.convs)
	if out == nil {
		out = []model.Conversation{}
	}
	return out
}

type Snapshot struct {
	Threads       []model.Thread
	Conversations []model.Conversation
}

// Snapshot copies both collections for readers that outlive the current call (export).
func (r *Repository) Snapshot() Snapshot {
	return Snapshot{Threads: r.Threads(), Conversations: r.Conversations()}
}

// Active returns the active thread id, or "" for no selection.
func (r *Repository) Active() string { return r.sel.ThreadID() }

// Pick makes id the active thread. Unknown ids leave the selection unchanged and return false.
func (r *Repository) Pick(ctx context.Context, id string) bool {
	if !r.sel.Pick(r, id) {
		return false
	}
	r.persistSelection(ctx)
	return true
}

// SelectAdded makes a thread just returned by AddThread the active one.
func (r *Repository) SelectAdded(ctx context.Context, t model.Thread) {
	if r.threadIndex(t.ID) < 0 {
		return
	}
	r.sel.OnAdded(t.ID)
	r.persistSelection(ctx)
}

func (r *Repository) threadIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range r.threads {
		if r.threads[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Repository) conversationIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range r.convs {
		if r.convs[i].ID == id {
			return i
		}
	}
	return -1
}
