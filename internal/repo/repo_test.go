package repo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"threadshelf/internal/clock"
	"threadshelf/internal/kv"
	"threadshelf/internal/model"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func seqIDs() func(prefix string) string {
	n := map[string]int{}
	return func(prefix string) string {
		n[prefix]++
		return fmt.Sprintf("%s-%d", prefix, n[prefix])
	}
}

// newTestRepo returns a repository over a fresh memory store holding the given threads.
func newTestRepo(t *testing.T, threads []model.Thread) (*Repository, *kv.Store, *clock.Manual) {
	t.Helper()
	ctx := context.Background()
	st := kv.New(kv.NewMemory(), nil)
	if threads != nil {
		if err := st.Save(ctx, KeyThreads, threads); err != nil {
			t.Fatalf("seed threads: %v", err)
		}
	}
	clk := clock.NewManual(t0)
	r := Open(ctx, st, WithClock(clk), WithIDs(seqIDs()))
	return r, st, clk
}

func TestOpen_DefaultsToSeedThreadsAndSelectsMostRecent(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRepo(t, nil)
	ts := r.ThreadsByRecency()
	if len(ts) != 3 {
		t.Fatalf("expected 3 seed threads, got %d", len(ts))
	}
	if ts[0].ID != "thread-1" || ts[2].ID != "thread-3" {
		t.Fatalf("unexpected seed order: %#v", ts)
	}
	if got := r.Active(); got != "thread-1" {
		t.Fatalf("Active: got %q want thread-1", got)
	}
	if n := len(r.Conversations()); n != 0 {
		t.Fatalf("expected no conversations, got %d", n)
	}
}

func TestOpen_SeedTimestampsSurviveReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := kv.New(kv.NewMemory(), nil)
	clk := clock.NewManual(t0)
	first := Open(ctx, st, WithClock(clk), WithIDs(seqIDs()))
	seed, _ := first.Thread("thread-1")
	if !seed.LastUpdatedAt.Equal(t0) {
		t.Fatalf("seed stamp: got %v want %v", seed.LastUpdatedAt, t0)
	}

	clk.Advance(time.Hour)
	second := Open(ctx, st, WithClock(clk), WithIDs(seqIDs()))
	for _, want := range first.Threads() {
		got, ok := second.Thread(want.ID)
		if !ok || !got.LastUpdatedAt.Equal(want.LastUpdatedAt) {
			t.Fatalf("%s restamped on reopen: got %v want %v", want.ID, got.LastUpdatedAt, want.LastUpdatedAt)
		}
	}

	if _, err := second.AttachConversation(ctx, "thread-2", "a.txt", "hi"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if first := second.ThreadsByRecency()[0].ID; first != "thread-2" {
		t.Fatalf("attached thread should lead, got %s", first)
	}
}

func TestAttachThenDeleteThread_Scenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, st, clk := newTestRepo(t, []model.Thread{{ID: "t1", Title: "Launch", LastUpdatedAt: t0}})

	attachAt := clk.Advance(time.Minute)
	c, err := r.AttachConversation(ctx, "t1", "notes.txt", "hello")
	if err != nil {
		t.Fatalf("AttachConversation: %v", err)
	}
	if c.ThreadID != "t1" || c.Title != "notes.txt" || c.Content != "hello" || !c.UploadedAt.Equal(attachAt) {
		t.Fatalf("unexpected conversation: %#v", c)
	}
	th, _ := r.Thread("t1")
	if !th.LastUpdatedAt.Equal(attachAt) || !th.LastUpdatedAt.After(t0) {
		t.Fatalf("expected thread bumped to %v, got %v", attachAt, th.LastUpdatedAt)
	}

	r.DeleteThread(ctx, "t1")
	if len(r.Threads()) != 0 || len(r.Conversations()) != 0 {
		t.Fatalf("expected empty repo, got threads=%d convs=%d", len(r.Threads()), len(r.Conversations()))
	}
	if r.Active() != "" {
		t.Fatalf("expected no selection, got %q", r.Active())
	}

	// The store mirrors the in-memory state.
	if got := kv.Load(ctx, st, KeyConversations, []model.Conversation{{ID: "x"}}); len(got) != 0 {
		t.Fatalf("persisted conversations not cleared: %#v", got)
	}
	if got := kv.Load(ctx, st, KeyThreads, []model.Thread{{ID: "x"}}); len(got) != 0 {
		t.Fatalf("persisted threads not cleared: %#v", got)
	}
}

func TestAttachConversation_UnknownThreadIsInvalidTarget(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRepo(t, nil)
	_, err := r.AttachConversation(context.Background(), "missing", "a.txt", "x")
	if !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
	var ite InvalidTargetError
	if !errors.As(err, &ite) || ite.Kind != "thread" || ite.ID != "missing" {
		t.Fatalf("expected InvalidTargetError{thread, missing}, got %#v", err)
	}
	if len(r.Conversations()) != 0 {
		t.Fatalf("no conversation should be created")
	}
}

func TestDeleteThread_RemovesExactlyItsConversations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _, clk := newTestRepo(t, nil)
	for i := 0; i < 3; i++ {
		clk.Advance(time.Second)
		if _, err := r.AttachConversation(ctx, "thread-1", fmt.Sprintf("a%d.txt", i), "a"); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 2; i++ {
		clk.Advance(time.Second)
		if _, err := r.AttachConversation(ctx, "thread-2", fmt.Sprintf("b%d.txt", i), "b"); err != nil {
			t.Fatal(err)
		}
	}
	before := len(r.Conversations())

	r.DeleteThread(ctx, "thread-1")

	if got := len(r.Conversations()); got != before-3 {
		t.Fatalf("conversation count: got %d want %d", got, before-3)
	}
	for _, c := range r.Conversations() {
		if c.ThreadID != "thread-2" {
			t.Fatalf("unexpected surviving conversation %#v", c)
		}
	}

	// Idempotent.
	r.DeleteThread(ctx, "thread-1")
	if got := len(r.Conversations()); got != before-3 {
		t.Fatalf("second delete changed state: %d", got)
	}
}

func TestRandomOps_NoOrphansAndUniqueIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _, clk := newTestRepo(t, nil)
	rng := rand.New(rand.NewSource(42))

	for step := 0; step < 300; step++ {
		clk.Advance(time.Second)
		threads := r.Threads()
		switch op := rng.Intn(4); {
		case op == 0 || len(threads) == 0:
			if _, err := r.AddThread(ctx, fmt.Sprintf("T%d", step)); err != nil {
				t.Fatal(err)
			}
		case op == 1:
			r.DeleteThread(ctx, threads[rng.Intn(len(threads))].ID)
		default:
			tid := threads[rng.Intn(len(threads))].ID
			if _, err := r.AttachConversation(ctx, tid, "f.txt", "x"); err != nil {
				t.Fatal(err)
			}
		}

		seen := map[string]bool{}
		live := map[string]bool{}
		for _, th := range r.Threads() {
			if seen[th.ID] {
				t.Fatalf("duplicate thread id %s", th.ID)
			}
			seen[th.ID] = true
			live[th.ID] = true
		}
		for _, c := range r.Conversations() {
			if seen[c.ID] {
				t.Fatalf("duplicate id %s", c.ID)
			}
			seen[c.ID] = true
			if !live[c.ThreadID] {
				t.Fatalf("orphan conversation %s -> %s", c.ID, c.ThreadID)
			}
		}
		if a := r.Active(); a != "" && !live[a] {
			t.Fatalf("selection points at dead thread %s", a)
		}
	}
}

func TestConversationsForThread_SortedByUploadDesc(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	base := []model.Conversation{
		{ID: "c1", ThreadID: "t1", UploadedAt: t0.Add(1 * time.Hour)},
		{ID: "c2", ThreadID: "t1", UploadedAt: t0.Add(3 * time.Hour)},
		{ID: "c3", ThreadID: "t1", UploadedAt: t0.Add(2 * time.Hour)},
		{ID: "c4", ThreadID: "t2", UploadedAt: t0.Add(5 * time.Hour)},
		{ID: "c5", ThreadID: "t1", UploadedAt: t0.Add(2 * time.Hour)},
	}
	perms := [][]int{{0, 1, 2, 3, 4}, {4, 3, 2, 1, 0}, {2, 0, 4, 1, 3}}
	for _, p := range perms {
		st := kv.New(kv.NewMemory(), nil)
		convs := make([]model.Conversation, 0, len(p))
		for _, i := range p {
			convs = append(convs, base[i])
		}
		_ = st.Save(ctx, KeyThreads, []model.Thread{{ID: "t1", Title: "a", LastUpdatedAt: t0}, {ID: "t2", Title: "b", LastUpdatedAt: t0}})
		_ = st.Save(ctx, KeyConversations, convs)
		clk := clock.NewManual(t0.Add(10 * time.Hour))
		r := Open(ctx, st, WithClock(clk), WithIDs(seqIDs()))

		got := r.ConversationsForThread("t1")
		if len(got) != 4 {
			t.Fatalf("perm %v: expected 4, got %d", p, len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i].UploadedAt.After(got[i-1].UploadedAt) {
				t.Fatalf("perm %v: not sorted desc: %#v", p, got)
			}
		}

		c, err := r.AttachConversation(ctx, "t1", "new.txt", "n")
		if err != nil {
			t.Fatal(err)
		}
		if first := r.ConversationsForThread("t1")[0]; first.ID != c.ID {
			t.Fatalf("perm %v: newest upload should be first, got %s", p, first.ID)
		}
	}
}

func TestConversationsForThread_TiesKeepInsertionOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _, _ := newTestRepo(t, nil)
	// Clock does not move: all three share an upload time.
	var ids []string
	for i := 0; i < 3; i++ {
		c, err := r.AttachConversation(ctx, "thread-2", fmt.Sprintf("%d.txt", i), "")
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, c.ID)
	}
	got := r.ConversationsForThread("thread-2")
	for i := range ids {
		if got[i].ID != ids[i] {
			t.Fatalf("tie order: got %s at %d want %s", got[i].ID, i, ids[i])
		}
	}
}

func TestRenameThread(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _, clk := newTestRepo(t, nil)

	at := clk.Advance(time.Hour)
	if err := r.RenameThread(ctx, "thread-3", "  Renamed  "); err != nil {
		t.Fatal(err)
	}
	th, _ := r.Thread("thread-3")
	if th.Title != "Renamed" || !th.LastUpdatedAt.Equal(at) {
		t.Fatalf("unexpected thread after rename: %#v", th)
	}
	if r.ThreadsByRecency()[0].ID != "thread-3" {
		t.Fatalf("renamed thread should be most recent")
	}

	if err := r.RenameThread(ctx, "nope", "x"); err != nil {
		t.Fatalf("missing id should be a silent no-op, got %v", err)
	}
	if err := r.RenameThread(ctx, "thread-3", "   "); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
}

func TestAddThread(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, st, clk := newTestRepo(t, nil)
	at := clk.Advance(time.Minute)

	th, err := r.AddThread(ctx, "Planning")
	if err != nil {
		t.Fatal(err)
	}
	if th.ID == "" {
		t.Fatalf("expected an id, got %#v", th)
	}
	if !th.LastUpdatedAt.Equal(at) {
		t.Fatalf("LastUpdatedAt: got %v want %v", th.LastUpdatedAt, at)
	}
	// seqIDs yields thread-1 first, which collides with the seed; the repo must skip it.
	if th.ID == "thread-1" {
		t.Fatalf("id collided with existing thread")
	}
	if got := kv.Load(ctx, st, KeyThreads, []model.Thread{}); len(got) != 4 {
		t.Fatalf("expected 4 persisted threads, got %d", len(got))
	}
	if _, err := r.AddThread(ctx, ""); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
}

func TestSaveModification(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, st, _ := newTestRepo(t, nil)
	c, err := r.AttachConversation(ctx, "thread-1", "a.json", "{}")
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := r.SaveModification(ctx, c.ID, "same"); err != nil {
			t.Fatal(err)
		}
	}
	got, _ := r.Conversation(c.ID)
	if got.Modifications != "same" {
		t.Fatalf("idempotent save: got %q", got.Modifications)
	}

	_ = r.SaveModification(ctx, c.ID, "first")
	_ = r.SaveModification(ctx, c.ID, "second")
	got, _ = r.Conversation(c.ID)
	if got.Modifications != "second" || got.Content != "{}" {
		t.Fatalf("last write should win and content stay intact: %#v", got)
	}
	persisted := kv.Load(ctx, st, KeyConversations, []model.Conversation{})
	if len(persisted) != 1 || persisted[0].Modifications != "second" {
		t.Fatalf("persisted modification: %#v", persisted)
	}

	if err := r.SaveModification(ctx, "conv-missing", "x"); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestDeleteConversation_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _, _ := newTestRepo(t, nil)
	a, _ := r.AttachConversation(ctx, "thread-1", "a.txt", "a")
	b, _ := r.AttachConversation(ctx, "thread-1", "b.txt", "b")

	r.DeleteConversation(ctx, a.ID)
	r.DeleteConversation(ctx, a.ID)
	got := r.Conversations()
	if len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("unexpected conversations: %#v", got)
	}
}

func TestSearchThreads(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRepo(t, nil)
	got := r.SearchThreads("LAUNCH")
	if len(got) != 1 || got[0].ID != "thread-2" {
		t.Fatalf("case-insensitive search: %#v", got)
	}
	if all := r.SearchThreads("  "); len(all) != 3 || all[0].ID != "thread-1" {
		t.Fatalf("empty query should return all by recency: %#v", all)
	}
	if none := r.SearchThreads("zzz"); len(none) != 0 {
		t.Fatalf("expected no matches: %#v", none)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _, _ := newTestRepo(t, nil)
	_, _ = r.AttachConversation(ctx, "thread-1", "a.txt", "a")
	snap := r.Snapshot()
	snap.Threads[0].Title = "mutated"
	snap.Conversations[0].Content = "mutated"

	th, _ := r.Thread(snap.Threads[0].ID)
	if th.Title == "mutated" {
		t.Fatalf("snapshot aliases thread storage")
	}
	if r.Conversations()[0].Content == "mutated" {
		t.Fatalf("snapshot aliases conversation storage")
	}
}

type failingBackend struct{ *kv.Memory }

func (failingBackend) Put(context.Context, string, []byte) error { return errors.New("disk full") }

func TestPersistFailureDoesNotFailMutation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := kv.New(failingBackend{Memory: kv.NewMemory()}, nil)
	r := Open(ctx, st, WithClock(clock.NewManual(t0)))

	th, err := r.AddThread(ctx, "Still works")
	if err != nil {
		t.Fatalf("AddThread should not surface persistence errors: %v", err)
	}
	if _, ok := r.Thread(th.ID); !ok {
		t.Fatalf("thread missing from memory")
	}
	if r.PersistErr() == nil {
		t.Fatalf("expected PersistErr to record the failure")
	}
}
