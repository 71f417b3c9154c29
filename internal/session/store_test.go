package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/monica-chat/monica/internal/message"
	"github.com/monica-chat/monica/internal/remote"
)

func newLoadedStore(t *testing.T) (*Store, *remote.MemoryStore) {
	t.Helper()
	mem := remote.NewMemoryStore()
	s := NewStore(mem, "u1")
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return s, mem
}

func TestLoadWithEmptyRemoteCreatesFreshSession(t *testing.T) {
	s, _ := newLoadedStore(t)

	cur := s.Current()
	if cur == nil {
		t.Fatal("expected a current session")
	}
	if len(cur.History) != 0 {
		t.Errorf("expected empty history, got %d messages", len(cur.History))
	}
	if !strings.HasPrefix(cur.Title, "Session (") {
		t.Errorf("unexpected title %q", cur.Title)
	}
}

func TestLoadMergesRemoteSessions(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemoryStore()

	older := NewIDAt(time.Now().Add(-time.Hour))
	newer := NewIDAt(time.Now())
	for _, id := range []string{older, newer} {
		err := mem.Set(ctx, "u1", id, remote.Record{
			Title:   "restored",
			History: []message.Message{message.UserText("hi")},
		})
		if err != nil {
			t.Fatalf("Set() error: %v", err)
		}
	}

	s := NewStore(mem, "u1")
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if got := len(s.List()); got != 2 {
		t.Fatalf("expected 2 sessions, got %d", got)
	}
	if cur := s.Current(); cur.ID != newer {
		t.Errorf("expected newest session %q current, got %q", newer, cur.ID)
	}
}

func TestLoadPicksMostRecentlyTouched(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemoryStore()

	older := NewIDAt(time.Now().Add(-time.Hour))
	newer := NewIDAt(time.Now())

	// The remote stamps update time on every Set, so writing the older
	// session last makes it the most recently touched one.
	for _, id := range []string{newer, older} {
		err := mem.Set(ctx, "u1", id, remote.Record{
			Title:   "restored",
			History: []message.Message{message.UserText("hi")},
		})
		if err != nil {
			t.Fatalf("Set() error: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	s := NewStore(mem, "u1")
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cur := s.Current(); cur.ID != older {
		t.Errorf("expected last-touched session %q current, got %q", older, cur.ID)
	}
}

func TestUnseededStoreCreatesCurrentLazily(t *testing.T) {
	s := NewStore(remote.NewMemoryStore(), "u1")

	msg := s.Append(message.UserText("hello"))
	if msg.SessionIndex != 0 {
		t.Errorf("SessionIndex = %d, want 0", msg.SessionIndex)
	}

	cur := s.Current()
	if cur == nil || len(cur.History) != 1 {
		t.Fatalf("expected a lazily created session with 1 message, got %+v", cur)
	}
}

func TestAppendStampsSessionIndex(t *testing.T) {
	s, _ := newLoadedStore(t)

	first := s.Append(message.UserText("one"))
	second := s.Append(message.ModelText("two"))

	if first.SessionIndex != 0 || second.SessionIndex != 1 {
		t.Errorf("indices %d, %d; want 0, 1", first.SessionIndex, second.SessionIndex)
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	s, _ := newLoadedStore(t)
	s.Append(message.UserText("original"))

	history := s.History()
	history[0] = message.UserText("mutated")

	if got := s.History()[0].Text(); got != "original" {
		t.Errorf("store history mutated through snapshot: %q", got)
	}
}

func TestTruncateFrom(t *testing.T) {
	s, _ := newLoadedStore(t)
	s.Append(message.UserText("q1"))
	s.Append(message.ModelText("a1"))
	s.Append(message.UserText("q2"))

	s.TruncateFrom(1)

	history := s.History()
	if len(history) != 1 || history[0].Text() != "q1" {
		t.Errorf("unexpected history after truncate: %d messages", len(history))
	}
}

func TestSwitchToUnknownSession(t *testing.T) {
	s, _ := newLoadedStore(t)
	if err := s.SwitchTo(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown session id")
	}
}

func TestSwitchToFlushesCurrentFirst(t *testing.T) {
	ctx := context.Background()
	s, mem := newLoadedStore(t)

	first := s.Current().ID
	s.Append(message.UserText("unsaved"))

	second := s.Create()
	if err := s.SwitchTo(ctx, first); err != nil {
		t.Fatalf("SwitchTo() error: %v", err)
	}

	// Switching away from first again flushes its pending history.
	if err := s.SwitchTo(ctx, second.ID); err != nil {
		t.Fatalf("SwitchTo() error: %v", err)
	}

	rec, err := mem.Get(ctx, "u1", first)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if rec == nil || len(rec.History) != 1 {
		t.Fatalf("expected flushed history for %q, got %+v", first, rec)
	}
}

func TestDeleteCurrentRecreates(t *testing.T) {
	ctx := context.Background()
	s, mem := newLoadedStore(t)

	old := s.Current().ID
	s.Append(message.UserText("bye"))
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	if err := s.Delete(ctx, old); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	cur := s.Current()
	if cur.ID == old {
		t.Error("expected a fresh session after deleting current")
	}
	if len(cur.History) != 0 {
		t.Errorf("fresh session has %d messages", len(cur.History))
	}

	// Remote copy is soft-deleted.
	rec, err := mem.Get(ctx, "u1", old)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if rec != nil {
		t.Errorf("expected deleted record to be hidden, got %+v", rec)
	}
}

func TestListNewestFirst(t *testing.T) {
	s, _ := newLoadedStore(t)
	first := s.Current().ID

	// Ids are millisecond-prefixed; force distinct timestamps.
	time.Sleep(2 * time.Millisecond)
	second := s.Create().ID

	list := s.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}
	if list[0].ID != second || list[1].ID != first {
		t.Errorf("order %q, %q; want newest first", list[0].ID, list[1].ID)
	}
}

func TestNewIDOrdering(t *testing.T) {
	a := NewIDAt(time.UnixMilli(1_700_000_000_000))
	b := NewIDAt(time.UnixMilli(1_700_000_100_000))
	if !(a < b) {
		t.Errorf("expected %q < %q", a, b)
	}
}

func TestNewTitleFormat(t *testing.T) {
	ts := time.Date(2024, time.December, 5, 15, 22, 0, 0, time.UTC)
	if got := NewTitle(ts); got != "Session (Dec 5 03:22 PM)" {
		t.Errorf("NewTitle() = %q", got)
	}
}
