package remote

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/monica-chat/monica/internal/message"
)

// full is the combined surface both implementations provide.
type full interface {
	Store
	Credentials
	SettingsStore
}

// eachStore runs a test against both store implementations.
func eachStore(t *testing.T, fn func(t *testing.T, s full)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
	t.Run("file", func(t *testing.T) {
		fs, err := NewFileStoreAt(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileStoreAt() error: %v", err)
		}
		fn(t, fs)
	})
}

func TestGetAbsentReturnsNil(t *testing.T) {
	eachStore(t, func(t *testing.T, s full) {
		rec, err := s.Get(context.Background(), "u1", "missing")
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if rec != nil {
			t.Errorf("expected nil for absent record, got %+v", rec)
		}
	})
}

func TestSetAndGetRoundTrip(t *testing.T) {
	eachStore(t, func(t *testing.T, s full) {
		ctx := context.Background()
		in := Record{
			Title:   "morning chat",
			History: []message.Message{message.UserText("hi"), message.ModelText("hello")},
		}
		if err := s.Set(ctx, "u1", "s1", in); err != nil {
			t.Fatalf("Set() error: %v", err)
		}

		rec, err := s.Get(ctx, "u1", "s1")
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if rec == nil {
			t.Fatal("expected a record")
		}
		if rec.Title != "morning chat" || len(rec.History) != 2 {
			t.Errorf("round trip mangled record: %+v", rec)
		}
		if rec.UpdatedAt.IsZero() {
			t.Error("expected UpdatedAt to be stamped")
		}
	})
}

func TestSetMergesZeroFields(t *testing.T) {
	eachStore(t, func(t *testing.T, s full) {
		ctx := context.Background()
		if err := s.Set(ctx, "u1", "s1", Record{Title: "keep me", History: []message.Message{message.UserText("hi")}}); err != nil {
			t.Fatalf("Set() error: %v", err)
		}

		// Writing only a history must not blank the stored title.
		err := s.Set(ctx, "u1", "s1", Record{History: []message.Message{
			message.UserText("hi"),
			message.ModelText("there"),
		}})
		if err != nil {
			t.Fatalf("Set() error: %v", err)
		}

		rec, err := s.Get(ctx, "u1", "s1")
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if rec.Title != "keep me" {
			t.Errorf("merge dropped title: %q", rec.Title)
		}
		if len(rec.History) != 2 {
			t.Errorf("merge kept stale history: %d messages", len(rec.History))
		}
	})
}

func TestDeleteIsSoft(t *testing.T) {
	eachStore(t, func(t *testing.T, s full) {
		ctx := context.Background()
		if err := s.Set(ctx, "u1", "s1", Record{Title: "doomed"}); err != nil {
			t.Fatalf("Set() error: %v", err)
		}
		if err := s.Delete(ctx, "u1", "s1"); err != nil {
			t.Fatalf("Delete() error: %v", err)
		}

		rec, err := s.Get(ctx, "u1", "s1")
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if rec != nil {
			t.Errorf("deleted record still visible: %+v", rec)
		}

		records, err := s.List(ctx, "u1")
		if err != nil {
			t.Fatalf("List() error: %v", err)
		}
		if _, ok := records["s1"]; ok {
			t.Error("deleted record listed")
		}
	})
}

func TestListScopedPerUser(t *testing.T) {
	eachStore(t, func(t *testing.T, s full) {
		ctx := context.Background()
		if err := s.Set(ctx, "u1", "s1", Record{Title: "mine"}); err != nil {
			t.Fatalf("Set() error: %v", err)
		}
		if err := s.Set(ctx, "u2", "s2", Record{Title: "theirs"}); err != nil {
			t.Fatalf("Set() error: %v", err)
		}

		records, err := s.List(ctx, "u1")
		if err != nil {
			t.Fatalf("List() error: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 record for u1, got %d", len(records))
		}
		if records["s1"].Title != "mine" {
			t.Errorf("wrong record listed: %+v", records)
		}
	})
}

func TestCredentialsRoundTrip(t *testing.T) {
	eachStore(t, func(t *testing.T, s full) {
		ctx := context.Background()

		key, err := s.APIKey(ctx, "u1")
		if err != nil {
			t.Fatalf("APIKey() error: %v", err)
		}
		if key != "" {
			t.Errorf("expected empty key initially, got %q", key)
		}

		if err := s.StoreAPIKey(ctx, "u1", "groq:gsk_test"); err != nil {
			t.Fatalf("StoreAPIKey() error: %v", err)
		}
		key, err = s.APIKey(ctx, "u1")
		if err != nil {
			t.Fatalf("APIKey() error: %v", err)
		}
		if key != "groq:gsk_test" {
			t.Errorf("expected stored key back, got %q", key)
		}
	})
}

func TestSettingsRoundTrip(t *testing.T) {
	eachStore(t, func(t *testing.T, s full) {
		ctx := context.Background()

		raw, err := s.LoadSettings(ctx, "u1")
		if err != nil {
			t.Fatalf("LoadSettings() error: %v", err)
		}
		if raw != nil {
			t.Errorf("expected nil settings initially, got %s", raw)
		}

		doc := json.RawMessage(`{"temperature":0.5,"language":"fr"}`)
		if err := s.SaveSettings(ctx, "u1", doc); err != nil {
			t.Fatalf("SaveSettings() error: %v", err)
		}
		raw, err = s.LoadSettings(ctx, "u1")
		if err != nil {
			t.Fatalf("LoadSettings() error: %v", err)
		}

		var got map[string]any
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("bad settings document: %v", err)
		}
		if got["language"] != "fr" {
			t.Errorf("unexpected settings document: %v", got)
		}
	})
}
