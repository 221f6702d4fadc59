package session

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"vibelog/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(
		filepath.Join(t.TempDir(), "sessions.db"),
		"test-secret",
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := domain.Session{
		Cookies: []domain.Cookie{
			{Name: "auth_token", Value: "abc", Domain: ".x.com", Path: "/", Secure: true, HTTPOnly: true},
			{Name: "ct0", Value: "def", Domain: ".x.com", Path: "/"},
		},
		CapturedAt: time.Now(),
	}
	if err := store.Put(ctx, "alice", sess); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("session absent after put")
	}
	if len(got.Cookies) != 2 || got.Cookies[0].Value != "abc" {
		t.Fatalf("cookies mangled: %+v", got.Cookies)
	}
}

func TestStore_GetAbsent(t *testing.T) {
	store := newTestStore(t)
	got, err := store.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for absent account")
	}
}

// A session past the 7-day TTL is reported absent even though the blob
// would decrypt fine, and the row is removed.
func TestStore_ExpiredSessionTreatedAsAbsent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := domain.Session{
		Cookies:    []domain.Cookie{{Name: "auth_token", Value: "stale"}},
		CapturedAt: time.Now().Add(-8 * 24 * time.Hour),
	}
	if err := store.Put(ctx, "alice", old); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatal("expired session must be treated as absent")
	}

	// Row should be gone now.
	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE account_id = ?`, "alice").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatal("expired session row not deleted")
	}
}

func TestStore_DeleteAndOverwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := domain.Session{Cookies: []domain.Cookie{{Name: "a", Value: "1"}}, CapturedAt: time.Now()}
	if err := store.Put(ctx, "alice", sess); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Get(ctx, "alice"); got != nil {
		t.Fatal("session survived delete")
	}

	sess.Cookies[0].Value = "2"
	if err := store.Put(ctx, "alice", sess); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, "alice")
	if err != nil || got == nil {
		t.Fatalf("get after re-put: %v", err)
	}
	if got.Cookies[0].Value != "2" {
		t.Fatal("re-put did not overwrite")
	}
}

func TestNewSQLiteStore_RequiresSecret(t *testing.T) {
	_, err := NewSQLiteStore(filepath.Join(t.TempDir(), "s.db"), "", slog.Default())
	if err == nil {
		t.Fatal("expected error for empty secret")
	}
}
