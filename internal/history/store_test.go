package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"plexgif/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAddAndListNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, item := range []string{"100", "200", "100"} {
		_, err := store.Add(ctx, history.Record{
			ItemID:       item,
			Start:        time.Duration(i) * time.Second,
			End:          time.Duration(i+3) * time.Second,
			Path:         "/srv/gifs/clip.gif",
			WebPath:      "/gifs/clip.gif",
			SubtitleKind: "text_artifact",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}

	all, err := store.List(ctx, history.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if all[0].Start != 2*time.Second || all[0].EndMs != 5000 {
		t.Fatalf("expected newest record first, got %#v", all[0])
	}
	if !all[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("created_at not preserved: %v", all[0].CreatedAt)
	}

	filtered, err := store.List(ctx, history.ListOptions{ItemID: "100", Limit: 1})
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ItemID != "100" {
		t.Fatalf("unexpected filtered result: %#v", filtered)
	}

	count, err := store.Count(ctx)
	if err != nil || count != 3 {
		t.Fatalf("Count = %d, %v", count, err)
	}
}

func TestAddDefaultsAndValidation(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	rec, err := store.Add(ctx, history.Record{ItemID: "1", End: time.Second, Path: "/tmp/a.gif"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec.ID == 0 || rec.SubtitleKind != "none" || rec.CreatedAt.IsZero() {
		t.Fatalf("expected defaults to be applied, got %#v", rec)
	}

	if _, err := store.Add(ctx, history.Record{Path: "/tmp/a.gif"}); err == nil {
		t.Fatal("expected error for missing item id")
	}
	if _, err := store.Add(ctx, history.Record{ItemID: "1"}); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Add(context.Background(), history.Record{ItemID: "9", Path: "/x.gif"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	records, err := reopened.List(context.Background(), history.ListOptions{})
	if err != nil || len(records) != 1 {
		t.Fatalf("expected persisted record, got %v %v", records, err)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := history.Open(" "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpenDetectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := history.Open(path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}
