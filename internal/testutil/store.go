package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/g960059/exile-onboard/internal/api"
	"github.com/g960059/exile-onboard/internal/db"
	"github.com/g960059/exile-onboard/internal/model"
)

func NewStore(t *testing.T) (*db.Store, context.Context) {
	t.Helper()
	ctx := context.Background()
	store, err := db.Open(ctx, filepath.Join(t.TempDir(), "onboard-test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	if err := db.ApplyMigrations(ctx, store.DB()); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return store, ctx
}

// SeedCharacters stores names for account on realm. The first name is the
// newest.
func SeedCharacters(t *testing.T, store *db.Store, ctx context.Context, account, realm string, names ...string) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range names {
		c := model.CharacterRecord{
			Account:   account,
			Realm:     realm,
			Name:      name,
			CreatedAt: base.Add(-time.Duration(i) * time.Hour),
		}
		if err := store.UpsertCharacter(ctx, c); err != nil {
			t.Fatalf("seed character %s: %v", name, err)
		}
	}
}

func SeedRun(t *testing.T, store *db.Store, ctx context.Context, result api.RunResult) model.RunRecord {
	t.Helper()
	run := model.RunRecord{
		RunID:   result.RunID,
		Account: "exile",
		Realm:   api.RealmPC,
		Status:  result.Status,
		Result:  result,
	}
	if err := store.InsertRun(ctx, run); err != nil {
		t.Fatalf("seed run %s: %v", result.RunID, err)
	}
	return run
}
