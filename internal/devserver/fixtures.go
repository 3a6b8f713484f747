package devserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/g960059/exile-onboard/internal/api"
	"github.com/g960059/exile-onboard/internal/db"
	"github.com/g960059/exile-onboard/internal/model"
)

// PrivateAccounts answer the character lookup with 403.
var PrivateAccounts = map[string]bool{
	"hiddenexile": true,
}

func intPtr(v int) *int { return &v }

// Fixtures returns the demo characters seeded into a fresh store. Within an
// account the list is ordered newest first.
func Fixtures(now time.Time) []model.CharacterRecord {
	day := 24 * time.Hour
	return []model.CharacterRecord{
		{Account: "exile", Realm: api.RealmPC, Name: "SparkingWitch", Level: intPtr(94), Class: "Witch", League: "Settlers", CreatedAt: now.Add(-1 * day)},
		{Account: "exile", Realm: api.RealmPC, Name: "BoneShaper", Level: intPtr(88), Class: "Necromancer", League: "Settlers", CreatedAt: now.Add(-9 * day)},
		{Account: "exile", Realm: api.RealmPC, Name: "OldRanger", Level: intPtr(71), Class: "Ranger", League: "Standard", CreatedAt: now.Add(-400 * day)},
		{Account: "exile", Realm: api.RealmSony, Name: "ConsoleMarauder", Level: intPtr(65), Class: "Juggernaut", League: "Settlers", CreatedAt: now.Add(-3 * day)},
		{Account: "tradelord", Realm: api.RealmPC, Name: "FlipperDuelist", Level: intPtr(100), Class: "Slayer", League: "Settlers", CreatedAt: now.Add(-2 * day)},
		{Account: "tradelord", Realm: api.RealmXbox, Name: "BoxTemplar", Level: intPtr(52), Class: "Templar", League: "Standard", CreatedAt: now.Add(-30 * day)},
		{Account: "mystery", Realm: api.RealmPC, Name: "Nameless", CreatedAt: now.Add(-5 * day)},
	}
}

// Seed upserts the fixture characters.
func Seed(ctx context.Context, store *db.Store, now time.Time) error {
	for _, c := range Fixtures(now) {
		if err := store.UpsertCharacter(ctx, c); err != nil {
			return fmt.Errorf("seed %s/%s: %w", c.Account, c.Name, err)
		}
	}
	return nil
}

func isPrivate(account string) bool {
	return PrivateAccounts[strings.ToLower(strings.TrimSpace(account))]
}
