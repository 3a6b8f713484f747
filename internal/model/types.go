package model

import (
	"time"

	"github.com/g960059/exile-onboard/internal/api"
)

// CharacterRecord is one public character of an account on a realm.
type CharacterRecord struct {
	Account   string
	Realm     string
	Name      string
	Level     *int
	Class     string
	League    string
	CreatedAt time.Time
}

// RunRecord is a persisted preview run. Result holds the full payload served
// by the run load endpoint.
type RunRecord struct {
	RunID     string
	Account   string
	Realm     string
	Character string
	Contact   *string
	Intent    *string
	Status    string
	Result    api.RunResult
	CreatedAt time.Time
}

type InterestRecord struct {
	InterestID string
	RunID      string
	Contact    *string
	Rating     *int
	Intent     *string
	Notes      *string
	CreatedAt  time.Time
}

func (c CharacterRecord) API() api.Character {
	return api.Character{
		Name:   c.Name,
		Level:  c.Level,
		Class:  c.Class,
		League: c.League,
	}
}
