package api

import (
	"encoding/json"
	"strings"
)

const (
	StatusOK    = "ok"
	StatusError = "error"

	SortHintCreatedAt = "created_at"
)

const (
	RealmPC   = "pc"
	RealmSony = "sony"
	RealmXbox = "xbox"
)

var Realms = []string{RealmPC, RealmSony, RealmXbox}

// ErrorResponse is the body the backend sends with non-2xx statuses. Detail is
// usually a string but validation failures carry a list of objects.
type ErrorResponse struct {
	Detail json.RawMessage `json:"detail,omitempty"`
	Notes  []string        `json:"notes,omitempty"`
}

func (e ErrorResponse) DetailText() string {
	raw := strings.TrimSpace(string(e.Detail))
	if raw == "" || raw == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(e.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if m := strings.TrimSpace(item.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return raw
}

type Character struct {
	Name   string `json:"name"`
	Level  *int   `json:"level,omitempty"`
	Class  string `json:"class,omitempty"`
	League string `json:"league,omitempty"`
}

type CharactersEnvelope struct {
	Characters []Character `json:"characters"`
	SortHint   string      `json:"sort_hint,omitempty"`
}

type RunRequest struct {
	Account   string  `json:"account"`
	Realm     string  `json:"realm"`
	Character *string `json:"character"`
	Contact   *string `json:"contact"`
	Intent    *string `json:"intent"`
}

type CharacterSummary struct {
	Name   string `json:"name,omitempty"`
	Level  *int   `json:"level,omitempty"`
	Class  string `json:"class,omitempty"`
	League string `json:"league,omitempty"`
}

type Holding struct {
	Label      string  `json:"label"`
	Quantity   int     `json:"quantity"`
	ChaosValue float64 `json:"chaos_value"`
}

type PricingSummary struct {
	KnownValueChaos float64   `json:"known_value_chaos"`
	PricedItems     int       `json:"priced_items"`
	TotalItems      int       `json:"total_items"`
	TopHoldings     []Holding `json:"top_holdings"`
}

type CardField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type BuildCard struct {
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Fields      []CardField `json:"fields"`
}

type RunResult struct {
	RunID            string           `json:"run_id,omitempty"`
	Status           string           `json:"status"`
	CharacterSummary CharacterSummary `json:"character_summary"`
	PricingSummary   PricingSummary   `json:"pricing_summary"`
	Posts            []string         `json:"posts"`
	BuildCard        BuildCard        `json:"build_card"`
	Notes            []string         `json:"notes"`
}

func (r RunResult) Failed() bool {
	return r.Status == StatusError
}

// FirstNote returns the first non-blank note, or fallback.
func (r RunResult) FirstNote(fallback string) string {
	for _, note := range r.Notes {
		if n := strings.TrimSpace(note); n != "" {
			return n
		}
	}
	return fallback
}

type RunEnvelope struct {
	Result RunResult `json:"result"`
}

type InterestRequest struct {
	RunID   string  `json:"run_id"`
	Contact *string `json:"contact"`
	Rating  *int    `json:"rating"`
	Intent  *string `json:"intent"`
	Notes   *string `json:"notes"`
}

type InterestResponse struct {
	Saved      bool   `json:"saved"`
	InterestID string `json:"interest_id,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// OptionalString maps blank input to an absent field.
func OptionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func ValidRealm(realm string) bool {
	for _, r := range Realms {
		if r == realm {
			return true
		}
	}
	return false
}
