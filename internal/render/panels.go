// Package render turns backend payloads into display values. Backend strings
// are never trusted: the terminal path strips escape and control sequences,
// the HTML path relies on html/template contextual escaping.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/g960059/exile-onboard/internal/api"
)

const (
	UnknownCharacter = "Unknown"
	DefaultCardTitle = "Build Intelligence"
	NoPosts          = "No posts generated."
)

var printer = message.NewPrinter(language.English)

// Panels is everything the results view shows for one loaded run.
type Panels struct {
	RunID      string
	Character  string
	KnownValue string
	Coverage   string
	Holdings   []string
	Posts      string
	Card       Card
}

type Card struct {
	Title       string
	Description string
	Fields      []api.CardField
}

// BuildPanels derives panels from a stored ok run. Holdings keep the order the
// backend sent them in.
func BuildPanels(runID string, r api.RunResult) Panels {
	name := strings.TrimSpace(r.CharacterSummary.Name)
	if name == "" {
		name = UnknownCharacter
	}
	p := r.PricingSummary
	holdings := make([]string, 0, len(p.TopHoldings))
	for _, h := range p.TopHoldings {
		holdings = append(holdings, fmt.Sprintf("%s x%d (~%sc)", h.Label, h.Quantity, Chaos(h.ChaosValue)))
	}
	posts := strings.Join(r.Posts, "\n")
	if posts == "" {
		posts = NoPosts
	}
	title := strings.TrimSpace(r.BuildCard.Title)
	if title == "" {
		title = DefaultCardTitle
	}
	fields := make([]api.CardField, len(r.BuildCard.Fields))
	copy(fields, r.BuildCard.Fields)
	if r.RunID != "" {
		runID = r.RunID
	}
	return Panels{
		RunID:      runID,
		Character:  name,
		KnownValue: Chaos(p.KnownValueChaos) + " chaos",
		Coverage:   strconv.Itoa(p.PricedItems) + "/" + strconv.Itoa(p.TotalItems),
		Holdings:   holdings,
		Posts:      posts,
		Card: Card{
			Title:       title,
			Description: r.BuildCard.Description,
			Fields:      fields,
		},
	}
}

// Chaos formats a chaos-orb amount with grouping and at most one decimal.
func Chaos(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(1)))
}

// OptionLabel renders `name (lvl N | class | league)`, omitting absent parts.
func OptionLabel(c api.Character) string {
	name := strings.TrimSpace(c.Name)
	parts := make([]string, 0, 3)
	if c.Level != nil {
		parts = append(parts, "lvl "+strconv.Itoa(*c.Level))
	}
	if class := strings.TrimSpace(c.Class); class != "" {
		parts = append(parts, class)
	}
	if league := strings.TrimSpace(c.League); league != "" {
		parts = append(parts, league)
	}
	if len(parts) == 0 {
		return name
	}
	return name + " (" + strings.Join(parts, " | ") + ")"
}
