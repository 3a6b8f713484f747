package devserver

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"

	"github.com/g960059/exile-onboard/internal/api"
	"github.com/g960059/exile-onboard/internal/model"
	"github.com/g960059/exile-onboard/internal/render"
)

type catalogItem struct {
	label string
	chaos float64
	max   int
}

// catalog is the fixed price sheet previews draw holdings from.
var catalog = []catalogItem{
	{label: "Mirror Shard", chaos: 4200, max: 2},
	{label: "Divine Orb", chaos: 182.5, max: 12},
	{label: "Exalted Orb", chaos: 14, max: 40},
	{label: "Orb of Annulment", chaos: 6.5, max: 25},
	{label: "Chaos Orb", chaos: 1, max: 400},
	{label: "Awakened Sextant", chaos: 3, max: 60},
}

const maxTopHoldings = 3

// BuildPreview produces the deterministic market and build preview for req
// from the account's characters, newest first. The same inputs always
// produce the same result.
func BuildPreview(runID string, req api.RunRequest, chars []model.CharacterRecord) api.RunResult {
	if len(chars) == 0 {
		return failedRun(runID, fmt.Sprintf("No public characters found for %s on %s.", req.Account, req.Realm))
	}
	picked := chars[0]
	if req.Character != nil {
		want := strings.TrimSpace(*req.Character)
		found := false
		for _, c := range chars {
			if strings.EqualFold(c.Name, want) {
				picked, found = c, true
				break
			}
		}
		if !found {
			return failedRun(runID, fmt.Sprintf("Character %s was not found on this account.", want))
		}
	}

	seed := previewSeed(req.Account, req.Realm, picked.Name)
	var holdings []api.Holding
	var known float64
	priced := 0
	for i, item := range catalog {
		qty := int((seed>>(uint(i)*7))%uint64(item.max+1))
		if qty == 0 {
			continue
		}
		value := float64(qty) * item.chaos
		known += value
		priced++
		holdings = append(holdings, api.Holding{Label: item.label, Quantity: qty, ChaosValue: value})
	}
	sort.SliceStable(holdings, func(i, j int) bool {
		return holdings[i].ChaosValue > holdings[j].ChaosValue
	})
	top := holdings
	if len(top) > maxTopHoldings {
		top = top[:maxTopHoldings]
	}
	unpriced := int(seed % 5)

	class := fallback(picked.Class, "Unknown class")
	league := fallback(picked.League, "Standard")
	level := "?"
	if picked.Level != nil {
		level = strconv.Itoa(*picked.Level)
	}

	return api.RunResult{
		RunID:  runID,
		Status: api.StatusOK,
		CharacterSummary: api.CharacterSummary{
			Name:   picked.Name,
			Level:  picked.Level,
			Class:  picked.Class,
			League: picked.League,
		},
		PricingSummary: api.PricingSummary{
			KnownValueChaos: known,
			PricedItems:     priced,
			TotalItems:      priced + unpriced,
			TopHoldings:     top,
		},
		Posts:     buildPosts(req, picked.Name, top),
		BuildCard: api.BuildCard{
			Title:       picked.Name + " build",
			Description: fmt.Sprintf("Level %s %s in %s.", level, class, league),
			Fields: []api.CardField{
				{Name: "Class", Value: class},
				{Name: "Level", Value: level},
				{Name: "League", Value: league},
				{Name: "Known wealth", Value: render.Chaos(known) + "c"},
			},
		},
		Notes: []string{},
	}
}

func buildPosts(req api.RunRequest, name string, top []api.Holding) []string {
	intent := ""
	if req.Intent != nil {
		intent = strings.ToLower(strings.TrimSpace(*req.Intent))
	}
	posts := make([]string, 0, len(top)+1)
	switch {
	case strings.Contains(intent, "sell"):
		for _, h := range top {
			each := h.ChaosValue / float64(h.Quantity)
			posts = append(posts, fmt.Sprintf("WTS %s x%d ~%sc each, whisper %s", h.Label, h.Quantity, render.Chaos(each), name))
		}
	case strings.Contains(intent, "buy"):
		posts = append(posts, fmt.Sprintf("WTB build upgrades for %s, budget %sc", name, render.Chaos(sumValues(top))))
	default:
		posts = append(posts, fmt.Sprintf("LF group: %s ready for maps", name))
	}
	return posts
}

func failedRun(runID, note string) api.RunResult {
	return api.RunResult{
		RunID:  runID,
		Status: api.StatusError,
		Posts:  []string{},
		Notes:  []string{note},
	}
}

func previewSeed(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(strings.ToLower(p)))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

func sumValues(hs []api.Holding) float64 {
	var total float64
	for _, h := range hs {
		total += h.ChaosValue
	}
	return total
}

func fallback(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
