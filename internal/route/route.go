package route

import (
	"net/url"
	"strings"
)

type View string

const (
	ViewHome    View = "home"
	ViewResults View = "results"
)

const (
	HomeFragment   = "#/"
	resultsPath    = "/results"
	runIDParameter = "run_id"
)

// State is derived from a fragment and nothing else.
type State struct {
	View  View
	RunID string
}

func Home() State {
	return State{View: ViewHome}
}

func Results(runID string) State {
	return State{View: ViewResults, RunID: runID}
}

// MissingRunID reports a results route that does not name a run.
func (s State) MissingRunID() bool {
	return s.View == ViewResults && strings.TrimSpace(s.RunID) == ""
}

// Parse maps a fragment to a State. `#/results?run_id=<id>` selects results;
// every other input, including an empty fragment, selects home.
func Parse(fragment string) State {
	raw := strings.TrimSpace(fragment)
	raw = strings.TrimPrefix(raw, "#")
	path, query, _ := strings.Cut(raw, "?")
	if strings.TrimRight(path, "/") != resultsPath {
		return Home()
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return Results("")
	}
	return Results(strings.TrimSpace(values.Get(runIDParameter)))
}

// Format is the inverse of Parse for the two canonical forms.
func Format(s State) string {
	if s.View != ViewResults {
		return HomeFragment
	}
	if s.RunID == "" {
		return "#" + resultsPath
	}
	q := url.Values{}
	q.Set(runIDParameter, s.RunID)
	return "#" + resultsPath + "?" + q.Encode()
}

func ResultsFragment(runID string) string {
	return Format(Results(runID))
}
