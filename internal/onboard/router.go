package onboard

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/g960059/exile-onboard/internal/route"
)

// navigate writes the fragment. The view only changes once the resulting
// FragmentChangedMsg is handled.
func (m Model) navigate(fragment string) (Model, tea.Cmd) {
	m.history.Push(fragment)
	return m, fragmentChanged
}

func (m Model) back() (Model, tea.Cmd) {
	if !m.history.Back() {
		return m, nil
	}
	return m, fragmentChanged
}

func (m Model) forward() (Model, tea.Cmd) {
	if !m.history.Forward() {
		return m, nil
	}
	return m, fragmentChanged
}

// newRun leaves results for home. Panels and the active run are cleared
// before the location is written.
func (m Model) newRun() (Model, tea.Cmd) {
	m = m.clearResults()
	m.view.Status = Status{}
	if m.session.Run != RunRunning {
		m.session.Run = RunIdle
	}
	return m.navigate(route.HomeFragment)
}

// fragmentChanged is the single place RouteState is derived. It always reads
// the fragment, never the previous in-memory route.
func (m Model) fragmentChanged() (Model, tea.Cmd) {
	st := m.history.State()
	m.session.Route = st
	m.view.Location = m.history.Fragment()
	m.view.Screen = st.View

	switch {
	case st.View != route.ViewResults:
		if m.session.Load == LoadLoading {
			m.view.Status = Status{}
		}
		m = m.clearResults()
		m.session.Load = LoadIdle
		return m, nil
	case st.MissingRunID():
		m = m.clearResults()
		m.session.Load = LoadFailed
		m.view.ResultsMessage = MsgLoadMissingID
		m.opts.Recorder.Record(EventRunLoad, OutcomeGuarded)
		return m.setStatus(StatusError, MsgLoadMissingID), nil
	default:
		return m.loadRun(st.RunID)
	}
}

func (m Model) clearResults() Model {
	m.view.Panels = nil
	m.view.ResultsMessage = ""
	m.session.Active = nil
	return m
}
