package onboard

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/g960059/exile-onboard/internal/api"
	"github.com/g960059/exile-onboard/internal/render"
	"github.com/g960059/exile-onboard/internal/route"
	"github.com/g960059/exile-onboard/internal/security"
)

// RunRequest assembles the create request from the form and selection.
func (m Model) RunRequest() api.RunRequest {
	return api.RunRequest{
		Account:   strings.TrimSpace(m.form.Account),
		Realm:     m.form.Realm,
		Character: api.OptionalString(m.chosenCharacter()),
		Contact:   api.OptionalString(m.form.Contact),
		Intent:    api.OptionalString(m.form.Intent),
	}
}

func (m Model) submitRun() (Model, tea.Cmd) {
	if m.session.Run == RunRunning || m.view.RunDisabled {
		return m, nil
	}
	req := m.RunRequest()
	if req.Account == "" {
		m.opts.Recorder.Record(EventRunCreate, OutcomeGuarded)
		return m.setStatus(StatusError, MsgAccountRequired), nil
	}
	m.session.Run = RunRunning
	m.view.RunDisabled = true

	svc, ctx := m.svc, m.ctx
	return m.setStatus(StatusInfo, MsgRunRunning), func() tea.Msg {
		result, err := svc.CreateRun(ctx, req)
		return runCreatedMsg{Result: result, Err: err}
	}
}

// runCreated never renders the create response. A successful create only
// writes the results fragment; the load path renders it.
func (m Model) runCreated(msg runCreatedMsg) (Model, tea.Cmd) {
	m.view.RunDisabled = false

	var err error
	switch {
	case msg.Err != nil:
		err = msg.Err
	case msg.Result.Failed():
		err = errors.New(msg.Result.FirstNote(MsgRunGeneric))
	case strings.TrimSpace(msg.Result.RunID) == "":
		err = ErrMissingRunID
	}
	if err != nil {
		m.session.Run = RunFailed
		m.opts.Recorder.Record(EventRunCreate, OutcomeFailed)
		m.log.Warn("run create failed", "error", err)
		return m.setStatus(StatusError, fmt.Sprintf(MsgRunFailed, failureText(err))), nil
	}

	runID := strings.TrimSpace(msg.Result.RunID)
	m.session.Run = RunSucceeded
	m.opts.Recorder.Record(EventRunCreate, OutcomeOK)
	m.log.Info("run created", "run_id", runID, "contact", security.RedactContact(m.form.Contact))
	return m.navigate(route.ResultsFragment(runID))
}

func (m Model) loadRun(runID string) (Model, tea.Cmd) {
	m = m.clearResults()
	m.session.Load = LoadLoading

	svc, ctx := m.svc, m.ctx
	return m.setStatus(StatusInfo, fmt.Sprintf(MsgLoadRunning, runID)), func() tea.Msg {
		result, err := svc.GetRun(ctx, runID)
		return runLoadedMsg{RunID: runID, Result: result, Err: err}
	}
}

// runLoaded applies a load only if the fragment still names the same run.
func (m Model) runLoaded(msg runLoadedMsg) (Model, tea.Cmd) {
	current := m.history.State()
	if current.View != route.ViewResults || current.RunID != msg.RunID {
		m.opts.Recorder.Record(EventRunLoad, OutcomeDiscarded)
		m.log.Debug("run load discarded", "run_id", msg.RunID, "location", m.history.Fragment())
		return m, nil
	}
	m = m.clearResults()

	if msg.Err != nil {
		m.session.Load = LoadFailed
		m.view.ResultsMessage = fmt.Sprintf(MsgLoadFailed, failureText(msg.Err))
		m.opts.Recorder.Record(EventRunLoad, OutcomeFailed)
		m.log.Warn("run load failed", "run_id", msg.RunID, "error", msg.Err)
		return m.setStatus(StatusError, m.view.ResultsMessage), nil
	}

	m.session.Load = LoadLoaded
	if msg.Result.Failed() {
		m.view.ResultsMessage = fmt.Sprintf(MsgRunOutcomeBad, msg.Result.FirstNote(MsgRunNoDetail))
		m.opts.Recorder.Record(EventRunLoad, OutcomeRunError)
		return m.setStatus(StatusError, m.view.ResultsMessage), nil
	}

	panels := render.BuildPanels(msg.RunID, msg.Result)
	m.view.Panels = &panels
	m.session.Active = &ActiveRun{
		RunID:   panels.RunID,
		Contact: strings.TrimSpace(m.form.Contact),
	}
	m.opts.Recorder.Record(EventRunLoad, OutcomeOK)
	return m.setStatus(StatusInfo, MsgPreviewReady), nil
}

func failureText(err error) string {
	if err == nil {
		return MsgRunGeneric
	}
	if text := strings.TrimSpace(err.Error()); text != "" {
		return text
	}
	return MsgRunGeneric
}
