package onboard

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/g960059/exile-onboard/internal/api"
	"github.com/g960059/exile-onboard/internal/security"
)

// submitInterest sends follow-up interest for the active run. Without an
// active run it fails locally and nothing is sent.
func (m Model) submitInterest(msg SubmitInterestMsg) (Model, tea.Cmd) {
	if m.session.Interest {
		return m, nil
	}
	if m.session.Active == nil {
		m.opts.Recorder.Record(EventInterest, OutcomeGuarded)
		return m.setStatus(StatusError, MsgInterestNoRun), nil
	}
	rating, ok := parseRating(msg.Rating)
	if !ok {
		m.opts.Recorder.Record(EventInterest, OutcomeGuarded)
		return m.setStatus(StatusError, fmt.Sprintf(MsgInterestFailed, MsgInterestBadNum)), nil
	}
	contact := strings.TrimSpace(msg.Contact)
	if contact == "" {
		contact = m.session.Active.Contact
	}
	req := api.InterestRequest{
		RunID:   m.session.Active.RunID,
		Contact: api.OptionalString(contact),
		Rating:  rating,
		Intent:  api.OptionalString(msg.Intent),
		Notes:   api.OptionalString(msg.Notes),
	}
	m.session.Interest = true
	m.view.InterestDisabled = true
	m.log.Info("interest submitted", "run_id", req.RunID, "contact", security.RedactContact(contact))

	svc, ctx := m.svc, m.ctx
	return m, func() tea.Msg {
		resp, err := svc.SaveInterest(ctx, req)
		return interestDoneMsg{RunID: req.RunID, Response: resp, Err: err}
	}
}

// interestDone treats anything but an explicit saved flag as failure. The
// active run stays in place either way.
func (m Model) interestDone(msg interestDoneMsg) (Model, tea.Cmd) {
	m.session.Interest = false
	m.view.InterestDisabled = false
	if m.session.Active == nil || m.session.Active.RunID != msg.RunID {
		m.opts.Recorder.Record(EventInterest, OutcomeDiscarded)
		m.log.Debug("interest result discarded", "run_id", msg.RunID)
		return m, nil
	}

	err := msg.Err
	if err == nil && !msg.Response.Saved {
		err = ErrNotSaved
	}
	if err != nil {
		m.opts.Recorder.Record(EventInterest, OutcomeFailed)
		m.log.Warn("interest failed", "run_id", msg.RunID, "error", err)
		return m.setStatus(StatusError, fmt.Sprintf(MsgInterestFailed, failureText(err))), nil
	}
	m.opts.Recorder.Record(EventInterest, OutcomeOK)
	return m.setStatus(StatusInfo, MsgInterestSaved), nil
}

func parseRating(raw string) (*int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	return &v, true
}
