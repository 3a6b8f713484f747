package onboard

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/g960059/exile-onboard/internal/api"
	"github.com/g960059/exile-onboard/internal/latest"
	"github.com/g960059/exile-onboard/internal/render"
)

// LookupQuery is the de-duplication key of a character lookup.
type LookupQuery struct {
	Account string
	Realm   string
}

func (q LookupQuery) Key() string {
	return q.Account + "|" + q.Realm
}

func placeholderOptions() []Option {
	return []Option{{Label: PlaceholderLabel}}
}

func (m Model) accountChanged(value string) (Model, tea.Cmd) {
	m.form.Account = value
	token := m.debounce.Issue()
	return m, tea.Tick(m.opts.Debounce, func(time.Time) tea.Msg {
		return lookupDebounceMsg{Token: token}
	})
}

func (m Model) debounceFired(msg lookupDebounceMsg) (Model, tea.Cmd) {
	if !m.debounce.Current(msg.Token) {
		return m, nil
	}
	return m.requestLookup(false)
}

func (m Model) realmChanged(realm string) (Model, tea.Cmd) {
	if api.ValidRealm(realm) {
		m.form.Realm = realm
	}
	return m.requestLookup(true)
}

// requestLookup issues a character lookup for the current form unless the
// account is too short or, when not forced, the key matches the last
// successfully completed lookup. Any pending debounce is superseded.
func (m Model) requestLookup(force bool) (Model, tea.Cmd) {
	m.debounce.Invalidate()
	account := strings.TrimSpace(m.form.Account)
	if utf8.RuneCountInString(account) < m.opts.MinAccountLength {
		m.lookups.Invalidate()
		m.session.LookupKey = ""
		m.view.Options = placeholderOptions()
		m.view.Selected = 0
		m.view.LookupLoading = false
		m.view.SelectDisabled = false
		m.opts.Recorder.Record(EventLookup, OutcomeGuarded)
		return m.setStatus(StatusInfo, fmt.Sprintf(MsgLookupGuidance, m.opts.MinAccountLength)), nil
	}

	q := LookupQuery{Account: account, Realm: m.form.Realm}
	key := q.Key()
	if !force && key == m.session.LookupKey {
		m.opts.Recorder.Record(EventLookup, OutcomeSkipped)
		return m, nil
	}

	token := m.lookups.Issue()
	m.view.LookupLoading = true
	m.view.SelectDisabled = true
	m.opts.Recorder.Record(EventLookup, OutcomeIssued)
	m.log.Debug("lookup issued", "token", uint64(token), "realm", q.Realm)

	svc, ctx := m.svc, m.ctx
	return m.setStatus(StatusInfo, MsgLookupRunning), func() tea.Msg {
		out := latest.Call(ctx, token, key, func(ctx context.Context) (api.CharactersEnvelope, error) {
			return svc.ListCharacters(ctx, q.Account, q.Realm)
		})
		return lookupDoneMsg{Outcome: out}
	}
}

func (m Model) lookupDone(msg lookupDoneMsg) (Model, tea.Cmd) {
	next, cmd := m, tea.Cmd(nil)
	applied := latest.Apply(m.lookups, msg.Outcome, func(out latest.Outcome[api.CharactersEnvelope]) {
		next, cmd = m.applyLookup(out)
	})
	if !applied {
		m.opts.Recorder.Record(EventLookup, OutcomeDiscarded)
		m.log.Debug("lookup discarded", "token", uint64(msg.Outcome.Token))
		return m, nil
	}
	return next, cmd
}

func (m Model) applyLookup(out latest.Outcome[api.CharactersEnvelope]) (Model, tea.Cmd) {
	m.view.LookupLoading = false
	m.view.SelectDisabled = false
	m.view.Options = placeholderOptions()
	m.view.Selected = 0

	if out.Err != nil {
		m.session.LookupKey = ""
		m.opts.Recorder.Record(EventLookup, OutcomeFailed)
		m.log.Warn("lookup failed", "error", out.Err)
		return m.setStatus(StatusError, fmt.Sprintf(MsgLookupFailed, out.Err.Error())), nil
	}

	m.session.LookupKey = out.Key
	m.opts.Recorder.Record(EventLookup, OutcomeApplied)
	options := placeholderOptions()
	for _, c := range out.Value.Characters {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		c.Name = name
		options = append(options, Option{Label: render.OptionLabel(c), Value: name})
	}
	m.view.Options = options

	found := len(options) - 1
	switch {
	case found == 0:
		return m.setStatus(StatusInfo, MsgLookupNone), nil
	case out.Value.SortHint == api.SortHintCreatedAt:
		m.view.Selected = 1
		return m.setStatus(StatusInfo, fmt.Sprintf(MsgLookupNewest, found, options[1].Value)), nil
	default:
		return m.setStatus(StatusInfo, fmt.Sprintf(MsgLookupBestSignal, found)), nil
	}
}

func (m Model) selectCharacter(index int) Model {
	if m.view.SelectDisabled || index < 0 || index >= len(m.view.Options) {
		return m
	}
	m.view.Selected = index
	return m
}

// chosenCharacter applies the precedence manual entry > selection >
// placeholder (empty).
func (m Model) chosenCharacter() string {
	if manual := strings.TrimSpace(m.form.Character); manual != "" {
		return manual
	}
	if m.view.Selected > 0 && m.view.Selected < len(m.view.Options) {
		return m.view.Options[m.view.Selected].Value
	}
	return ""
}
