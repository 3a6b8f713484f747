package onboard

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/g960059/exile-onboard/internal/latest"
	"github.com/g960059/exile-onboard/internal/render"
	"github.com/g960059/exile-onboard/internal/route"
)

type RunPhase string

const (
	RunIdle      RunPhase = "idle"
	RunRunning   RunPhase = "running"
	RunSucceeded RunPhase = "succeeded"
	RunFailed    RunPhase = "failed"
)

type LoadPhase string

const (
	LoadIdle    LoadPhase = "idle"
	LoadLoading LoadPhase = "loading"
	LoadLoaded  LoadPhase = "loaded"
	LoadFailed  LoadPhase = "load_failed"
)

type StatusKind string

const (
	StatusInfo  StatusKind = "info"
	StatusError StatusKind = "error"
)

type Status struct {
	Text string
	Kind StatusKind
}

// ActiveRun ties follow-up interest to the run on screen.
type ActiveRun struct {
	RunID   string
	Contact string
}

// Form mirrors the editable inputs of the run form.
type Form struct {
	Account   string
	Realm     string
	Character string
	Contact   string
	Intent    string
}

// Session is the controller-owned state that is not directly visible.
type Session struct {
	Route     route.State
	Active    *ActiveRun
	LookupKey string
	Run       RunPhase
	Load      LoadPhase
	Interest  bool
}

// Option is one entry of the character selection. The placeholder has an
// empty Value and lets the backend pick the newest character.
type Option struct {
	Label string
	Value string
}

// View is the rendered state: exactly what a front end draws.
type View struct {
	Screen           route.View
	Location         string
	Status           Status
	Options          []Option
	Selected         int
	LookupLoading    bool
	SelectDisabled   bool
	RunDisabled      bool
	InterestDisabled bool
	Panels           *render.Panels
	ResultsMessage   string
}

type Model struct {
	svc      Service
	opts     Options
	ctx      context.Context
	log      *slog.Logger
	history  *route.History
	lookups  *latest.Guard
	debounce *latest.Guard

	form    Form
	session Session
	view    View
}

func New(svc Service, opts Options) Model {
	opts = opts.withDefaults()
	history := route.NewHistory(opts.Location)
	return Model{
		svc:      svc,
		opts:     opts,
		ctx:      opts.Context,
		log:      opts.Logger,
		history:  history,
		lookups:  &latest.Guard{},
		debounce: &latest.Guard{},
		form:     Form{Realm: opts.Realm},
		session: Session{
			Route: history.State(),
			Run:   RunIdle,
			Load:  LoadIdle,
		},
		view: View{
			Screen:   route.ViewHome,
			Location: history.Fragment(),
			Options:  placeholderOptions(),
		},
	}
}

// Init performs the initial navigation: the starting fragment is handled
// exactly like any later one.
func (m Model) Init() tea.Cmd {
	return fragmentChanged
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case AccountChangedMsg:
		return m.accountChanged(msg.Value)
	case AccountBlurMsg:
		return m.requestLookup(true)
	case RealmChangedMsg:
		return m.realmChanged(msg.Realm)
	case RefreshCharactersMsg:
		return m.requestLookup(true)
	case lookupDebounceMsg:
		return m.debounceFired(msg)
	case lookupDoneMsg:
		return m.lookupDone(msg)
	case FieldChangedMsg:
		return m.fieldChanged(msg), nil
	case SelectCharacterMsg:
		return m.selectCharacter(msg.Index), nil

	case NavigateMsg:
		return m.navigate(msg.Fragment)
	case BackMsg:
		return m.back()
	case ForwardMsg:
		return m.forward()
	case NewRunMsg:
		return m.newRun()
	case FragmentChangedMsg:
		return m.fragmentChanged()

	case SubmitRunMsg:
		return m.submitRun()
	case runCreatedMsg:
		return m.runCreated(msg)
	case runLoadedMsg:
		return m.runLoaded(msg)
	case SubmitInterestMsg:
		return m.submitInterest(msg)
	case interestDoneMsg:
		return m.interestDone(msg)
	}
	return m, nil
}

func (m Model) View() View {
	v := m.view
	v.Options = append([]Option(nil), m.view.Options...)
	return v
}

func (m Model) Session() Session {
	s := m.session
	if s.Active != nil {
		active := *s.Active
		s.Active = &active
	}
	return s
}

func (m Model) Form() Form {
	return m.form
}

func (m Model) Location() string {
	return m.history.Fragment()
}

// LookupStats reports issued and discarded lookup tokens.
func (m Model) LookupStats() (issued, discarded uint64) {
	return m.lookups.Issued(), m.lookups.Discarded()
}

func (m Model) fieldChanged(msg FieldChangedMsg) Model {
	switch msg.Field {
	case FieldCharacter:
		m.form.Character = msg.Value
	case FieldContact:
		m.form.Contact = msg.Value
	case FieldIntent:
		m.form.Intent = msg.Value
	}
	return m
}

func (m Model) setStatus(kind StatusKind, text string) Model {
	m.view.Status = Status{Text: text, Kind: kind}
	return m
}

func fragmentChanged() tea.Msg {
	return FragmentChangedMsg{}
}
