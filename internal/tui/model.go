// Package tui is the interactive terminal front end. It owns the keyboard and
// the widgets, translating key presses into onboard controller messages and
// drawing whatever onboard.View reports.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/g960059/exile-onboard/internal/api"
	"github.com/g960059/exile-onboard/internal/onboard"
	"github.com/g960059/exile-onboard/internal/render"
	"github.com/g960059/exile-onboard/internal/route"
)

type input int

const (
	inAccount input = iota
	inCharacter
	inContact
	inIntent
	inRating
	inFollowContact
	inFollowIntent
	inNotes
	inputCount
)

type focus int

const (
	focusAccount focus = iota
	focusRealm
	focusCharacters
	focusCharacter
	focusContact
	focusIntent
	focusRating
	focusFollowContact
	focusFollowIntent
	focusNotes
)

var (
	homeFocus    = []focus{focusAccount, focusRealm, focusCharacters, focusCharacter, focusContact, focusIntent}
	resultsFocus = []focus{focusRating, focusFollowContact, focusFollowIntent, focusNotes}
)

var focusInput = map[focus]input{
	focusAccount:       inAccount,
	focusCharacter:     inCharacter,
	focusContact:       inContact,
	focusIntent:        inIntent,
	focusRating:        inRating,
	focusFollowContact: inFollowContact,
	focusFollowIntent:  inFollowIntent,
	focusNotes:         inNotes,
}

type Options struct {
	Controller onboard.Options
	// ExportDir receives HTML snapshots of the results view. Empty disables
	// the export key.
	ExportDir string
}

type exportDoneMsg struct {
	path string
	err  error
}

type Model struct {
	ctrl      onboard.Model
	inputs    []textinput.Model
	focus     focus
	screen    route.View
	results   viewport.Model
	spinner   spinner.Model
	spinning  bool
	exportDir string
	notice    string
	width     int
	height    int
	quitting  bool
}

func New(svc onboard.Service, opts Options) Model {
	inputs := make([]textinput.Model, inputCount)
	fields := []struct {
		prompt      string
		placeholder string
		limit       int
	}{
		inAccount:       {"Account    ", "account name", 64},
		inCharacter:     {"Character  ", "optional, overrides the list", 64},
		inContact:       {"Contact    ", "e-mail or in-game handle", 128},
		inIntent:        {"Intent     ", "sell, buy, ...", 128},
		inRating:        {"Rating     ", "1-5", 2},
		inFollowContact: {"Contact    ", "defaults to the run contact", 128},
		inFollowIntent:  {"Intent     ", "optional", 128},
		inNotes:         {"Notes      ", "optional", 500},
	}
	for i, f := range fields {
		ti := textinput.New()
		ti.Prompt = f.prompt
		ti.Placeholder = f.placeholder
		ti.CharLimit = f.limit
		ti.Cursor.SetMode(cursor.CursorStatic)
		inputs[i] = ti
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctrl:      onboard.New(svc, opts.Controller),
		inputs:    inputs,
		results:   viewport.New(80, 12),
		spinner:   sp,
		exportDir: opts.ExportDir,
	}
	m = m.setFocus(focusAccount)
	return m
}

func (m Model) Init() tea.Cmd {
	return m.ctrl.Init()
}

// Controller exposes the wrapped controller state.
func (m Model) Controller() onboard.Model {
	return m.ctrl
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.results.Width = max(msg.Width-2, 20)
		m.results.Height = max(msg.Height-14, 5)
		return m, nil
	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case exportDoneMsg:
		if msg.err != nil {
			m.notice = "Export failed: " + msg.err.Error()
		} else {
			m.notice = "Saved snapshot to " + msg.path
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m.send(msg)
}

// send forwards msg to the controller and reconciles widgets with the view it
// reports back.
func (m Model) send(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.ctrl, cmd = m.ctrl.Update(msg)
	return m.sync(cmd)
}

func (m Model) sync(cmd tea.Cmd) (Model, tea.Cmd) {
	v := m.ctrl.View()
	if v.Screen != m.screen {
		m.screen = v.Screen
		m.notice = ""
		m.results.GotoTop()
		if v.Screen == route.ViewResults {
			m = m.setFocus(focusRating)
		} else {
			m = m.setFocus(focusAccount)
		}
	}
	switch {
	case v.Panels != nil:
		m.results.SetContent(render.Text(*v.Panels))
	case v.ResultsMessage != "":
		m.results.SetContent(render.Clean(v.ResultsMessage))
	default:
		m.results.SetContent("")
	}
	if m.busy() && !m.spinning {
		m.spinning = true
		return m, tea.Batch(cmd, m.spinner.Tick)
	}
	return m, cmd
}

func (m Model) busy() bool {
	v := m.ctrl.View()
	s := m.ctrl.Session()
	return v.LookupLoading || s.Run == onboard.RunRunning || s.Load == onboard.LoadLoading || s.Interest
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "tab":
		return m.moveFocus(1)
	case "shift+tab":
		return m.moveFocus(-1)
	case "ctrl+n":
		return m.send(onboard.NewRunMsg{})
	case "alt+left", "ctrl+b":
		return m.send(onboard.BackMsg{})
	case "alt+right", "ctrl+f":
		return m.send(onboard.ForwardMsg{})
	case "ctrl+r":
		return m.send(onboard.RefreshCharactersMsg{})
	case "ctrl+e":
		return m.export()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	case "enter":
		if m.screen == route.ViewResults {
			return m.send(onboard.SubmitInterestMsg{
				Contact: m.inputs[inFollowContact].Value(),
				Rating:  m.inputs[inRating].Value(),
				Intent:  m.inputs[inFollowIntent].Value(),
				Notes:   m.inputs[inNotes].Value(),
			})
		}
		return m.send(onboard.SubmitRunMsg{})
	}

	switch m.focus {
	case focusRealm:
		switch msg.String() {
		case "left", "right", " ":
			step := 1
			if msg.String() == "left" {
				step = -1
			}
			return m.send(onboard.RealmChangedMsg{Realm: cycleRealm(m.ctrl.Form().Realm, step)})
		}
		return m, nil
	case focusCharacters:
		v := m.ctrl.View()
		switch msg.String() {
		case "up", "k":
			return m.send(onboard.SelectCharacterMsg{Index: v.Selected - 1})
		case "down", "j":
			return m.send(onboard.SelectCharacterMsg{Index: v.Selected + 1})
		}
		return m, nil
	}
	return m.typeInto(msg)
}

func (m Model) typeInto(msg tea.KeyMsg) (Model, tea.Cmd) {
	in, ok := focusInput[m.focus]
	if !ok {
		return m, nil
	}
	before := m.inputs[in].Value()
	var cmd tea.Cmd
	m.inputs[in], cmd = m.inputs[in].Update(msg)
	after := m.inputs[in].Value()
	if before == after {
		return m, cmd
	}

	var ctrlMsg tea.Msg
	switch in {
	case inAccount:
		ctrlMsg = onboard.AccountChangedMsg{Value: after}
	case inCharacter:
		ctrlMsg = onboard.FieldChangedMsg{Field: onboard.FieldCharacter, Value: after}
	case inContact:
		ctrlMsg = onboard.FieldChangedMsg{Field: onboard.FieldContact, Value: after}
	case inIntent:
		ctrlMsg = onboard.FieldChangedMsg{Field: onboard.FieldIntent, Value: after}
	default:
		return m, cmd
	}
	m, next := m.send(ctrlMsg)
	return m, tea.Batch(cmd, next)
}

func (m Model) moveFocus(step int) (Model, tea.Cmd) {
	order := homeFocus
	if m.screen == route.ViewResults {
		order = resultsFocus
	}
	idx := 0
	for i, f := range order {
		if f == m.focus {
			idx = i
			break
		}
	}
	next := order[(idx+step+len(order))%len(order)]
	leaving := m.focus
	m = m.setFocus(next)
	if leaving == focusAccount && next != focusAccount {
		return m.send(onboard.AccountBlurMsg{})
	}
	return m, nil
}

func (m Model) setFocus(f focus) Model {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.focus = f
	if in, ok := focusInput[f]; ok {
		m.inputs[in].Focus()
	}
	return m
}

func (m Model) export() (Model, tea.Cmd) {
	v := m.ctrl.View()
	if m.exportDir == "" || v.Panels == nil {
		m.notice = "Nothing to export."
		return m, nil
	}
	panels := *v.Panels
	dir := m.exportDir
	return m, func() tea.Msg {
		path, err := WriteSnapshot(dir, panels)
		return exportDoneMsg{path: path, err: err}
	}
}

// WriteSnapshot writes the HTML rendering of p into dir and returns the path.
func WriteSnapshot(dir string, p render.Panels) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	name := "run-" + sanitizeFileName(p.RunID) + ".html"
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	if err := render.HTML(f, p); err != nil {
		f.Close() //nolint:errcheck
		return "", fmt.Errorf("render snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close snapshot: %w", err)
	}
	return path, nil
}

func sanitizeFileName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
	if s == "" {
		return "unknown"
	}
	return s
}

func cycleRealm(current string, step int) string {
	idx := 0
	for i, r := range api.Realms {
		if r == current {
			idx = i
		}
	}
	n := len(api.Realms)
	return api.Realms[(idx+step+n)%n]
}

// Run starts the interactive program and blocks until it exits or ctx ends.
func Run(ctx context.Context, m Model, in io.Reader, out io.Writer) error {
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
