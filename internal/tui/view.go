package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/g960059/exile-onboard/internal/onboard"
	"github.com/g960059/exile-onboard/internal/render"
	"github.com/g960059/exile-onboard/internal/route"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#50E3C2"))
	locationStyle = lipgloss.NewStyle().Faint(true)
	focusedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F6AE2D")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8CA1AE"))
	panelStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2D6A80")).
			Padding(0, 1)
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	v := m.ctrl.View()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Exile Onboarding"))
	b.WriteString("  ")
	b.WriteString(locationStyle.Render(m.ctrl.Location()))
	b.WriteString("\n")

	status := render.Status(v.Status.Text, v.Status.Kind == onboard.StatusError)
	if m.busy() {
		status = m.spinner.View() + " " + status
	}
	b.WriteString(status)
	b.WriteString("\n\n")

	if v.Screen == route.ViewResults {
		b.WriteString(m.resultsView(v))
	} else {
		b.WriteString(m.homeView(v))
	}
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(m.notice))
	}
	return b.String()
}

func (m Model) homeView(v onboard.View) string {
	var b strings.Builder
	b.WriteString(m.inputs[inAccount].View())
	b.WriteString("\n")

	realm := "Realm       < " + m.ctrl.Form().Realm + " >"
	if m.focus == focusRealm {
		realm = focusedStyle.Render(realm)
	}
	b.WriteString(realm)
	b.WriteString("\n\n")

	header := "Characters"
	if v.LookupLoading {
		header += " " + m.spinner.View()
	}
	if m.focus == focusCharacters {
		header = focusedStyle.Render(header)
	}
	b.WriteString(header)
	b.WriteString("\n")
	for i, opt := range v.Options {
		marker := "  "
		if i == v.Selected {
			marker = "> "
		}
		line := marker + render.Clean(opt.Label)
		if v.SelectDisabled {
			line = mutedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, in := range []input{inCharacter, inContact, inIntent} {
		b.WriteString(m.inputs[in].View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	button := "[ Run preview ]"
	if v.RunDisabled {
		button = mutedStyle.Render("[ Running... ]")
	}
	b.WriteString(button)
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("tab focus • enter run • ←/→ realm • ↑/↓ character • ctrl+r refresh • alt+←/→ history • ctrl+c quit"))
	return b.String()
}

func (m Model) resultsView(v onboard.View) string {
	var b strings.Builder
	b.WriteString(panelStyle.Render(m.results.View()))
	b.WriteString("\n\n")
	b.WriteString(titleStyle.Render("Follow-up"))
	b.WriteString("\n")
	for _, in := range []input{inRating, inFollowContact, inFollowIntent, inNotes} {
		b.WriteString(m.inputs[in].View())
		b.WriteString("\n")
	}
	button := "[ Send interest ]"
	if v.InterestDisabled {
		button = mutedStyle.Render("[ Sending... ]")
	}
	b.WriteString(button)
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("tab focus • enter send • ctrl+n new run • ctrl+e export • pgup/pgdn scroll • alt+←/→ history • ctrl+c quit"))
	return b.String()
}
