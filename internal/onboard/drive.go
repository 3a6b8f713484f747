package onboard

import tea "github.com/charmbracelet/bubbletea"

// Drive feeds msgs through m and then runs every resulting command on the
// calling goroutine, one at a time in FIFO order, until no work is left. It is
// the headless counterpart of a tea.Program.
func Drive(m Model, msgs ...tea.Msg) Model {
	queue := append([]tea.Msg(nil), msgs...)
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]
		if msg == nil {
			continue
		}
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, cmd := range batch {
				if cmd != nil {
					queue = append(queue, cmd())
				}
			}
			continue
		}
		var cmd tea.Cmd
		m, cmd = m.Update(msg)
		if cmd != nil {
			queue = append(queue, cmd())
		}
	}
	return m
}

// Start runs the initial navigation headlessly.
func Start(m Model) Model {
	return Drive(m, m.Init()())
}
