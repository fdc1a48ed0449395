package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/gritsim/internal/config"
)

const (
	stateMenu = iota
	stateConfig
)

// picker selects a preset scenario and lets a few run settings be adjusted
// before it is started.
type picker struct {
	state    int
	cursor   int
	presets  []string
	selected *config.Config
	field    int
	started  bool
}

var pickerFields = []string{"t_stop", "pwm", "on_v_dc", "integrator"}

var integratorNames = []string{"rk45", "rk4", "euler"}

func newPicker() picker {
	return picker{state: stateMenu, presets: config.ListPresets()}
}

func (m picker) Init() tea.Cmd { return nil }

func (m picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if key.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.state {
	case stateMenu:
		return m.menuKey(key)
	case stateConfig:
		return m.configKey(key)
	}
	return m, nil
}

func (m picker) menuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter":
		m.selected = config.GetPreset(m.presets[m.cursor])
		m.state, m.field = stateConfig, 0
	}
	return m, nil
}

func (m picker) configKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cfg := m.selected
	switch msg.String() {
	case "esc":
		m.state = stateMenu
	case "up", "k":
		if m.field > 0 {
			m.field--
		}
	case "down", "j":
		if m.field < len(pickerFields)-1 {
			m.field++
		}
	case "left", "h", "right", "l", " ":
		up := msg.String() != "left" && msg.String() != "h"
		switch pickerFields[m.field] {
		case "t_stop":
			if up {
				cfg.TStop *= 2
			} else {
				cfg.TStop /= 2
			}
		case "pwm":
			cfg.PWM = !cfg.PWM
		case "on_v_dc":
			if cfg.Plant == "dc_bus" {
				cfg.Control.OnVdc = !cfg.Control.OnVdc
			}
		case "integrator":
			cfg.Integrator = cycle(integratorNames, cfg.Integrator)
		}
	case "s", "enter":
		m.started = true
		return m, tea.Quit
	}
	return m, nil
}

func cycle(names []string, cur string) string {
	for i, n := range names {
		if n == cur {
			return names[(i+1)%len(names)]
		}
	}
	return names[0]
}

func (m picker) View() string {
	if m.state == stateConfig {
		return m.viewConfig()
	}
	return m.viewMenu()
}

func hint(k, what string) string {
	return TitleStyle.Render(k) + Subtle.Render(" "+what+"  ")
}

func (m picker) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n  " + TitleStyle.Render("GRITSIM") + "\n  " + Subtle.Render("grid converter co-simulation") + "\n\n")
	for i, name := range m.presets {
		desc := config.Presets[name].Description
		line := fmt.Sprintf("%-14s", name)
		if i == m.cursor {
			b.WriteString("  " + TitleStyle.Render("▸ "+line) + " " + ValueStyle.Render(desc) + "\n")
		} else {
			b.WriteString("    " + Subtle.Render(line+" "+desc) + "\n")
		}
	}
	b.WriteString("\n  " + hint("j/k", "navigate") + hint("enter", "select") + hint("q", "quit") + "\n")
	return b.String()
}

func (m picker) viewConfig() string {
	cfg := m.selected
	values := map[string]string{
		"t_stop":     fmt.Sprintf("%g s", cfg.TStop),
		"pwm":        fmt.Sprintf("%v", cfg.PWM),
		"on_v_dc":    fmt.Sprintf("%v", cfg.Control.OnVdc),
		"integrator": cfg.Integrator,
	}

	var b strings.Builder
	b.WriteString("\n  " + TitleStyle.Render(strings.ToUpper(cfg.Name)) + "\n  " + Subtle.Render(cfg.Description) + "\n\n")
	for i, f := range pickerFields {
		line := fmt.Sprintf("%-12s %s", f, values[f])
		if i == m.field {
			b.WriteString("  " + lipgloss.NewStyle().Bold(true).Foreground(CurrentTheme.Title).Render("▸ "+line) + "\n")
		} else {
			b.WriteString("    " + ValueStyle.Render(line) + "\n")
		}
	}
	b.WriteString("\n  " + hint("j/k", "select") + hint("h/l", "adjust") + hint("s", "start") + hint("esc", "back") + "\n")
	return b.String()
}

// PickScenario lets the user choose and adjust a preset. It returns nil if
// the user quit without starting.
func PickScenario() (*config.Config, error) {
	final, err := tea.NewProgram(newPicker(), tea.WithAltScreen()).Run()
	if err != nil {
		return nil, err
	}
	m := final.(picker)
	if !m.started {
		return nil, nil
	}
	return m.selected, nil
}
