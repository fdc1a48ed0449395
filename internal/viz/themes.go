package viz

import "github.com/charmbracelet/lipgloss"

// Theme is the color scheme of the terminal views. Phase colors are used for
// the a, b and c waveforms.
type Theme struct {
	Name    string
	Title   lipgloss.Color
	Border  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Phases  [3]lipgloss.Color
	Good    lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

var (
	ThemeDark = Theme{
		Name:    "dark",
		Title:   lipgloss.Color("#00ffff"),
		Border:  lipgloss.Color("#444466"),
		Text:    lipgloss.Color("#e0e0e0"),
		Muted:   lipgloss.Color("#666688"),
		Phases:  [3]lipgloss.Color{"#ff5f5f", "#ffd75f", "#5fafff"},
		Good:    lipgloss.Color("#00ff88"),
		Warning: lipgloss.Color("#ffcc00"),
		Error:   lipgloss.Color("#ff4444"),
	}

	// ThemeIEC follows the brown, black and grey phase conductor colors.
	ThemeIEC = Theme{
		Name:    "iec",
		Title:   lipgloss.Color("#ffffff"),
		Border:  lipgloss.Color("#888888"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#888888"),
		Phases:  [3]lipgloss.Color{"#a0522d", "#d0d0d0", "#808080"},
		Good:    lipgloss.Color("#00ff00"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff0000"),
	}

	ThemeRetro = Theme{
		Name:    "retro",
		Title:   lipgloss.Color("#00ff00"),
		Border:  lipgloss.Color("#005500"),
		Text:    lipgloss.Color("#00ff00"),
		Muted:   lipgloss.Color("#005500"),
		Phases:  [3]lipgloss.Color{"#00ff00", "#88ff88", "#00aa00"},
		Good:    lipgloss.Color("#88ff88"),
		Warning: lipgloss.Color("#ffff00"),
		Error:   lipgloss.Color("#ff0000"),
	}

	CurrentTheme = ThemeDark

	Themes = []Theme{ThemeDark, ThemeIEC, ThemeRetro}
)

// GetTheme returns a theme by name, falling back to the dark theme.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeDark
}

func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
	applyTheme(CurrentTheme)
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

func nextTheme(cur Theme) Theme {
	for i, t := range Themes {
		if t.Name == cur.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}
