package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Panel       lipgloss.Style
	TitleStyle  lipgloss.Style
	LabelStyle  lipgloss.Style
	ValueStyle  lipgloss.Style
	Subtle      lipgloss.Style
	GoodStyle   lipgloss.Style
	WarnStyle   lipgloss.Style
	ErrorStyle  lipgloss.Style
	phaseStyles [3]lipgloss.Style
)

func init() { applyTheme(CurrentTheme) }

func applyTheme(t Theme) {
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(t.Title)
	LabelStyle = lipgloss.NewStyle().Foreground(t.Muted).Width(16)
	ValueStyle = lipgloss.NewStyle().Foreground(t.Text)
	Subtle = lipgloss.NewStyle().Foreground(t.Muted)
	GoodStyle = lipgloss.NewStyle().Bold(true).Foreground(t.Good)
	WarnStyle = lipgloss.NewStyle().Bold(true).Foreground(t.Warning)
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(t.Error)
	for i := range phaseStyles {
		phaseStyles[i] = lipgloss.NewStyle().Foreground(t.Phases[i])
	}
}

// ProgressBar renders fraction in [0, 1] as a bar of the given width.
func ProgressBar(fraction float64, width int) string {
	filled := int(math.Round(fraction * float64(width)))
	filled = max(0, min(width, filled))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	if fraction >= 1 {
		return GoodStyle.Render(bar)
	}
	return ValueStyle.Render(bar)
}

// Gauge renders |x| against limit, turning to the warning color above 90 %.
func Gauge(x, limit float64, width int) string {
	if limit <= 0 {
		return strings.Repeat("─", width)
	}
	r := math.Abs(x) / limit
	filled := max(0, min(width, int(r*float64(width))))
	bar := "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
	if r > 0.9 {
		return WarnStyle.Render(bar)
	}
	return ValueStyle.Render(bar)
}

// Field renders a label/value line.
func Field(label, format string, args ...any) string {
	return LabelStyle.Render(label) + ValueStyle.Render(fmt.Sprintf(format, args...))
}

// MetricsTable renders metrics sorted by name.
func MetricsTable(metrics map[string]float64) string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(Field(name, "%.6g", metrics[name]) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Box renders content in a panel headed by title.
func Box(title, content string) string {
	return Panel.Render(TitleStyle.Render(title) + "\n" + content)
}
