package transcript

import "github.com/charmbracelet/lipgloss"

type styles struct {
	user       lipgloss.Style
	assistant  lipgloss.Style
	timestamp  lipgloss.Style
	body       lipgloss.Style
	streaming  lipgloss.Style
	warning    lipgloss.Style
	section    lipgloss.Style
	empty      lipgloss.Style
	jobTitle   lipgloss.Style
	jobCompany lipgloss.Style
	jobMeta    lipgloss.Style
	jobFit     lipgloss.Style
	link       lipgloss.Style
	sources    lipgloss.Style
}

func newStyles() styles {
	return styles{
		user:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		assistant:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("141")),
		timestamp:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		body:       lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		streaming:  lipgloss.NewStyle().Faint(true).Italic(true),
		warning:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:    lipgloss.NewStyle().MarginTop(1),
		empty:      lipgloss.NewStyle().Faint(true),
		jobTitle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("159")),
		jobCompany: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		jobMeta:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		jobFit:     lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("252")),
		link:       lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("75")),
		sources:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}
}
