package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mastershashi/llm-engineering-usecases/internal/graph"
	"github.com/mastershashi/llm-engineering-usecases/internal/plan"
	"github.com/mastershashi/llm-engineering-usecases/internal/trust"
)

// Styles contains lipgloss styles for the TUI
type Styles struct {
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Status      lipgloss.Style
	Error       lipgloss.Style
	Success     lipgloss.Style
	Warning     lipgloss.Style
	Muted       lipgloss.Style
	Border      lipgloss.Style
	Highlighted lipgloss.Style
	Help        lipgloss.Style
	Key         lipgloss.Style
	KeyDesc     lipgloss.Style

	// Node cards in the projection grid.
	Card       lipgloss.Style
	CardActive lipgloss.Style
	Ghost      lipgloss.Style
}

// DefaultStyles returns the default lipgloss styles
func DefaultStyles() Styles {
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("241")).
		Padding(0, 1).
		Width(26)

	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")). // Purple
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray
		Status: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")), // Cyan
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")), // Red
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")), // Green
		Warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226")), // Yellow
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")). // Purple
			Padding(0, 1),
		Highlighted: lipgloss.NewStyle().
			Background(lipgloss.Color("63")).  // Purple
			Foreground(lipgloss.Color("230")). // Light yellow
			Bold(true).
			Padding(0, 1),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")). // Gray
			MarginTop(1),
		Key: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")), // Purple
		KeyDesc: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray

		Card: card,
		CardActive: card.
			BorderForeground(lipgloss.Color("63")).
			BorderStyle(lipgloss.ThickBorder()),
		Ghost: card.
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("238")).
			Foreground(lipgloss.Color("241")).
			Faint(true),
	}
}

// NodeCard picks the card style for a projected node.
func (s Styles) NodeCard(p graph.Placement, selected bool) lipgloss.Style {
	style := s.Card
	switch {
	case p.Visual.Ghosted:
		style = s.Ghost
	case p.Visual.Warning:
		style = style.BorderForeground(lipgloss.Color("226"))
	case p.Visual.Animated:
		style = style.BorderForeground(lipgloss.Color("86"))
	case p.Node.Status == plan.NodeCompleted:
		style = style.BorderForeground(lipgloss.Color("46"))
	}
	if selected {
		style = style.BorderStyle(lipgloss.ThickBorder()).BorderForeground(lipgloss.Color("63"))
	}
	return style
}

// StatusText colors a node status.
func (s Styles) StatusText(st plan.NodeStatus) string {
	switch st {
	case plan.NodeCompleted, plan.NodeApproved:
		return s.Success.Render(string(st))
	case plan.NodeRunning:
		return s.Status.Render(string(st))
	case plan.NodeAwaitingApproval:
		return s.Warning.Render(string(st))
	case plan.NodeFailed:
		return s.Error.Render(string(st))
	default:
		return s.Muted.Render(string(st))
	}
}

// Band colors a risk band.
func (s Styles) Band(b trust.Band) lipgloss.Style {
	switch b {
	case trust.BandLow:
		return s.Success
	case trust.BandModerate:
		return s.Warning
	default:
		return s.Error
	}
}

// Heat colors a context heat band.
func (s Styles) Heat(b plan.HeatBand) lipgloss.Style {
	switch b {
	case plan.HeatHealthy:
		return s.Success
	case plan.HeatWarning:
		return s.Warning
	default:
		return s.Error
	}
}
