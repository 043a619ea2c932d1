// Package ui renders parking views for the terminal using lipgloss.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/KyooRuss/Parking-Management/pkg/models"
)

var (
	primaryColor   = lipgloss.Color("#00D4AA")
	secondaryColor = lipgloss.Color("#888888")
	warningColor   = lipgloss.Color("#FFAA00")
	errorColor     = lipgloss.Color("#FF5555")
	successColor   = lipgloss.Color("#00FF00")
	reservedColor  = lipgloss.Color("#5599FF")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	HelpStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Italic(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	cellStyle = lipgloss.NewStyle().
			Width(14).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder())
)

// StateStyle colors a slot cell by its display state.
func StateStyle(state models.DisplayState) lipgloss.Style {
	switch state {
	case models.DisplayOccupied:
		return cellStyle.BorderForeground(errorColor)
	case models.DisplayMaintenance:
		return cellStyle.BorderForeground(warningColor)
	case models.DisplayReserved:
		return cellStyle.BorderForeground(reservedColor)
	}
	return cellStyle.BorderForeground(successColor)
}

// RenderOccupancy shows "Category  occupied / total" per line with a fill bar.
func RenderOccupancy(occ []models.Occupancy) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Occupancy"))
	b.WriteString("\n")
	for _, o := range occ {
		line := fmt.Sprintf("%-12s %d / %d  %s", o.Category, o.Occupied, o.Total, bar(o.Occupied, o.Total, 20))
		if o.Total > 0 && o.Occupied >= o.Total {
			line = ErrorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func bar(occupied, total, width int) string {
	if total <= 0 {
		return ""
	}
	filled := occupied * width / total
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// RenderGrid lays slot cells out in rows of perRow.
func RenderGrid(cells []models.SlotView, perRow int) string {
	if perRow <= 0 {
		perRow = 5
	}
	var rows []string
	for start := 0; start < len(cells); start += perRow {
		end := start + perRow
		if end > len(cells) {
			end = len(cells)
		}
		var rendered []string
		for _, cell := range cells[start:end] {
			rendered = append(rendered, StateStyle(cell.State).Render(cell.SlotID+"\n"+cell.Label))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// RenderTransition summarizes a park or leave outcome.
func RenderTransition(action string, resp *models.TransitionResponse) string {
	if resp.Committed {
		msg := fmt.Sprintf("✓ %s", action)
		if resp.Slot != nil {
			msg += " at " + resp.Slot.SlotID
		}
		return SuccessStyle.Render(msg)
	}
	return ErrorStyle.Render(fmt.Sprintf("✗ %s rejected: %s", action, resp.Message))
}
