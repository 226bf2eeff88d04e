package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/buckleypaul/luatool/internal/device"
)

// Panel renders a rounded-border box with title embedded in the top border.
// width is the total outer width.
func Panel(title, content string, width int) string {
	colorStyle := lipgloss.NewStyle().Foreground(Subtle)

	// ╭─ TITLE ─...─╮  total = width
	dashCount := width - lipgloss.Width(title) - 5
	if dashCount < 0 {
		dashCount = 0
	}
	topBorder := colorStyle.Render("╭─ ") + BoldStyle.Render(title) + colorStyle.Render(" "+strings.Repeat("─", dashCount)+"╮")

	innerWidth := width - 4
	if innerWidth < 0 {
		innerWidth = 0
	}
	body := lipgloss.NewStyle().
		Width(innerWidth).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderLeft(true).
		BorderRight(true).
		BorderBottom(true).
		BorderTop(false).
		BorderForeground(Subtle).
		PaddingLeft(1).
		PaddingRight(1).
		Render(content)

	return topBorder + "\n" + body
}

// Badge renders a small colored badge.
func Badge(text string, color lipgloss.Color) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("230")).
		Background(color).
		Padding(0, 1).
		Render(text)
}

// SuccessBadge renders a green badge.
func SuccessBadge(text string) string {
	return Badge(text, Success)
}

// ErrorBadge renders a red badge.
func ErrorBadge(text string) string {
	return Badge(text, Error)
}

// CatalogLines formats a device catalog one file per line, sorted by name.
func CatalogLines(c device.Catalog) []string {
	lines := make([]string, 0, len(c))
	for _, name := range c.Names() {
		lines = append(lines, fmt.Sprintf("%s\t(size=%d)", name, c[name].Size))
	}
	return lines
}

// CatalogPanel renders the catalog in a Panel with a total line.
func CatalogPanel(c device.Catalog, width int) string {
	var total uint64
	for _, f := range c {
		total += uint64(f.Size)
	}
	content := strings.Join(CatalogLines(c), "\n")
	if len(c) == 0 {
		content = DimStyle.Render("no files")
	}
	title := fmt.Sprintf("%d files, %d bytes", len(c), total)
	return Panel(title, content, width)
}

// Table renders rows under headers with a subtle normal border.
func Table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Subtle)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return BoldStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}
