package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/pandals/internal/backend"
	"github.com/five82/pandals/internal/geo"
)

const (
	markerWidth   = 3 // favorite, visited, space
	ratingWidth   = 6
	distanceWidth = 8
)

// renderBrowse lays out the list and detail panes. Narrow terminals show one
// pane at a time.
func (m Model) renderBrowse() string {
	height := m.contentHeight()
	if m.width < LayoutCompactWidth {
		if m.focusedPane == paneDetail {
			return m.renderDetail(m.width, height)
		}
		return m.renderList(m.width, height)
	}
	listWidth := m.width * LayoutListShare / 100
	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderList(listWidth, height),
		m.renderDetail(m.width-listWidth, height),
	)
}

// detailPaneWidth returns the outer width of the detail pane for the current
// layout.
func (m Model) detailPaneWidth() int {
	if m.width < LayoutCompactWidth {
		return m.width
	}
	return m.width - m.width*LayoutListShare/100
}

func (m Model) renderList(width, height int) string {
	focused := m.focusedPane == paneList
	title := fmt.Sprintf("Pandals · %s", titleCase(m.query.Sort.String()))
	if mode := filterModes[m.filterIdx%len(filterModes)]; mode.label != "All" {
		title += " · " + mode.label
	}
	return m.renderBox(title, m.renderListContent(width-2, height-2, focused), width, height, focused)
}

func (m Model) renderListContent(width, height int, focused bool) string {
	bgColor := ternary(focused, m.theme.FocusBg, m.theme.SurfaceAlt)
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()

	if len(m.rows) == 0 {
		return bg.FillLine(bg.Render(m.emptyListMessage(), styles.MutedText), width)
	}

	start := 0
	if m.selectedRow >= height {
		start = m.selectedRow - height + 1
	}
	end := min(start+height, len(m.rows))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderListRow(m.rows[i], i == m.selectedRow, width, styles, bg))
	}
	return strings.Join(lines, "\n")
}

func (m Model) emptyListMessage() string {
	p := m.snapshot.Pandals
	switch {
	case p.Loading && len(p.Pandals) == 0:
		return "Loading pandals…"
	case p.Error != "" && len(p.Pandals) == 0:
		return "Could not load pandals: " + p.Error
	case m.query.Filtered():
		return "No pandals match"
	default:
		return "No pandals yet. Press r to refresh."
	}
}

func (m Model) renderListRow(r geo.Ranked[backend.Pandal], selected bool, width int, styles Styles, bg BgStyle) string {
	p := r.Item
	fav := m.snapshot.Favorites.Has(p.ID)
	visited := m.snapshot.Visited.Has(p.ID)

	nameWidth := width - markerWidth - ratingWidth
	showDistance := width >= LayoutDistanceWidth
	if showDistance {
		nameWidth -= distanceWidth
	}

	heart := ternary(fav, "♥", " ")
	check := ternary(visited, "✓", " ")
	name := padRight(truncate(p.DisplayName(), nameWidth-1), nameWidth)
	rating := padLeft(ternary(p.Rating != nil && p.NumberOfRatings > 0, fmt.Sprintf("★%.1f", p.RatingValue()), "–"), ratingWidth)
	distance := ""
	if showDistance {
		distance = padLeft(ternary(r.Known, r.Formatted, ""), distanceWidth)
	}

	if selected {
		plain := heart + check + " " + name + rating + distance
		return styles.Selected.Width(width).Render(plain)
	}

	line := bg.Render(heart, styles.HeartText) +
		bg.Render(check, styles.SuccessText) +
		bg.Space() +
		bg.Render(name, styles.Text) +
		bg.Render(rating, styles.StarText) +
		bg.Render(distance, styles.MutedText)
	return bg.FillLine(line, width)
}

// renderBox draws a rounded border with the title set into the top edge.
func (m Model) renderBox(title, content string, width, height int, focused bool) string {
	borderColor := ternary(focused, m.theme.BorderFocus, m.theme.Border)
	bgColor := ternary(focused, m.theme.FocusBg, m.theme.SurfaceAlt)
	border := lipgloss.RoundedBorder()
	edge := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColor))

	inner := max(width-2, 0)
	label := " " + truncate(title, max(inner-4, 1)) + " "
	fill := max(inner-1-lipgloss.Width(label), 0)
	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ternary(focused, m.theme.Accent, m.theme.Text))).
		Bold(true)
	top := edge.Render(border.TopLeft+border.Top) +
		titleStyle.Render(label) +
		edge.Render(strings.Repeat(border.Top, fill)+border.TopRight)

	body := lipgloss.NewStyle().
		Border(border, false, true, true, true).
		BorderForeground(lipgloss.Color(borderColor)).
		Background(lipgloss.Color(bgColor)).
		Width(inner).
		Height(max(height-2, 0)).
		MaxHeight(max(height-1, 0)).
		Render(content)
	return top + "\n" + body
}
