package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/five82/pandals/internal/location"
)

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	if m.currentView == ViewLogs {
		b.WriteString(m.renderLogs())
	} else {
		b.WriteString(m.renderBrowse())
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// contentHeight is the height left for panes below the two header lines and
// above the footer.
func (m Model) contentHeight() int {
	return max(m.height-3, 3)
}

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth
	s := m.snapshot

	parts := []string{bg.Render("pandals", styles.Logo)}

	switch {
	case s.UserID == "":
		parts = append(parts, bg.Render("● guest", styles.MutedText))
	case m.identity != "" && !compact:
		parts = append(parts, bg.Render("● "+m.identity, styles.SuccessText))
	default:
		parts = append(parts, bg.Render("● signed in", styles.SuccessText))
	}

	total := len(s.Pandals.Pandals)
	count := fmt.Sprintf("%d", total)
	if len(m.rows) != total {
		count = fmt.Sprintf("%d/%d", len(m.rows), total)
	}
	parts = append(parts, bg.Render("Pandals:", styles.MutedText)+bg.Space()+bg.Render(count, styles.Text))

	if !compact {
		parts = append(parts,
			bg.Render("Fav:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", len(s.Favorites.IDs)), styles.HeartText)+
				bg.Spaces(2)+
				bg.Render("Visited:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", len(s.Visited.IDs)), styles.Text))
	}

	parts = append(parts, m.renderLocationStatus(styles, bg))

	switch {
	case s.Pandals.Loading:
		parts = append(parts, bg.Render("Loading…", styles.WarningText.Bold(true)))
	case !s.Pandals.FetchedAt.IsZero():
		parts = append(parts, bg.Render("fetched "+humanizeDuration(time.Since(s.Pandals.FetchedAt))+" ago", styles.MutedText))
	}

	if s.Pandals.Error != "" {
		limit := 60
		if compact {
			limit = 30
		}
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText)+bg.Space()+
				bg.Render(truncate(s.Pandals.Error, limit), styles.DangerText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

func (m Model) renderLocationStatus(styles Styles, bg BgStyle) string {
	loc := m.snapshot.Location
	label := "no location"
	switch {
	case loc.Status == location.StatusFetching || loc.Status == location.StatusRequestingPermission:
		label = "locating…"
	case loc.Coordinate != nil:
		label = fmt.Sprintf("%.4f,%.4f", loc.Coordinate.Latitude, loc.Coordinate.Longitude)
	case loc.Error != "":
		label = loc.Error
	}
	return bg.Render("⌖", styles.StatusStyle(loc.Status.String())) + bg.Space() + bg.Render(label, styles.MutedText)
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch {
	case m.currentView == ViewLogs:
		commands = []cmd{
			{"j/k", "Scroll"},
			{"g/G", "Top/Bottom"},
			{"l", "List"},
			{"?", "More"},
		}
	case m.focusedPane == paneDetail:
		commands = []cmd{
			{"F", "Favorite"},
			{"v", "Visited"},
			{"1-5", "Rate"},
			{"j/k", "Scroll"},
			{"esc", "Back"},
			{"?", "More"},
		}
	default:
		commands = []cmd{
			{"/", "Search"},
			{"s", titleCase(m.query.Sort.String())},
			{"f", filterModes[m.filterIdx%len(filterModes)].label},
			{"F", "Favorite"},
			{"v", "Visited"},
			{"1-5", "Rate"},
			{"enter", "Details"},
			{"r", "Refresh"},
			{"L", "Locate"},
			{"l", "Logs"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	if m.currentView == ViewList && m.query.Search != "" && !m.searching {
		segments = append(segments, bg.Render("/"+truncate(m.query.Search, 18), styles.AccentText))
	}

	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

// renderFooter shows the search box while typing, otherwise the last notice.
func (m Model) renderFooter() string {
	styles := m.theme.Styles().WithBackground(m.theme.Background)
	bg := NewBgStyle(m.theme.Background)

	var content string
	switch {
	case m.searching:
		content = m.search.View()
	case m.notice != "" && m.noticeErr:
		content = bg.Render(truncate(m.notice, m.width-2), styles.DangerText)
	case m.notice != "":
		content = bg.Render(truncate(m.notice, m.width-2), styles.MutedText)
	case !m.lastUpdated.IsZero():
		content = bg.Render("updated "+m.lastUpdated.Format("15:04:05"), styles.FaintText)
	}
	return bg.FillLine(bg.Space()+content, m.width)
}
