package ui

import (
	"fmt"
	"strings"

	"github.com/five82/pandals/internal/geo"
	"github.com/five82/pandals/internal/state"
)

const detailLabelWidth = 12

func (m Model) renderDetail(width, height int) string {
	focused := m.focusedPane == paneDetail
	title := "Details"
	if row, ok := m.selected(); ok {
		title = row.Item.DisplayName()
	}
	return m.renderBox(title, m.detailViewport.View(), width, height, focused)
}

// updateDetailViewport resizes the detail viewport and re-renders its
// content for the selected pandal.
func (m *Model) updateDetailViewport() {
	if !m.ready {
		return
	}
	m.detailViewport.Width = max(m.detailPaneWidth()-2, 0)
	m.detailViewport.Height = max(m.contentHeight()-2, 0)
	m.detailViewport.SetContent(m.renderDetailContent(m.detailViewport.Width))
}

func (m Model) renderDetailContent(width int) string {
	bgColor := ternary(m.focusedPane == paneDetail, m.theme.FocusBg, m.theme.SurfaceAlt)
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()

	row, ok := m.selected()
	if !ok {
		return bg.FillLine(bg.Render("Select a pandal to see details", styles.MutedText), width)
	}
	p := row.Item
	s := m.snapshot

	var lines []string
	add := func(line string) {
		lines = append(lines, bg.FillLine(line, width))
	}
	field := func(label, value string, valueStyle func(string) string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		add(bg.Render(padRight(label, detailLabelWidth), styles.MutedText) + valueStyle(truncate(value, width-detailLabelWidth)))
	}
	text := func(v string) string { return bg.Render(v, styles.Text) }
	muted := func(v string) string { return bg.Render(v, styles.MutedText) }
	danger := func(v string) string { return bg.Render(v, styles.DangerText) }
	heart := func(v string) string { return bg.Render(v, styles.HeartText) }
	section := func(title string) {
		add("")
		add(bg.Render(title, styles.AccentText.Bold(true)))
	}

	add(bg.Render(truncate(p.DisplayName(), width), styles.Text.Bold(true)))
	field("Address", p.Address, text)
	field("Theme", p.Theme, text)
	field("Artist", p.ArtistName, text)
	field("Distance", ternary(row.Known, row.Formatted, geo.UnknownDistance), text)
	field("Rating", formatAggregate(p.Rating, p.NumberOfRatings), func(v string) string { return bg.Render(v, styles.StarText) })

	section("You")
	if s.UserID == "" {
		add(bg.Render("Sign in to keep favorites, visits and ratings", styles.MutedText))
	} else {
		m.renderUserRating(add, p.ID, styles, bg)
		field("Favorite", membershipLabel(s.Favorites, p.ID, "♥ Favorite", "Not a favorite"), heart)
		field("Visited", membershipLabel(s.Visited, p.ID, "✓ Visited", "Not visited"), text)
		field("", s.Favorites.Errors[p.ID], danger)
		field("", s.Visited.Errors[p.ID], danger)
	}

	if len(p.Images) > 0 {
		section("Images")
		add(m.renderImageStatus(p.Images, styles, bg))
	}

	if len(p.SocialLinks) > 0 {
		section("Social")
		for _, link := range p.SocialLinks {
			add(bg.Render(truncate(link, width), styles.InfoText))
		}
	}

	if nearby := geo.Nearest(p, s.Pandals.Pandals, NearestLimit); len(nearby) > 0 {
		section("Nearby")
		for _, n := range nearby {
			add(bg.Render(padLeft(n.Formatted, distanceWidth), styles.MutedText) + bg.Spaces(2) +
				bg.Render(truncate(n.Item.DisplayName(), width-distanceWidth-2), styles.Text))
		}
	} else if _, located := p.Coordinate(); !located {
		section("Nearby")
		add(muted("This pandal has no map position"))
	}

	return strings.Join(lines, "\n")
}

// renderUserRating shows the signed-in user's own rating with its sync state.
func (m Model) renderUserRating(add func(string), pandalID string, styles Styles, bg BgStyle) {
	r := m.snapshot.Ratings
	value := r.Ratings[pandalID]
	status := r.Status[pandalID]

	line := bg.Render(padRight("Your rating", detailLabelWidth), styles.MutedText) +
		bg.Render(stars(value), styles.StarText)
	if value == 0 {
		line += bg.Space() + bg.Render("press 1-5", styles.FaintText)
	} else {
		line += bg.Space() + bg.Render(status.String(), styles.StatusStyle(status.String()))
	}
	add(line)
	if status == state.RatingFailed {
		if msg := r.Errors[pandalID]; msg != "" {
			add(bg.Spaces(detailLabelWidth) + bg.Render(msg, styles.DangerText))
		}
	}
}

func (m Model) renderImageStatus(urls []string, styles Styles, bg BgStyle) string {
	if m.images == nil {
		return bg.Render(fmt.Sprintf("%d images", len(urls)), styles.MutedText)
	}
	var loaded, failed int
	for _, u := range urls {
		e, ok := m.images.Get(u)
		switch {
		case !ok:
		case e.Error:
			failed++
		case e.Loaded:
			loaded++
		}
	}
	out := bg.Render(fmt.Sprintf("%d images", len(urls)), styles.Text) + bg.Spaces(2) +
		bg.Render(fmt.Sprintf("%d cached", loaded), styles.SuccessText)
	if failed > 0 {
		out += bg.Spaces(2) + bg.Render(fmt.Sprintf("%d failed", failed), styles.DangerText)
	}
	return out
}

// membershipLabel describes one membership bit, marking in-flight toggles.
func membershipLabel(snap state.MembershipSnapshot, id, yes, no string) string {
	label := ternary(snap.Has(id), yes, no)
	if _, busy := snap.Busy[id]; busy {
		label += " (saving…)"
	}
	return label
}
