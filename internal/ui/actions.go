package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/pandals/internal/imagecache"
	"github.com/five82/pandals/internal/state"
)

// actionMsg reports the outcome of a user-triggered backend call.
type actionMsg struct {
	label string
	err   error
}

// imagesMsg arrives once the eager part of an image prefetch is done.
type imagesMsg struct {
	pandalID string
	evicted  int
}

// handleListKey processes keyboard input while the list pane has focus.
func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	page := max(m.contentHeight()-2, 1)

	switch {
	case key.Matches(msg, m.keys.Up):
		m.selectRow(max(m.selectedRow-1, 0))
	case key.Matches(msg, m.keys.Down):
		m.selectRow(m.selectedRow + 1)
	case key.Matches(msg, m.keys.Top):
		m.selectRow(0)
	case key.Matches(msg, m.keys.Bottom):
		m.selectRow(len(m.rows) - 1)
	case key.Matches(msg, m.keys.PageUp):
		m.selectRow(max(m.selectedRow-page, 0))
	case key.Matches(msg, m.keys.PageDown):
		m.selectRow(m.selectedRow + page)
	case key.Matches(msg, m.keys.HalfPageUp):
		m.selectRow(max(m.selectedRow-page/2, 0))
	case key.Matches(msg, m.keys.HalfPageDown):
		m.selectRow(m.selectedRow + page/2)

	case key.Matches(msg, m.keys.Confirm, m.keys.Tab):
		return m, m.openDetail()

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.SetValue(m.query.Search)
		m.search.CursorEnd()
		return m, m.search.Focus()

	case key.Matches(msg, m.keys.Escape):
		if m.query.Search != "" {
			m.query.Search = ""
			m.recompute()
		}

	case key.Matches(msg, m.keys.CycleSort):
		m.query.Sort = m.query.Sort.Next()
		m.savePrefs()
		m.recompute()

	case key.Matches(msg, m.keys.CycleFilter):
		m.filterIdx = (m.filterIdx + 1) % len(filterModes)
		m.recompute()

	case key.Matches(msg, m.keys.Refresh):
		pandals := m.session.Pandals
		return m, m.actionCmd("refresh", func(ctx context.Context) error {
			return state.IgnoreInFlight(pandals.Load(ctx, true))
		})

	case key.Matches(msg, m.keys.Locate):
		return m, m.locateCmd()

	default:
		return m.handlePandalAction(msg)
	}

	m.updateDetailViewport()
	return m, nil
}

// handleDetailKey processes keyboard input while the detail pane has focus.
func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape, m.keys.Tab):
		m.closeDetail()
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.detailViewport.ScrollUp(1)
	case key.Matches(msg, m.keys.Down):
		m.detailViewport.ScrollDown(1)
	case key.Matches(msg, m.keys.Top):
		m.detailViewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.detailViewport.GotoBottom()
	case key.Matches(msg, m.keys.PageUp):
		m.detailViewport.PageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.detailViewport.PageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		m.detailViewport.HalfPageUp()
	case key.Matches(msg, m.keys.HalfPageDown):
		m.detailViewport.HalfPageDown()
	case key.Matches(msg, m.keys.Locate):
		return m, m.locateCmd()
	default:
		return m.handlePandalAction(msg)
	}
	return m, nil
}

// handlePandalAction runs favorite, visited and rating keys against the
// selected pandal.
func (m Model) handlePandalAction(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	row, ok := m.selected()
	if !ok || m.session == nil {
		return m, nil
	}
	id := row.Item.ID
	session := m.session

	switch {
	case key.Matches(msg, m.keys.Favorite):
		return m, m.actionCmd("favorite", func(ctx context.Context) error {
			return session.ToggleFavorite(ctx, id)
		})
	case key.Matches(msg, m.keys.Visited):
		return m, m.actionCmd("visited", func(ctx context.Context) error {
			return session.ToggleVisited(ctx, id)
		})
	case key.Matches(msg, m.keys.Rate):
		rating, err := strconv.Atoi(msg.String())
		if err != nil {
			return m, nil
		}
		m.setNotice(fmt.Sprintf("Rating %s %d/5…", row.Item.DisplayName(), rating), false)
		return m, m.actionCmd("rating", func(ctx context.Context) error {
			return session.Rate(ctx, id, rating)
		})
	}
	return m, nil
}

// handleSearchKey edits the search box. The list filters as the user types.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.searching = false
		m.search.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Escape):
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.query.Search = ""
		m.recompute()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if v := m.search.Value(); v != m.query.Search {
		m.query.Search = v
		m.recompute()
	}
	return m, cmd
}

// openDetail focuses the detail pane, marks the pandal selected in the store
// and warms the image cache for it.
func (m *Model) openDetail() tea.Cmd {
	row, ok := m.selected()
	if !ok {
		return nil
	}
	m.focusedPane = paneDetail
	if m.session != nil {
		m.session.Pandals.Select(row.Item.ID)
	}
	m.updateDetailViewport()
	m.detailViewport.GotoTop()
	return prefetchCmd(m.ctx, m.images, row.Item.ID, row.Item.Images)
}

// closeDetail returns focus to the list and drops the per-pandal busy and
// error bits the detail pane was showing.
func (m *Model) closeDetail() {
	m.focusedPane = paneList
	if m.session == nil {
		return
	}
	m.session.Pandals.ClearSelection()
	if id := m.selectedID; id != "" {
		m.session.Favorites.Cleanup(id)
		m.session.Visited.Cleanup(id)
		m.session.Ratings.Cleanup(id)
	}
	m.updateDetailViewport()
}

// locateCmd asks for permission when it is missing and otherwise fetches a
// fresh position.
func (m Model) locateCmd() tea.Cmd {
	if m.tracker == nil {
		return nil
	}
	tracker := m.tracker
	return m.actionCmd("location", func(ctx context.Context) error {
		if !tracker.Granted() {
			return tracker.RequestPermission(ctx)
		}
		return tracker.Refresh(ctx)
	})
}

func (m Model) actionCmd(label string, fn func(ctx context.Context) error) tea.Cmd {
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, ActionTimeout)
		defer cancel()
		return actionMsg{label: label, err: fn(ctx)}
	}
}

// handleAction turns an action outcome into the footer notice. Toggle
// failures also raise an alert through the store notifier.
func (m *Model) handleAction(msg actionMsg) {
	if msg.err == nil {
		switch msg.label {
		case "rating":
			m.setNotice("Rating saved", false)
		case "refresh":
			m.setNotice("Pandals refreshed", false)
		default:
			m.setNotice("", false)
		}
		return
	}

	m.log.Debug("action failed", zap.String("action", msg.label), zap.Error(msg.err))
	switch {
	case errors.Is(msg.err, state.ErrNoUser):
		m.setNotice("Sign in to save "+msg.label+" changes", true)
	case msg.label == "rating":
		m.setNotice("Rating not saved: "+msg.err.Error(), true)
	default:
		m.setNotice(msg.label+": "+msg.err.Error(), true)
	}
}

func prefetchCmd(ctx context.Context, images *imagecache.Cache, pandalID string, urls []string) tea.Cmd {
	if images == nil || len(urls) == 0 {
		return nil
	}
	return func() tea.Msg {
		images.PrefetchBatch(ctx, urls)
		return imagesMsg{pandalID: pandalID, evicted: images.Cleanup()}
	}
}
