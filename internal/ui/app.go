package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/pandals/internal/backend"
	"github.com/five82/pandals/internal/geo"
	"github.com/five82/pandals/internal/imagecache"
	"github.com/five82/pandals/internal/location"
	"github.com/five82/pandals/internal/prefs"
	"github.com/five82/pandals/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewList View = iota
	ViewLogs
)

const (
	paneList = iota
	paneDetail
)

// filterMode is one step of the membership filter cycle.
type filterMode struct {
	label     string
	favorites state.Tri
	visited   state.Tri
}

var filterModes = []filterMode{
	{"All", state.Any, state.Any},
	{"Favorites", state.Only, state.Any},
	{"Not visited", state.Any, state.Hide},
	{"Visited", state.Any, state.Only},
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Session   *state.Session
	Tracker   *location.Tracker
	Images    *imagecache.Cache
	Alerts    *Alerts
	Logger    *zap.Logger
	LogPath   string
	Identity  string // shown in the header, usually the account email
	Sort      string
	ThemeName string
	PrefsPath string
	Tick      time.Duration
}

// snapshot bundles one read of every store the UI draws from.
type snapshot struct {
	Pandals   state.PandalSnapshot
	Favorites state.MembershipSnapshot
	Visited   state.MembershipSnapshot
	Ratings   state.RatingSnapshot
	Location  location.Snapshot
	UserID    string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	session   *state.Session
	tracker   *location.Tracker
	images    *imagecache.Cache
	alerts    *Alerts
	log       *zap.Logger
	logPath   string
	prefsPath string
	identity  string
	tick      time.Duration

	keys        keyMap
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	focusedPane int

	showHelp bool
	modal    Modal
	queued   []alertMsg

	query     state.Query
	filterIdx int
	searching bool
	search    textinput.Model

	ranker      *location.Ranker[backend.Pandal]
	snapshot    snapshot
	rows        []geo.Ranked[backend.Pandal]
	selectedRow int
	selectedID  string
	lastUpdated time.Time
	notice      string
	noticeErr   bool

	detailViewport viewport.Model
	logViewport    viewport.Model
	logLines       []string
	logErr         string
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultUIInterval
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	ti := textinput.New()
	ti.Placeholder = "club, theme, artist or address"
	ti.Prompt = "/"
	ti.CharLimit = 80

	return Model{
		ctx:       ctx,
		session:   opts.Session,
		tracker:   opts.Tracker,
		images:    opts.Images,
		alerts:    opts.Alerts,
		log:       log.Named("ui"),
		logPath:   opts.LogPath,
		prefsPath: prefsPath,
		identity:  opts.Identity,
		tick:      tick,
		keys:      DefaultKeyMap(),
		theme:     GetTheme(opts.ThemeName),
		query:     state.Query{Sort: state.ParseSort(opts.Sort)},
		search:    ti,
		ranker:    &location.Ranker[backend.Pandal]{},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.tick),
		m.startTrackerCmd(),
	}
	if m.session != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.session, m.tracker))
	}
	if cmd := m.alerts.wait(m.ctx); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.detailViewport = viewport.New(0, 0)
			m.logViewport = viewport.New(0, 0)
		}
		m.ready = true
		m.updateDetailViewport()
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.applySnapshot(snapshot(msg))
		return m, nil

	case actionMsg:
		m.handleAction(msg)
		if m.session == nil {
			return m, nil
		}
		return m, fetchSnapshotCmd(m.session, m.tracker)

	case imagesMsg:
		if msg.evicted > 0 {
			m.log.Debug("image cache evicted", zap.Int("entries", msg.evicted))
		}
		m.updateDetailViewport()
		return m, nil

	case logBatchMsg:
		m.handleLogBatch(msg)
		return m, nil

	case alertMsg:
		if m.modal == nil {
			m.modal = alertModal(msg)
		} else {
			m.queued = append(m.queued, msg)
		}
		return m, m.alerts.wait(m.ctx)
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modal != nil {
		next, cmd, closed := m.modal.Update(msg, m.keys)
		if !closed {
			m.modal = next
			return m, cmd
		}
		m.modal = nil
		if len(m.queued) > 0 {
			m.modal = alertModal(m.queued[0])
			m.queued = m.queued[1:]
		}
		return m, cmd
	}

	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		m.updateDetailViewport()
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Logs):
		if m.currentView == ViewLogs {
			return m, m.showList()
		}
		return m, m.showLogs()
	}

	if m.currentView == ViewLogs {
		return m.handleLogsKey(msg)
	}
	if m.focusedPane == paneDetail {
		return m.handleDetailKey(msg)
	}
	return m.handleListKey(msg)
}

// showList returns to the list and resumes location polling.
func (m *Model) showList() tea.Cmd {
	m.currentView = ViewList
	return m.startTrackerCmd()
}

// showLogs switches to the log view. Location polling only runs while the
// list is on screen.
func (m *Model) showLogs() tea.Cmd {
	m.currentView = ViewLogs
	m.updateLogViewport()
	return tea.Batch(m.stopTrackerCmd(), readLogsCmd(m.logPath))
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(m.tick)}
	if m.session != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.session, m.tracker))
	}
	if m.currentView == ViewLogs {
		cmds = append(cmds, readLogsCmd(m.logPath))
	}
	return m, tea.Batch(cmds...)
}

// applySnapshot stores a fresh read and re-derives the visible rows.
func (m *Model) applySnapshot(s snapshot) {
	m.snapshot = s
	m.lastUpdated = time.Now()
	m.recompute()
	m.updateDetailViewport()
}

// recompute ranks, filters and sorts the pandal list, keeping the cursor on
// the same pandal when it is still visible.
func (m *Model) recompute() {
	mode := filterModes[m.filterIdx%len(filterModes)]
	m.query.Favorites = mode.favorites
	m.query.Visited = mode.visited

	s := m.snapshot
	ranked := m.ranker.Rank(s.Location.Coordinate, s.Pandals.Version, s.Pandals.Pandals)
	m.rows = state.Apply(ranked, m.query, s.Favorites, s.Visited)

	row := -1
	if m.selectedID != "" {
		for i, r := range m.rows {
			if r.Item.ID == m.selectedID {
				row = i
				break
			}
		}
	}
	if row < 0 {
		row = min(m.selectedRow, len(m.rows)-1)
	}
	m.selectRow(row)
}

func (m *Model) selectRow(row int) {
	if len(m.rows) == 0 || row < 0 {
		m.selectedRow = 0
		m.selectedID = ""
		return
	}
	row = min(row, len(m.rows)-1)
	m.selectedRow = row
	m.selectedID = m.rows[row].Item.ID
}

// selected returns the pandal under the cursor.
func (m Model) selected() (geo.Ranked[backend.Pandal], bool) {
	if m.selectedRow < 0 || m.selectedRow >= len(m.rows) {
		return geo.Ranked[backend.Pandal]{}, false
	}
	return m.rows[m.selectedRow], true
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	p := prefs.Prefs{Theme: m.theme.Name, Sort: m.query.Sort.String()}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.log.Warn("save preferences failed", zap.String("path", m.prefsPath), zap.Error(err))
	}
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = strings.TrimSpace(text)
	m.noticeErr = isErr
}

// Messages

type tickMsg time.Time

type snapshotMsg snapshot

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(s *state.Session, tracker *location.Tracker) tea.Cmd {
	return func() tea.Msg {
		snap := snapshot{
			Pandals:   s.Pandals.Snapshot(),
			Favorites: s.Favorites.Snapshot(),
			Visited:   s.Visited.Snapshot(),
			Ratings:   s.Ratings.Snapshot(),
			UserID:    s.UserID(),
		}
		if tracker != nil {
			snap.Location = tracker.Snapshot()
		}
		return snapshotMsg(snap)
	}
}

func (m Model) startTrackerCmd() tea.Cmd {
	if m.tracker == nil {
		return nil
	}
	tracker, ctx := m.tracker, m.ctx
	return func() tea.Msg {
		tracker.Start(ctx)
		return nil
	}
}

func (m Model) stopTrackerCmd() tea.Cmd {
	if m.tracker == nil {
		return nil
	}
	tracker := m.tracker
	return func() tea.Msg {
		tracker.Stop()
		return nil
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	return err
}
