package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/pandals/internal/logtail"
)

type logBatchMsg struct {
	lines []string
	err   error
}

func readLogsCmd(path string) tea.Cmd {
	if path == "" || path == "-" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogTailLines)
		return logBatchMsg{lines: lines, err: err}
	}
}

func (m *Model) handleLogBatch(msg logBatchMsg) {
	if msg.err != nil {
		m.logErr = msg.err.Error()
	} else {
		m.logErr = ""
		m.logLines = msg.lines
	}
	m.updateLogViewport()
}

// updateLogViewport re-renders the log lines, staying pinned to the bottom
// when the user has not scrolled up.
func (m *Model) updateLogViewport() {
	if !m.ready {
		return
	}
	follow := m.logViewport.AtBottom() || m.logViewport.TotalLineCount() == 0
	m.logViewport.Width = max(m.width-2, 0)
	m.logViewport.Height = max(m.contentHeight()-2, 0)
	m.logViewport.SetContent(m.renderLogContent(m.logViewport.Width))
	if follow {
		m.logViewport.GotoBottom()
	}
}

func (m Model) renderLogs() string {
	title := "Log"
	if m.logPath != "" {
		title = "Log · " + m.logPath
	}
	return m.renderBox(title, m.logViewport.View(), m.width, m.contentHeight(), true)
}

func (m Model) renderLogContent(width int) string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()

	switch {
	case m.logPath == "" || m.logPath == "-":
		return bg.FillLine(bg.Render("Logging to stderr; nothing to show here", styles.MutedText), width)
	case m.logErr != "":
		return bg.FillLine(bg.Render(m.logErr, styles.DangerText), width)
	case len(m.logLines) == 0:
		return bg.FillLine(bg.Render("No log entries", styles.MutedText), width)
	}

	lines := make([]string, len(m.logLines))
	for i, line := range m.logLines {
		num := bg.Render(fmt.Sprintf("%4d │ ", i+1), styles.FaintText)
		lines[i] = bg.FillLine(num+m.colorizeLine(line, styles, bg), width)
	}
	return strings.Join(lines, "\n")
}

// colorizeLine styles one console-encoder line column by column.
func (m Model) colorizeLine(line string, styles Styles, bg BgStyle) string {
	e := logtail.Parse(line)
	if e.Level == "" {
		return bg.Render(strings.ReplaceAll(e.Message, "\t", "    "), styles.MutedText)
	}
	var parts []string
	parts = append(parts, bg.Render(e.Time, styles.FaintText))
	parts = append(parts, bg.Render(e.Level, m.levelStyle(e.Level, styles).Bold(true)))
	if e.Logger != "" {
		parts = append(parts, bg.Render("["+e.Logger+"]", styles.AccentText))
	}
	if e.Message != "" {
		parts = append(parts, bg.Render(e.Message, styles.Text))
	}
	if e.Fields != "" {
		parts = append(parts, bg.Render(e.Fields, styles.MutedText))
	}
	return strings.Join(parts, bg.Space())
}

func (m Model) levelStyle(level string, styles Styles) lipgloss.Style {
	switch level {
	case "INFO":
		return styles.SuccessText
	case "WARN":
		return styles.WarningText
	case "ERROR", "DPANIC", "PANIC", "FATAL":
		return styles.DangerText
	case "DEBUG":
		return styles.InfoText
	default:
		return styles.Text
	}
}

// handleLogsKey processes keyboard input for the log view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		return m, m.showList()
	case key.Matches(msg, m.keys.Up):
		m.logViewport.ScrollUp(1)
	case key.Matches(msg, m.keys.Down):
		m.logViewport.ScrollDown(1)
	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
	case key.Matches(msg, m.keys.PageUp):
		m.logViewport.PageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.logViewport.PageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		m.logViewport.HalfPageUp()
	case key.Matches(msg, m.keys.HalfPageDown):
		m.logViewport.HalfPageDown()
	}
	return m, nil
}
