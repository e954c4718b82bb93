package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

const alertBuffer = 16

type alertMsg struct {
	title   string
	message string
}

// Alerts carries store alerts into the program. It implements state.Notifier.
// Alerts raised while the buffer is full are dropped.
type Alerts struct {
	ch chan alertMsg
}

// NewAlerts returns an empty alert queue.
func NewAlerts() *Alerts {
	return &Alerts{ch: make(chan alertMsg, alertBuffer)}
}

// Alert queues a blocking alert for the UI.
func (a *Alerts) Alert(title, message string) {
	select {
	case a.ch <- alertMsg{title: title, message: message}:
	default:
	}
}

// wait returns a command that delivers the next alert.
func (a *Alerts) wait(ctx context.Context) tea.Cmd {
	if a == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case msg := <-a.ch:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}
