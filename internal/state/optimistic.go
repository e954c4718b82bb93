package state

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNoUser is returned by user-scoped actions when nobody is signed in.
	ErrNoUser = errors.New("no signed-in user")
	// ErrLoadInFlight is returned when a pandal load is already running.
	ErrLoadInFlight = errors.New("load already in flight")
)

const unknownError = "Unknown error"

// Notifier surfaces failures that need the user's attention before they carry on.
type Notifier interface {
	Alert(title, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(title, message string)

// Alert implements Notifier.
func (f NotifierFunc) Alert(title, message string) {
	if f != nil {
		f(title, message)
	}
}

type nopNotifier struct{}

func (nopNotifier) Alert(string, string) {}

// mutation is one optimistic change: apply runs before the network call,
// revert (optional) undoes it when commit fails, settle always runs last.
type mutation struct {
	apply  func()
	commit func(ctx context.Context) error
	revert func()
	settle func(err error)
}

// runOptimistic applies m locally, commits it remotely and reconciles. A nil
// revert leaves the optimistic state in place on failure.
func runOptimistic(ctx context.Context, m mutation) error {
	if m.apply != nil {
		m.apply()
	}
	err := m.commit(ctx)
	if err != nil && m.revert != nil {
		m.revert()
	}
	if m.settle != nil {
		m.settle(err)
	}
	return err
}

// errMessage normalizes an error into the string kept in store state.
func errMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return unknownError
	}
	return msg
}

func cloneSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

func cloneErrors(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
