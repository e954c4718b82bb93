package location

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/pandals/internal/geo"
)

// DefaultInterval is how often a running tracker re-reads the position.
const DefaultInterval = 2 * time.Minute

const (
	msgPermissionDenied = "Location permission denied"
	msgFetchFailed      = "Failed to get current location"
)

// ErrPermissionDenied is returned when the provider refuses location access.
var ErrPermissionDenied = errors.New("location permission denied")

// Status is the tracker's position in its state machine.
type Status int

const (
	StatusIdle Status = iota
	StatusRequestingPermission
	StatusFetching
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusRequestingPermission:
		return "requesting-permission"
	case StatusFetching:
		return "fetching"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Provider is the device location source.
type Provider interface {
	CheckPermission(ctx context.Context) (bool, error)
	RequestPermission(ctx context.Context) (bool, error)
	CurrentPosition(ctx context.Context) (geo.Coordinate, error)
}

// Snapshot is a copy of the tracker state.
type Snapshot struct {
	Coordinate *geo.Coordinate
	Granted    bool
	Fetching   bool
	Status     Status
	Error      string
	UpdatedAt  time.Time
}

// Tracker polls a Provider while started.
type Tracker struct {
	provider Provider
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time

	mu        sync.RWMutex
	coord     *geo.Coordinate
	granted   bool
	fetching  bool
	status    Status
	err       string
	updatedAt time.Time

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTracker returns an idle tracker. A non-positive interval uses DefaultInterval.
func NewTracker(p Provider, interval time.Duration, log *zap.Logger) *Tracker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{provider: p, interval: interval, log: log, now: time.Now}
}

// Start checks permission, reads the position once and then polls every
// interval until Stop or ctx ends. Polling skips ticks while permission is
// not granted; only RequestPermission asks again. Calling Start on a running
// tracker does nothing.
func (t *Tracker) Start(ctx context.Context) {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	if t.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.run(runCtx, t.done)
}

// Stop ends polling and waits for the loop to exit. The last position is kept.
func (t *Tracker) Stop() {
	t.runMu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the polling loop is active.
func (t *Tracker) Running() bool {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	return t.cancel != nil
}

func (t *Tracker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	if t.checkPermission(ctx) {
		_ = t.fetch(ctx)
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if t.Granted() {
				_ = t.fetch(ctx)
			}
		}
	}
}

// Refresh reads the position now. It fails with ErrPermissionDenied when
// permission has not been granted.
func (t *Tracker) Refresh(ctx context.Context) error {
	if !t.Granted() {
		return ErrPermissionDenied
	}
	return t.fetch(ctx)
}

// RequestPermission runs the user-initiated permission flow and, when
// granted, reads the position.
func (t *Tracker) RequestPermission(ctx context.Context) error {
	t.setStatus(StatusRequestingPermission)
	ok, err := t.provider.RequestPermission(ctx)
	if err != nil || !ok {
		t.deny(err)
		return ErrPermissionDenied
	}
	t.mu.Lock()
	t.granted = true
	t.mu.Unlock()
	return t.fetch(ctx)
}

// checkPermission asks the provider for the current grant and requests it
// once if missing.
func (t *Tracker) checkPermission(ctx context.Context) bool {
	t.setStatus(StatusRequestingPermission)
	ok, err := t.provider.CheckPermission(ctx)
	if err == nil && !ok {
		ok, err = t.provider.RequestPermission(ctx)
	}
	if err != nil || !ok {
		t.deny(err)
		return false
	}
	t.mu.Lock()
	t.granted = true
	t.mu.Unlock()
	return true
}

func (t *Tracker) deny(err error) {
	if err != nil {
		t.log.Warn("location permission check failed", zap.Error(err))
	}
	t.mu.Lock()
	t.granted = false
	t.status = StatusFailed
	t.err = msgPermissionDenied
	t.mu.Unlock()
}

// fetch reads one position. Overlapping calls collapse into the one already
// running.
func (t *Tracker) fetch(ctx context.Context) error {
	t.mu.Lock()
	if t.fetching {
		t.mu.Unlock()
		return nil
	}
	t.fetching = true
	t.status = StatusFetching
	t.mu.Unlock()

	coord, err := t.provider.CurrentPosition(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.fetching = false
	if err != nil {
		if ctx.Err() != nil {
			t.status = StatusIdle
			return err
		}
		t.status = StatusFailed
		t.err = msgFetchFailed
		t.log.Warn("location fetch failed", zap.Error(err))
		return err
	}
	c := coord
	t.coord = &c
	t.status = StatusSucceeded
	t.err = ""
	t.updatedAt = t.now()
	t.log.Debug("location updated", zap.Float64("latitude", c.Latitude), zap.Float64("longitude", c.Longitude))
	return nil
}

func (t *Tracker) setStatus(s Status) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

// Granted reports whether location permission is held.
func (t *Tracker) Granted() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.granted
}

// Coordinate returns the last known position, or nil.
func (t *Tracker) Coordinate() *geo.Coordinate {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.coord == nil {
		return nil
	}
	c := *t.coord
	return &c
}

// Snapshot returns a copy of the tracker state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap := Snapshot{
		Granted:   t.granted,
		Fetching:  t.fetching,
		Status:    t.status,
		Error:     t.err,
		UpdatedAt: t.updatedAt,
	}
	if t.coord != nil {
		c := *t.coord
		snap.Coordinate = &c
	}
	return snap
}
