package state

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/five82/pandals/internal/backend"
	"github.com/five82/pandals/internal/prefs"
)

var errBoom = errors.New("boom")

// fakeBackend is an in-memory backend.Backend. fail maps an operation name to
// the error it returns; gate, when set for an operation, blocks it until the
// channel is closed.
type fakeBackend struct {
	mu        sync.Mutex
	pandals   []backend.Pandal
	favorites map[string]map[string]bool
	visited   map[string]map[string]bool
	ratings   map[string]map[string]int
	users     []backend.User
	calls     map[string]int
	fail      map[string]error
	gate      map[string]chan struct{}
}

func newFakeBackend(pandals ...backend.Pandal) *fakeBackend {
	return &fakeBackend{
		pandals:   pandals,
		favorites: map[string]map[string]bool{},
		visited:   map[string]map[string]bool{},
		ratings:   map[string]map[string]int{},
		calls:     map[string]int{},
		fail:      map[string]error{},
		gate:      map[string]chan struct{}{},
	}
}

func (f *fakeBackend) setFail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

func (f *fakeBackend) hold(op string) chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gate[op] = ch
	f.mu.Unlock()
	return ch
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// enter records a call, waits on any gate and returns the injected failure.
func (f *fakeBackend) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	gate := f.gate[op]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail[op]
}

func (f *fakeBackend) ListPandals(ctx context.Context) ([]backend.Pandal, error) {
	if err := f.enter(ctx, "ListPandals"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return clonePandals(f.pandals), nil
}

func (f *fakeBackend) GetPandal(ctx context.Context, id string) (backend.Pandal, error) {
	if err := f.enter(ctx, "GetPandal"); err != nil {
		return backend.Pandal{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := indexOf(f.pandals, id); i >= 0 {
		return f.pandals[i].Clone(), nil
	}
	return backend.Pandal{}, backend.ErrNotFound
}

func (f *fakeBackend) GetPandalRating(ctx context.Context, id string) (backend.RatingAggregate, error) {
	if err := f.enter(ctx, "GetPandalRating"); err != nil {
		return backend.RatingAggregate{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := indexOf(f.pandals, id)
	if i < 0 {
		return backend.RatingAggregate{}, backend.ErrNotFound
	}
	return backend.RatingAggregate{Rating: f.pandals[i].RatingValue(), Count: f.pandals[i].NumberOfRatings}, nil
}

func (f *fakeBackend) UpdatePandalRating(ctx context.Context, id string, rating float64, count int) error {
	if err := f.enter(ctx, "UpdatePandalRating"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := indexOf(f.pandals, id)
	if i < 0 {
		return backend.ErrNotFound
	}
	f.pandals[i].Rating = &rating
	f.pandals[i].NumberOfRatings = count
	return nil
}

func (f *fakeBackend) ListFavoriteIDs(ctx context.Context, userID string) ([]string, error) {
	if err := f.enter(ctx, "ListFavoriteIDs"); err != nil {
		return nil, err
	}
	return f.keys(f.favorites, userID), nil
}

func (f *fakeBackend) InsertFavorite(ctx context.Context, userID, pandalID string) error {
	if err := f.enter(ctx, "InsertFavorite"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.favorites[userID][pandalID] {
		return errors.New("duplicate key value violates unique constraint")
	}
	put(f.favorites, userID, pandalID)
	return nil
}

func (f *fakeBackend) DeleteFavorite(ctx context.Context, userID, pandalID string) error {
	if err := f.enter(ctx, "DeleteFavorite"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.favorites[userID], pandalID)
	return nil
}

func (f *fakeBackend) ListVisitedIDs(ctx context.Context, userID string) ([]string, error) {
	if err := f.enter(ctx, "ListVisitedIDs"); err != nil {
		return nil, err
	}
	return f.keys(f.visited, userID), nil
}

func (f *fakeBackend) UpsertVisited(ctx context.Context, userID, pandalID string) error {
	if err := f.enter(ctx, "UpsertVisited"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	put(f.visited, userID, pandalID)
	return nil
}

func (f *fakeBackend) DeleteVisited(ctx context.Context, userID, pandalID string) error {
	if err := f.enter(ctx, "DeleteVisited"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.visited[userID], pandalID)
	return nil
}

func (f *fakeBackend) ListUserRatings(ctx context.Context, userID string) (map[string]int, error) {
	if err := f.enter(ctx, "ListUserRatings"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]int{}
	for id, v := range f.ratings[userID] {
		out[id] = v
	}
	return out, nil
}

func (f *fakeBackend) GetUserRating(ctx context.Context, userID, pandalID string) (int, bool, error) {
	if err := f.enter(ctx, "GetUserRating"); err != nil {
		return 0, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.ratings[userID][pandalID]
	return v, ok, nil
}

func (f *fakeBackend) UpsertUserRating(ctx context.Context, r backend.UserRating) error {
	if err := f.enter(ctx, "UpsertUserRating"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ratings[r.UserID] == nil {
		f.ratings[r.UserID] = map[string]int{}
	}
	f.ratings[r.UserID][r.PandalID] = r.Rating
	return nil
}

func (f *fakeBackend) InsertUser(ctx context.Context, u backend.User) (backend.User, error) {
	if err := f.enter(ctx, "InsertUser"); err != nil {
		return backend.User{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, u)
	return u, nil
}

func (f *fakeBackend) keys(rel map[string]map[string]bool, userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for id, ok := range rel[userID] {
		if ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func put(rel map[string]map[string]bool, userID, pandalID string) {
	if rel[userID] == nil {
		rel[userID] = map[string]bool{}
	}
	rel[userID][pandalID] = true
}

// memPersister is an in-memory RatingPersister.
type memPersister struct {
	mu      sync.Mutex
	data    prefs.Ratings
	saves   int
	cleared bool
}

func (m *memPersister) Load() (prefs.Ratings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.data
	out.Ratings = map[string]int{}
	for k, v := range m.data.Ratings {
		out.Ratings[k] = v
	}
	return out, nil
}

func (m *memPersister) Save(r prefs.Ratings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = r
	m.saves++
	return nil
}

func (m *memPersister) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = prefs.Ratings{}
	m.cleared = true
	return nil
}

// alerts records Notifier calls.
type alerts struct {
	mu   sync.Mutex
	msgs []string
}

func (a *alerts) Alert(title, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.msgs = append(a.msgs, title+": "+message)
}

func (a *alerts) all() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.msgs...)
}

func pandal(id, name string, lat, lon float64) backend.Pandal {
	return backend.Pandal{ID: id, ClubName: name, Latitude: &lat, Longitude: &lon}
}

func rated(p backend.Pandal, rating float64, count int) backend.Pandal {
	p.Rating = &rating
	p.NumberOfRatings = count
	return p
}
