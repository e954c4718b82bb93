package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/five82/pandals/internal/backend"
)

// TokenSource yields the bearer token for the current session. An empty token
// means the request goes out with the anonymous key.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Ensure Client implements backend.Backend at compile time.
var _ backend.Backend = (*Client)(nil)

// Client talks to the PostgREST gateway in front of the pandal database.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	apiKey    string
	tokens    TokenSource
	limiter   *rate.Limiter
	userAgent string
	requestID func() string
}

const (
	defaultUserAgent = "pandals/0.1"
	requestTimeout   = 10 * time.Second
	restPrefix       = "/rest/v1/"
)

// Option customizes a Client.
type Option func(*Client)

// WithTokenSource sets where session tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithRateLimit paces outgoing requests. Zero or negative disables pacing.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient builds a Client for the project at rawURL authenticated with the
// project's anonymous key.
func NewClient(rawURL, apiKey string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(rawURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("anon key is required")
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		apiKey:    strings.TrimSpace(apiKey),
		userAgent: defaultUserAgent,
		requestID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListPandals returns every row of the pandals table.
func (c *Client) ListPandals(ctx context.Context) ([]backend.Pandal, error) {
	var rows []backend.Pandal
	q := url.Values{"select": {"*"}}
	if err := c.do(ctx, http.MethodGet, "pandals", q, nil, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetPandal fetches one pandal by id.
func (c *Client) GetPandal(ctx context.Context, id string) (backend.Pandal, error) {
	var rows []backend.Pandal
	q := url.Values{"select": {"*"}, "id": {eq(id)}}
	if err := c.do(ctx, http.MethodGet, "pandals", q, nil, nil, &rows); err != nil {
		return backend.Pandal{}, err
	}
	if len(rows) == 0 {
		return backend.Pandal{}, fmt.Errorf("pandal %s: %w", id, backend.ErrNotFound)
	}
	return rows[0], nil
}

// GetPandalRating reads the stored aggregate for a pandal.
func (c *Client) GetPandalRating(ctx context.Context, id string) (backend.RatingAggregate, error) {
	var rows []struct {
		Rating *float64 `json:"rating"`
		Count  *int     `json:"number_of_ratings"`
	}
	q := url.Values{"select": {"rating,number_of_ratings"}, "id": {eq(id)}}
	if err := c.do(ctx, http.MethodGet, "pandals", q, nil, nil, &rows); err != nil {
		return backend.RatingAggregate{}, err
	}
	if len(rows) == 0 {
		return backend.RatingAggregate{}, fmt.Errorf("pandal %s: %w", id, backend.ErrNotFound)
	}
	var agg backend.RatingAggregate
	if rows[0].Rating != nil {
		agg.Rating = *rows[0].Rating
	}
	if rows[0].Count != nil {
		agg.Count = *rows[0].Count
	}
	return agg, nil
}

// UpdatePandalRating stores a new aggregate on a pandal.
func (c *Client) UpdatePandalRating(ctx context.Context, id string, rating float64, count int) error {
	body := backend.RatingAggregate{Rating: rating, Count: count}
	q := url.Values{"id": {eq(id)}}
	return c.do(ctx, http.MethodPatch, "pandals", q, nil, body, nil)
}

// ListFavoriteIDs returns the pandal ids a user has favorited.
func (c *Client) ListFavoriteIDs(ctx context.Context, userID string) ([]string, error) {
	return c.listPandalIDs(ctx, "user_favourites", userID)
}

// InsertFavorite adds a favorite row. Duplicates are rejected by the store.
func (c *Client) InsertFavorite(ctx context.Context, userID, pandalID string) error {
	return c.do(ctx, http.MethodPost, "user_favourites", nil, nil, membership{UserID: userID, PandalID: pandalID}, nil)
}

// DeleteFavorite removes a favorite row by its composite key.
func (c *Client) DeleteFavorite(ctx context.Context, userID, pandalID string) error {
	return c.deleteMembership(ctx, "user_favourites", userID, pandalID)
}

// ListVisitedIDs returns the pandal ids a user has marked visited.
func (c *Client) ListVisitedIDs(ctx context.Context, userID string) ([]string, error) {
	return c.listPandalIDs(ctx, "user_visited", userID)
}

// UpsertVisited adds a visited row, ignoring duplicates.
func (c *Client) UpsertVisited(ctx context.Context, userID, pandalID string) error {
	q := url.Values{"on_conflict": {"user_id,pandal_id"}}
	h := http.Header{"Prefer": {"resolution=ignore-duplicates"}}
	return c.do(ctx, http.MethodPost, "user_visited", q, h, membership{UserID: userID, PandalID: pandalID}, nil)
}

// DeleteVisited removes a visited row by its composite key.
func (c *Client) DeleteVisited(ctx context.Context, userID, pandalID string) error {
	return c.deleteMembership(ctx, "user_visited", userID, pandalID)
}

// ListUserRatings returns pandal id -> rating for a user.
func (c *Client) ListUserRatings(ctx context.Context, userID string) (map[string]int, error) {
	var rows []struct {
		PandalID string `json:"pandal_id"`
		Rating   int    `json:"rating"`
	}
	q := url.Values{"select": {"pandal_id,rating"}, "user_id": {eq(userID)}}
	if err := c.do(ctx, http.MethodGet, "user_ratings", q, nil, nil, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.PandalID] = row.Rating
	}
	return out, nil
}

// GetUserRating looks up a user's own rating for a pandal.
func (c *Client) GetUserRating(ctx context.Context, userID, pandalID string) (int, bool, error) {
	var rows []struct {
		Rating int `json:"rating"`
	}
	q := url.Values{"select": {"rating"}, "user_id": {eq(userID)}, "pandal_id": {eq(pandalID)}}
	if err := c.do(ctx, http.MethodGet, "user_ratings", q, nil, nil, &rows); err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0].Rating, true, nil
}

// UpsertUserRating writes a rating keyed on (user_id, pandal_id).
func (c *Client) UpsertUserRating(ctx context.Context, r backend.UserRating) error {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}
	q := url.Values{"on_conflict": {"user_id,pandal_id"}}
	h := http.Header{"Prefer": {"resolution=merge-duplicates"}}
	return c.do(ctx, http.MethodPost, "user_ratings", q, h, r, nil)
}

// InsertUser creates a profile row and returns the stored representation.
func (c *Client) InsertUser(ctx context.Context, u backend.User) (backend.User, error) {
	var rows []backend.User
	h := http.Header{"Prefer": {"return=representation"}}
	if err := c.do(ctx, http.MethodPost, "users", nil, h, u, &rows); err != nil {
		return backend.User{}, err
	}
	if len(rows) == 0 {
		return u, nil
	}
	return rows[0], nil
}

type membership struct {
	UserID   string `json:"user_id"`
	PandalID string `json:"pandal_id"`
}

func (c *Client) listPandalIDs(ctx context.Context, table, userID string) ([]string, error) {
	var rows []struct {
		PandalID string `json:"pandal_id"`
	}
	q := url.Values{"select": {"pandal_id"}, "user_id": {eq(userID)}}
	if err := c.do(ctx, http.MethodGet, table, q, nil, nil, &rows); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.PandalID)
	}
	return ids, nil
}

func (c *Client) deleteMembership(ctx context.Context, table, userID, pandalID string) error {
	q := url.Values{"user_id": {eq(userID)}, "pandal_id": {eq(pandalID)}}
	return c.do(ctx, http.MethodDelete, table, q, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, table string, query url.Values, header http.Header, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	rel := &url.URL{Path: restPrefix + table}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}

	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(buf)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), payload)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", c.requestID())
	req.Header.Set("apikey", c.apiKey)

	token := c.apiKey
	if c.tokens != nil {
		t, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("session token: %w", err)
		}
		if t != "" {
			token = t
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return statusError(rel.Path, resp)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiError mirrors the PostgREST error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func statusError(path string, resp *http.Response) error {
	var body apiError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	_ = json.Unmarshal(raw, &body)

	msg := strings.TrimSpace(body.Message)
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	err := fmt.Errorf("api %s returned status %d", path, resp.StatusCode)
	if msg != "" {
		err = fmt.Errorf("api %s returned status %d: %s", path, resp.StatusCode, msg)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w (%w)", err, backend.ErrUnauthorized)
	}
	return err
}

func eq(value string) string {
	return "eq." + value
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("project url is required")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse project url %q: %w", raw, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
