// Package testserver runs the full HTTP stack on a temporary data directory.
package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/hitparade/internal/app"
	"github.com/rpggio/hitparade/internal/config"
	"github.com/rpggio/hitparade/internal/domain/enrich"
	"github.com/rpggio/hitparade/internal/identity"
	"github.com/rpggio/hitparade/internal/mcp"
	"github.com/rpggio/hitparade/internal/transport"
	"github.com/stretchr/testify/require"
)

// Credentials configured on every test server.
const (
	AdminToken = "admin-secret"
	BotToken   = "123456:test-bot-token"
)

// Start is the initial clock reading: Monday 2026-10-12 10:00 UTC.
var Start = time.Date(2026, time.October, 12, 10, 0, 0, 0, time.UTC)

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Catalog answers lookups from a fixed table keyed by "artist - title".
type Catalog struct {
	mu    sync.Mutex
	Media map[string]*enrich.Media
	Calls int
}

func (c *Catalog) Lookup(_ context.Context, artist, title string) (*enrich.Media, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls++
	m, ok := c.Media[strings.ToLower(artist+" - "+title)]
	if !ok {
		return nil, nil
	}
	out := *m
	return &out, nil
}

type TestServer struct {
	Server  *httptest.Server
	App     *app.App
	Clock   *Clock
	Catalog *Catalog
}

// Option adjusts the configuration before the app is built.
type Option func(*config.Config)

// New starts a server with a fresh data directory.
func New(t *testing.T, opts ...Option) *TestServer {
	t.Helper()
	return NewInDir(t, t.TempDir(), opts...)
}

// NewInDir starts a server on an existing data directory, for restart tests.
func NewInDir(t *testing.T, dir string, opts ...Option) *TestServer {
	t.Helper()

	cfg := config.Default()
	cfg.Data.Dir = dir
	cfg.Auth.AdminToken = AdminToken
	cfg.Identity.BotToken = BotToken
	for _, opt := range opts {
		opt(&cfg)
	}

	clock := &Clock{now: Start}
	catalog := &Catalog{Media: map[string]*enrich.Media{}}
	a, err := app.New(cfg, nil, app.Options{Clock: clock.Now, Lookup: catalog})
	require.NoError(t, err)

	mcpServer := mcp.NewServer(mcp.Config{
		App:           a,
		Resolver:      transport.StaticToken(cfg.Auth.AdminToken),
		TransportMode: "http",
	})
	server := httptest.NewServer(transport.NewServer(a, transport.Options{
		MCP: mcp.NewHTTPHandler(mcpServer),
		Now: clock.Now,
	}))
	t.Cleanup(server.Close)

	return &TestServer{
		Server:  server,
		App:     a,
		Clock:   clock,
		Catalog: catalog,
	}
}

// InitData returns signed Telegram init data for userID at the current clock.
func (ts *TestServer) InitData(userID int) string {
	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(ts.Clock.Now().Unix(), 10))
	values.Set("query_id", "AAE-test")
	values.Set("user", `{"id":`+strconv.Itoa(userID)+`,"first_name":"Test","username":"user`+strconv.Itoa(userID)+`"}`)
	return identity.Sign(values, BotToken)
}

// Response is a decoded reply.
type Response struct {
	Status int
	Body   []byte
}

// JSON decodes the body into v.
func (r Response) JSON(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body, v), "body: %s", r.Body)
}

// ErrorCode returns the "error" field of an error envelope.
func (r Response) ErrorCode(t *testing.T) string {
	t.Helper()
	var env struct {
		Error string `json:"error"`
	}
	r.JSON(t, &env)
	return env.Error
}

// Do sends a request with an optional JSON body and headers.
func (ts *TestServer) Do(t *testing.T, method, path string, body any, headers map[string]string) Response {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reader)
	require.NoError(t, err)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return Response{Status: resp.StatusCode, Body: data}
}

// Admin sends an admin request with the configured token.
func (ts *TestServer) Admin(t *testing.T, method, path string, body any) Response {
	t.Helper()
	return ts.Do(t, method, path, body, map[string]string{transport.AdminTokenHeader: AdminToken})
}

// AsUser sends a request carrying signed init data for userID.
func (ts *TestServer) AsUser(t *testing.T, userID int, method, path string, body any) Response {
	t.Helper()
	return ts.Do(t, method, path, body, map[string]string{transport.InitDataHeader: ts.InitData(userID)})
}
