package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkurbatov/huddle/internal/auth"
	"github.com/dkurbatov/huddle/internal/chat"
	"github.com/dkurbatov/huddle/internal/config"
	"github.com/dkurbatov/huddle/internal/core"
	"github.com/dkurbatov/huddle/internal/log"
	"github.com/dkurbatov/huddle/internal/notify"
	"github.com/dkurbatov/huddle/internal/store/sqlite"
)

// testServer wires the full HTTP surface over an in-memory store.
type testServer struct {
	*httptest.Server

	store    *sqlite.SQLiteStore
	auth     *auth.Service
	registry *core.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := log.NewWithOutput("error", io.Discard)

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "huddle-test",
		Audience: "huddle-clients",
		TTL:      time.Hour,
	}
	authService := auth.NewService(st, jwtConfig)

	registry := core.NewRegistry(logger)
	router := core.NewRouter(registry, logger)
	chatService := chat.NewService(st, router, notify.NewLogDispatcher(logger), logger)

	cfg := config.Config{Addr: "127.0.0.1:0", ReadHeaderTimeout: 5 * time.Second}
	srv := NewServer(cfg, authService, registry, chatService, st, logger)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return &testServer{Server: ts, store: st, auth: authService, registry: registry}
}

// registerAndLogin creates an account and returns its id and bearer token.
func (ts *testServer) registerAndLogin(t *testing.T, username string) (int64, string) {
	t.Helper()
	ctx := context.Background()

	userID, err := ts.auth.Register(ctx, username, "secret123")
	require.NoError(t, err)
	token, err := ts.auth.Login(ctx, username, "secret123")
	require.NoError(t, err)
	return userID, token
}

// wsURL turns the test server's base URL into the websocket endpoint.
func (ts *testServer) wsURL(token string) string {
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat"
	if token != "" {
		url += "?token=" + token
	}
	return url
}

// doJSON performs an API request with an optional bearer token and decodes the
// response body into out (when non-nil).
func (ts *testServer) doJSON(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := stdhttp.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < stdhttp.StatusMultipleChoices {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
