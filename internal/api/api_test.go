package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/hardcorelimbo/internal/api"
	"github.com/mcoot/hardcorelimbo/internal/api/apierr"
	"github.com/mcoot/hardcorelimbo/internal/api/response"
	"github.com/mcoot/hardcorelimbo/internal/bridge"
	"github.com/mcoot/hardcorelimbo/internal/dependencies/mocks"
	"github.com/mcoot/hardcorelimbo/internal/model"
	"github.com/mcoot/hardcorelimbo/internal/services/admin"
	"github.com/mcoot/hardcorelimbo/internal/services/auth"
	"github.com/mcoot/hardcorelimbo/internal/storage"
	"github.com/mcoot/hardcorelimbo/internal/storage/memory"
	"github.com/mcoot/hardcorelimbo/internal/testutil"
	"github.com/mcoot/hardcorelimbo/internal/worker"
)

const (
	token = "letmein"
	steve = model.PlayerID("5b7c1a64-3a4e-4a43-9f36-1f0f1c6f2b11")
)

// downStore fails every name lookup as if the backend were unreachable
type downStore struct {
	storage.PlayerStore
}

func (downStore) GetByDisplayName(context.Context, string) (model.PlayerRecord, error) {
	return model.PlayerRecord{}, storage.Unavailable("get player by name", context.DeadlineExceeded)
}

type testServer struct {
	handler http.Handler
	storage *memory.Storage
	clock   *mocks.MockClock
	bridge  *bridge.Bridge
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithStore(t, memory.New())
}

func newTestServerWithStore(t *testing.T, store storage.PlayerStore) *testServer {
	t.Helper()

	hash, err := auth.HashToken(token, bcrypt.MinCost)
	require.NoError(t, err)
	authService, err := auth.New(hash)
	require.NoError(t, err)

	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	logger := testutil.NopLogger()
	b := bridge.New(logger)

	workers := worker.NewPool(2, logger)
	ctx, cancel := context.WithCancel(context.Background())
	workers.Start(ctx)
	t.Cleanup(func() {
		workers.Close()
		cancel()
	})

	router := api.NewRouter(api.RouterConfig{
		Logger:       logger,
		Mode:         "main",
		AuthService:  authService,
		AdminService: admin.New(store, workers, model.DefaultRules(), clk, logger),
		Bridge:       b,
	})

	ts := &testServer{handler: router, clock: clk, bridge: b}
	if mem, ok := store.(*memory.Storage); ok {
		ts.storage = mem
	}
	return ts
}

func (ts *testServer) request(method, path string, body any, bearer string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) seed(t *testing.T, lives int) {
	t.Helper()
	rec := model.NewPlayerRecord(steve, "Steve", model.DefaultRules(), ts.clock.Now())
	rec = model.ApplyLivesOverride(rec, lives, ts.clock.Now())
	require.NoError(t, ts.storage.Upsert(context.Background(), rec))
}

func decodeStatus(t *testing.T, rr *httptest.ResponseRecorder) response.PlayerStatus {
	t.Helper()
	var resp response.PlayerStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp response.Health
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "main", resp.Mode)
	assert.False(t, resp.BridgeConnected)
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, 2)

	rr := ts.request(http.MethodGet, "/api/v1/players/Steve", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeUnauthorized, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/players/Steve/revive", nil, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/bridge", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetPlayerStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, 2)

	rr := ts.request(http.MethodGet, "/api/v1/players/steve", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeStatus(t, rr)
	assert.Equal(t, string(steve), resp.ID)
	assert.Equal(t, "Steve", resp.DisplayName)
	assert.Equal(t, 2, resp.Lives)
	assert.False(t, resp.Dead)
	assert.Equal(t, "grace", resp.State)
	assert.Equal(t, "24h 0m", resp.GraceRemaining)
	assert.Nil(t, resp.LastDeathAt)
}

func TestGetUnknownPlayer(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/players/Nobody", nil, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodePlayerNotFound, errorCode(t, rr))
}

func TestReviveDeadPlayer(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, 0)

	rr := ts.request(http.MethodPost, "/api/v1/players/Steve/revive", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeStatus(t, rr)
	assert.False(t, resp.Dead)
	assert.Equal(t, model.DefaultRules().LivesOnRevive, resp.Lives)
	assert.NotNil(t, resp.LastDeathAt, "revive keeps the death time")

	dead, err := ts.storage.IsDead(context.Background(), steve)
	require.NoError(t, err)
	assert.False(t, dead)
}

func TestReviveLivingPlayerConflicts(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, 1)

	rr := ts.request(http.MethodPost, "/api/v1/players/Steve/revive", nil, token)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodePlayerNotDead, errorCode(t, rr))
}

func TestSetLives(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, 2)

	rr := ts.request(http.MethodPut, "/api/v1/players/Steve/lives", map[string]int{"lives": 0}, token)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeStatus(t, rr)
	assert.True(t, resp.Dead)
	assert.Equal(t, "dead", resp.State)

	rr = ts.request(http.MethodPut, "/api/v1/players/Steve/lives", map[string]int{"lives": 4}, token)
	require.Equal(t, http.StatusOK, rr.Code)
	resp = decodeStatus(t, rr)
	assert.False(t, resp.Dead)
	assert.Equal(t, 4, resp.Lives)
}

func TestSetLivesRejectsBadInput(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, 2)

	tests := []struct {
		name string
		body any
		code string
	}{
		{"negative", map[string]int{"lives": -1}, apierr.CodeInvalidLives},
		{"above max", map[string]int{"lives": 6}, apierr.CodeInvalidLives},
		{"missing field", map[string]string{}, apierr.CodeInvalidRequest},
		{"not a number", map[string]string{"lives": "three"}, apierr.CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request(http.MethodPut, "/api/v1/players/Steve/lives", tt.body, token)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.code, errorCode(t, rr))
		})
	}

	// Nothing was written
	rec, err := ts.storage.Get(context.Background(), steve)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Lives)
}

func TestStoreUnavailable(t *testing.T) {
	ts := newTestServerWithStore(t, downStore{PlayerStore: memory.New()})

	rr := ts.request(http.MethodGet, "/api/v1/players/Steve", nil, token)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, apierr.CodeStoreUnavailable, errorCode(t, rr))
}

func TestBridgeUpgradeWithToken(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/bridge"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, ts.bridge.Connected, time.Second, 5*time.Millisecond)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	var health response.Health
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.True(t, health.BridgeConnected)
}
