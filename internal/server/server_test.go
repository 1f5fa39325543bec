package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tracklive/internal/engine"
	server_mocks "tracklive/internal/server/mocks"
	"tracklive/internal/track"
)

func TestRoutes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	eng := server_mocks.NewMockEngine(ctrl)
	s := New(eng, Config{WebhookToken: "tok"}, zap.NewNop())

	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "tracklive_events_processed_total")
	})

	t.Run("query order", func(t *testing.T) {
		eng.EXPECT().QueryState(gomock.Any(), "T1").Return(track.Pending())

		resp, err := http.Get(ts.URL + "/orders/T1")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("webhook requires the token", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/webhooks/delivery", "application/json",
			strings.NewReader(`{"task_id":"T1"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("webhook accepts with the token", func(t *testing.T) {
		eng.EXPECT().ProcessEvent(gomock.Any(), gomock.Any()).
			Return(engine.Result{Accepted: true, Order: "T1"})

		req, err := http.NewRequest(http.MethodPost, ts.URL+"/webhooks/delivery",
			strings.NewReader(`{"task_id":"T1","status":"accepted"}`))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer tok")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("mock route is absent without an admin credential", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/orders/T1/mock", "application/json",
			strings.NewReader(`{"status":"nearby"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("method mismatch", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, ts.URL+"/orders/T1", nil)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestRoutesMockEndpointWithAdmin(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	eng := server_mocks.NewMockEngine(ctrl)
	s := New(eng, Config{AdminPasswordHash: string(hash)}, zap.NewNop())

	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	t.Run("rejects anonymous callers", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/orders/T1/mock", "application/json",
			strings.NewReader(`{"status":"nearby"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("injects for the admin", func(t *testing.T) {
		eng.EXPECT().MockEvent(gomock.Any(), "T1", "nearby").
			Return(track.OrderState{Status: track.StatusNearby, Timeline: []track.TimelineEntry{}}, nil)

		req, err := http.NewRequest(http.MethodPost, ts.URL+"/orders/T1/mock",
			strings.NewReader(`{"status":"nearby"}`))
		require.NoError(t, err)
		req.SetBasicAuth("admin", "hunter2")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestHeartbeatEvery(t *testing.T) {
	s := New(nil, Config{}, zap.NewNop())
	assert.Equal(t, defaultHeartbeat, s.heartbeatEvery())

	s = New(nil, Config{Heartbeat: 42}, zap.NewNop())
	assert.Equal(t, int64(42), int64(s.heartbeatEvery()))
}
