package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishpatch/dishpatch/pkg/eventlog"
)

type fakeHub struct{ connected bool }

func (h *fakeHub) IsConnected() bool { return h.connected }

type fakeStore struct{ pingErr error }

func (s *fakeStore) Append(context.Context, *eventlog.Record) error { return nil }
func (s *fakeStore) List(context.Context, string, time.Time, int) ([]*eventlog.Record, error) {
	return nil, nil
}
func (s *fakeStore) Prune(context.Context, time.Time) (int, error) { return 0, nil }
func (s *fakeStore) Ping(context.Context) error                    { return s.pingErr }
func (s *fakeStore) Close() error                                  { return nil }

func TestHealthEndpoint(t *testing.T) {
	hs := NewHealthServer(&fakeHub{connected: true}, &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	hs.GetHandler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestHealthMethodNotAllowed(t *testing.T) {
	hs := NewHealthServer(&fakeHub{}, &fakeStore{})

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec := httptest.NewRecorder()
	hs.GetHandler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestReadyWhenConnected(t *testing.T) {
	hs := NewHealthServer(&fakeHub{connected: true}, &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	hs.GetHandler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "connected", resp.Checks["pubsub"])
	assert.Equal(t, "ok", resp.Checks["eventlog"])
}

func TestNotReadyWhenDisconnected(t *testing.T) {
	hs := NewHealthServer(&fakeHub{connected: false}, &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	hs.GetHandler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not ready", resp.Status)
	assert.Equal(t, "disconnected", resp.Checks["pubsub"])
}

func TestNotReadyWhenStoreUnreachable(t *testing.T) {
	hs := NewHealthServer(&fakeHub{connected: true}, &fakeStore{pingErr: errors.New("down")})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	hs.GetHandler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	hs := NewHealthServer(&fakeHub{connected: true}, &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	hs.GetHandler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dishpatch_")
}
