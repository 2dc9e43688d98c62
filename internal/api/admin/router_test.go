package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/catpoint/internal/codec"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/events"
)

// fakeState returns a fixed snapshot or error.
type fakeState struct {
	snapshot *domain.Snapshot
	err      error
}

func (f *fakeState) Snapshot(context.Context) (*domain.Snapshot, error) {
	return f.snapshot, f.err
}

// fakeHistory records the requested limit.
type fakeHistory struct {
	events []events.Event
	limit  int64
	err    error
}

func (f *fakeHistory) Recent(_ context.Context, limit int64) ([]events.Event, error) {
	f.limit = limit

	return f.events, f.err
}

// serve performs a GET request against the router.
func serve(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, target, nil))

	return recorder
}

// TestRouter_Health checks the liveness endpoint.
func TestRouter_Health(t *testing.T) {
	t.Parallel()

	router := NewRouter(Options{State: new(fakeState), Gatherer: prometheus.NewRegistry()})

	recorder := serve(t, router, "/healthz")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{"status":"ok"}`, recorder.Body.String())
}

// TestRouter_Status renders the snapshot as the state file document.
func TestRouter_Status(t *testing.T) {
	t.Parallel()

	want := &domain.Snapshot{
		ArmingStatus: domain.ArmingStatusArmedHome,
		AlarmStatus:  domain.AlarmStatusPending,
		Sensors:      []domain.Sensor{{Name: "front", Type: domain.SensorTypeDoor, Active: true}},
	}

	router := NewRouter(Options{State: &fakeState{snapshot: want}, Gatherer: prometheus.NewRegistry()})

	recorder := serve(t, router, "/status")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	got, err := codec.UnmarshalSnapshot(recorder.Body.Bytes())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

// TestRouter_StatusError hides the underlying failure.
func TestRouter_StatusError(t *testing.T) {
	t.Parallel()

	router := NewRouter(Options{State: &fakeState{err: errors.New("disk on fire")}, Gatherer: prometheus.NewRegistry()})

	recorder := serve(t, router, "/status")
	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	require.NotContains(t, recorder.Body.String(), "disk on fire")
}

// TestRouter_Metrics exposes the provided registry.
func TestRouter_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "catpoint_test_total", Help: "Test counter."})
	reg.MustRegister(counter)
	counter.Inc()

	router := NewRouter(Options{State: new(fakeState), Gatherer: reg})

	recorder := serve(t, router, "/metrics")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), "catpoint_test_total 1")
}

// TestRouter_Events covers the history endpoint and its limit parameter.
func TestRouter_Events(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{events: []events.Event{{ID: "1", Kind: events.KindAlarmStatus, AlarmStatus: domain.AlarmStatusAlarm}}}
	router := NewRouter(Options{State: new(fakeState), Gatherer: prometheus.NewRegistry(), Events: history})

	recorder := serve(t, router, "/events")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, int64(defaultEventLimit), history.limit)

	var got []events.Event
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, domain.AlarmStatusAlarm, got[0].AlarmStatus)

	recorder = serve(t, router, "/events?limit=5")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, int64(5), history.limit)

	recorder = serve(t, router, "/events?limit=zero")
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	history.err = errors.New("redis gone")
	recorder = serve(t, router, "/events")
	require.Equal(t, http.StatusBadGateway, recorder.Code)
}

// TestRouter_EventsDisabled returns 404 without an event history.
func TestRouter_EventsDisabled(t *testing.T) {
	t.Parallel()

	router := NewRouter(Options{State: new(fakeState), Gatherer: prometheus.NewRegistry()})

	recorder := serve(t, router, "/events")
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

// TestRouter_RateLimit rejects clients above the budget.
func TestRouter_RateLimit(t *testing.T) {
	t.Parallel()

	router := NewRouter(Options{State: new(fakeState), Gatherer: prometheus.NewRegistry(), RequestLimit: 2})

	require.Equal(t, http.StatusOK, serve(t, router, "/healthz").Code)
	require.Equal(t, http.StatusOK, serve(t, router, "/healthz").Code)

	recorder := serve(t, router, "/healthz")
	require.Equal(t, http.StatusTooManyRequests, recorder.Code)
	require.Equal(t, "60", recorder.Header().Get("Retry-After"))
}
