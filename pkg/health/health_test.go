package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing() CheckFunc {
	return func(_ context.Context) error { return nil }
}

func failing(msg string) CheckFunc {
	return func(_ context.Context) error { return errors.New(msg) }
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) statusResponse {
	t.Helper()
	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestLiveEndpoint_AllPassing(t *testing.T) {
	tr := New()
	tr.AddLiveness("goroutines", time.Second, passing())

	w := httptest.NewRecorder()
	tr.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeStatus(t, w).Status)
}

func TestLiveEndpoint_FailureThreshold(t *testing.T) {
	tr := New()
	tr.AddLiveness("db", time.Second, failing("connection refused"))
	p := tr.liveness[0]
	ctx := context.Background()

	// Two failures stay under the threshold of three.
	p.run(ctx)
	p.run(ctx)

	w := httptest.NewRecorder()
	tr.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	p.run(ctx)

	w = httptest.NewRecorder()
	tr.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	body := decodeStatus(t, w)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["db"])
}

func TestProbeRecovery(t *testing.T) {
	down := true
	tr := New()
	tr.AddLiveness("flaky", time.Second, func(_ context.Context) error {
		if down {
			return errors.New("down")
		}
		return nil
	})
	p := tr.liveness[0]
	ctx := context.Background()

	for range 3 {
		p.run(ctx)
	}
	_, failed := p.failure()
	require.True(t, failed)

	down = false
	p.run(ctx)
	_, failed = p.failure()
	assert.False(t, failed, "one pass should recover the probe")
}

func TestReadyEndpoint_NotReadyByDefault(t *testing.T) {
	tr := New()
	tr.AddReadiness("postgres", time.Second, passing())

	w := httptest.NewRecorder()
	tr.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, decodeStatus(t, w).Checks, "_readiness")
}

func TestReadyEndpoint_ReadyAndPassing(t *testing.T) {
	tr := New()
	tr.AddReadiness("postgres", time.Second, passing())
	tr.SetReady(true)

	w := httptest.NewRecorder()
	tr.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyEndpoint_FailingDependency(t *testing.T) {
	tr := New()
	tr.AddReadiness("postgres", time.Second, passing())
	tr.AddReadiness("cache", time.Second, failing("cache down"))
	tr.SetReady(true)

	ctx := context.Background()
	for range 3 {
		tr.readiness[1].run(ctx)
	}

	w := httptest.NewRecorder()
	tr.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeStatus(t, w)
	assert.Contains(t, body.Checks, "cache")
	assert.NotContains(t, body.Checks, "postgres")
}

func TestIsReady(t *testing.T) {
	tr := New()
	tr.AddReadiness("postgres", time.Second, passing())

	assert.False(t, tr.IsReady())

	tr.SetReady(true)
	assert.True(t, tr.IsReady())

	tr.SetReady(false)
	assert.False(t, tr.IsReady())
}

func TestStartStop(t *testing.T) {
	tr := New()
	ran := make(chan struct{}, 1)
	tr.AddLiveness("probe", time.Second, func(_ context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	tr.Start(context.Background(), 10*time.Millisecond)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("probe never ran")
	}

	tr.Stop()
	tr.Stop()
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestPingCheck(t *testing.T) {
	ok := PingCheck(pingFunc(func(_ context.Context) error { return nil }))
	assert.NoError(t, ok(context.Background()))

	bad := PingCheck(pingFunc(func(_ context.Context) error {
		return errors.New("refused")
	}))
	err := bad(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")
}
