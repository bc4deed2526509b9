package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukyai/voicectl/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contract(url string) *registry.HealthCheck {
	return &registry.HealthCheck{
		URL:         url,
		ExpectField: "status",
		ExpectValue: "ok",
		Timeout:     500 * time.Millisecond,
		Interval:    20 * time.Millisecond,
		MaxAttempts: 3,
	}
}

func TestCheck_NilContractIsHealthy(t *testing.T) {
	c := NewChecker()
	assert.Equal(t, StatusHealthy, c.Check(context.Background(), "proxy", nil))
}

func TestCheck_FieldPredicate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","model":"medium"}`))
	}))
	defer srv.Close()

	c := NewChecker()
	assert.Equal(t, StatusHealthy, c.Check(context.Background(), "whisper", contract(srv.URL)))
}

func TestCheck_FieldPredicateNeverSatisfied(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"status":"loading"}`))
	}))
	defer srv.Close()

	c := NewChecker()
	status := c.Check(context.Background(), "tts", contract(srv.URL))
	assert.Equal(t, StatusTimeout, status)
	assert.Equal(t, int32(3), calls.Load(), "budget must be consumed")
}

func TestCheck_EventuallyHealthy(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			_, _ = w.Write([]byte(`{"status":"loading"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	hc := contract(srv.URL)
	hc.MaxAttempts = 5
	c := NewChecker()
	assert.Equal(t, StatusHealthy, c.Check(context.Background(), "tts", hc))
	assert.Equal(t, int32(3), calls.Load(), "must short-circuit on first success")
}

func TestCheck_ConnectionRefusedIsTimeout(t *testing.T) {
	// Grab a port with no listener behind it.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewChecker()
	assert.Equal(t, StatusTimeout, c.Check(context.Background(), "whisper", contract(url)))
}

func TestCheck_MalformedBodyConsumesBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := NewChecker()
	assert.Equal(t, StatusTimeout, c.Check(context.Background(), "whisper", contract(srv.URL)))
}

func TestCheck_NoPredicateAccepts2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	hc := &registry.HealthCheck{URL: srv.URL, Interval: 10 * time.Millisecond, MaxAttempts: 2}
	c := NewChecker()
	assert.Equal(t, StatusHealthy, c.Check(context.Background(), "proxy", hc))
}

func TestCheck_ExprPredicate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","uptime_seconds":12.5}`))
	}))
	defer srv.Close()

	hc := &registry.HealthCheck{
		URL:         srv.URL,
		Expr:        `code === 200 && body.status === "ok" && body.uptime_seconds > 1`,
		Interval:    10 * time.Millisecond,
		MaxAttempts: 2,
	}
	c := NewChecker()
	assert.Equal(t, StatusHealthy, c.Check(context.Background(), "tts", hc))
}

func TestCheck_ExprCompileErrorIsUnhealthy(t *testing.T) {
	hc := &registry.HealthCheck{
		URL:         "http://127.0.0.1:1/api/health",
		Expr:        `this is not javascript ((`,
		MaxAttempts: 2,
	}
	c := NewChecker()
	assert.Equal(t, StatusUnhealthy, c.Check(context.Background(), "broken", hc))
}

func TestCheck_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"loading"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hc := contract(srv.URL)
	hc.MaxAttempts = 100
	hc.Interval = time.Second

	c := NewChecker()
	start := time.Now()
	status := c.Check(ctx, "whisper", hc)
	require.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, StatusTimeout, status)
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"loading"}`))
	}))
	defer srv.Close()

	c := NewChecker()
	assert.Equal(t, StatusUnhealthy, c.Probe(context.Background(), "tts", contract(srv.URL)))
	assert.Equal(t, StatusHealthy, c.Probe(context.Background(), "proxy", nil))

	down := contract(srv.URL)
	srv.Close()
	assert.Equal(t, StatusTimeout, c.Probe(context.Background(), "tts", down))
}
