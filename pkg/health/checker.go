// Package health polls service liveness endpoints with a bounded retry
// budget. A check never returns an error: connection failures and bad
// responses are failed attempts, consumed against the contract's budget.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dop251/goja"
	"github.com/dukyai/voicectl/pkg/registry"
	"github.com/rs/zerolog/log"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusTimeout   Status = "timeout"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultInterval    = 2 * time.Second
	defaultMaxAttempts = 30
	maxBodyBytes       = 1 << 20
)

type Checker struct {
	client *http.Client
}

func NewChecker() *Checker {
	return &Checker{client: &http.Client{}}
}

// Check polls hc.URL until the contract's predicate is satisfied or the
// attempt budget runs out. A nil contract is immediately Healthy (nothing to
// verify). Exhausting the budget is Timeout, whether the endpoint stayed
// silent or kept answering without satisfying the predicate.
func (c *Checker) Check(ctx context.Context, service string, hc *registry.HealthCheck) Status {
	if hc == nil {
		return StatusHealthy
	}

	timeout := hc.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	interval := hc.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	attempts := hc.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	var prog *goja.Program
	if hc.Expr != "" {
		var err error
		prog, err = goja.Compile("health-expr", hc.Expr, false)
		if err != nil {
			// A predicate that cannot compile can never pass; the attempts
			// would only burn the budget.
			log.Error().Err(err).Str("service", service).Msg("health expression does not compile")
			return StatusUnhealthy
		}
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		ok, _ := c.attempt(ctx, service, hc, prog, timeout)
		if ok {
			log.Debug().Str("service", service).Int("attempt", attempt).Msg("health check passed")
			return StatusHealthy
		}
		log.Debug().Str("service", service).Int("attempt", attempt).Int("max_attempts", attempts).Msg("health check attempt failed")

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return StatusTimeout
		case <-time.After(interval):
		}
	}

	return StatusTimeout
}

// Probe performs a single attempt against the contract, for on-demand status
// queries. Healthy on success, Unhealthy when the endpoint answered but
// failed the predicate, Timeout when it did not answer.
func (c *Checker) Probe(ctx context.Context, service string, hc *registry.HealthCheck) Status {
	if hc == nil {
		return StatusHealthy
	}
	timeout := hc.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var prog *goja.Program
	if hc.Expr != "" {
		var err error
		prog, err = goja.Compile("health-expr", hc.Expr, false)
		if err != nil {
			return StatusUnhealthy
		}
	}

	ok, responded := c.attempt(ctx, service, hc, prog, timeout)
	switch {
	case ok:
		return StatusHealthy
	case responded:
		return StatusUnhealthy
	default:
		return StatusTimeout
	}
}

// attempt performs one probe. The second return reports whether an HTTP
// response was received at all.
func (c *Checker) attempt(ctx context.Context, service string, hc *registry.HealthCheck, prog *goja.Program, timeout time.Duration) (bool, bool) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, hc.URL, nil)
	if err != nil {
		return false, false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, false
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return false, true
	}

	if prog != nil {
		return evalExpr(service, prog, body, resp.StatusCode), true
	}

	if hc.ExpectField != "" {
		var parsed map[string]any
		if err := json.Unmarshal(body, &parsed); err != nil {
			return false, true
		}
		v, ok := parsed[hc.ExpectField]
		if !ok {
			return false, true
		}
		return fmt.Sprint(v) == hc.ExpectValue, true
	}

	return resp.StatusCode >= 200 && resp.StatusCode < 300, true
}

// evalExpr runs the JS predicate with `body` (parsed JSON when possible,
// raw string otherwise) and `code` in scope.
func evalExpr(service string, prog *goja.Program, body []byte, code int) bool {
	vm := goja.New()

	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		parsed = string(body)
	}
	if err := vm.Set("body", parsed); err != nil {
		return false
	}
	if err := vm.Set("code", code); err != nil {
		return false
	}

	v, err := vm.RunProgram(prog)
	if err != nil {
		log.Debug().Err(err).Str("service", service).Msg("health expression raised")
		return false
	}
	return v.ToBoolean()
}
