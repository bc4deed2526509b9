// Package orchestrator drives the managed stack through a run: launch every
// registered service in order, wait for the stack to settle, verify health
// contracts, and aggregate the outcome. Stop is pattern-based and idempotent.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/dukyai/voicectl/pkg/events"
	"github.com/dukyai/voicectl/pkg/health"
	"github.com/dukyai/voicectl/pkg/launch"
	"github.com/dukyai/voicectl/pkg/registry"
	"github.com/dukyai/voicectl/pkg/report"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type RunState string

const (
	StateIdle           RunState = "idle"
	StateStarting       RunState = "starting"
	StateHealthChecking RunState = "health-checking"
	StateReady          RunState = "ready"
	StateDegraded       RunState = "degraded"
	StateStopping       RunState = "stopping"
)

// Publisher receives lifecycle events during a run. events.Bus satisfies it.
type Publisher interface {
	Publish(typ string, payload any) error
}

type Options struct {
	// Settle is how long to wait after the launch phase before health
	// checking begins. Zero means 5s.
	Settle time.Duration
	// ShutdownTimeout bounds the SIGTERM grace period per termination.
	ShutdownTimeout time.Duration
	// Events, when set, receives lifecycle events. Publish failures are
	// logged, never propagated.
	Events Publisher
}

type Orchestrator struct {
	reg      *registry.Registry
	launcher *launch.Launcher
	checker  *health.Checker
	opts     Options

	mu    sync.Mutex
	state RunState
}

func New(reg *registry.Registry, opts Options) *Orchestrator {
	if opts.Settle <= 0 {
		opts.Settle = 5 * time.Second
	}
	return &Orchestrator{
		reg:      reg,
		launcher: launch.New(launch.Options{ShutdownTimeout: opts.ShutdownTimeout}),
		checker:  health.NewChecker(),
		opts:     opts,
		state:    StateIdle,
	}
}

func (o *Orchestrator) State() RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s RunState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) publish(typ string, payload any) {
	if o.opts.Events == nil {
		return
	}
	if err := o.opts.Events.Publish(typ, payload); err != nil {
		log.Warn().Err(err).Str("event", typ).Msg("publish event")
	}
}

// RunStart launches every registered service in ascending order and health
// checks the stack. A service that fails to spawn is recorded as failed and
// the sequence continues; services are independent processes and one missing
// binary must not hold back the rest.
func (o *Orchestrator) RunStart(ctx context.Context) *report.Report {
	specs := o.reg.List()
	o.setState(StateStarting)
	o.publish(events.TypeRunStarted, events.RunStarted{Mode: "start", Services: o.reg.Names()})

	handles := make(map[string]*launch.Handle, len(specs))
	failures := make(map[string]string, len(specs))

	for _, spec := range specs {
		h, err := o.launcher.Start(ctx, spec)
		if err != nil {
			log.Error().Err(err).Str("service", spec.Name).Msg("launch failed")
			failures[spec.Name] = err.Error()
			o.publish(events.TypeServiceFailed, events.ServiceFailed{Service: spec.Name, Error: err.Error()})
			continue
		}
		handles[spec.Name] = h
		o.publish(events.TypeServiceStarted, events.ServiceStarted{Service: h.ServiceName, PID: h.PID})
	}

	o.setState(StateHealthChecking)
	if o.needsSettle(specs, handles) {
		log.Info().Dur("settle", o.opts.Settle).Msg("waiting for services to settle")
		select {
		case <-ctx.Done():
		case <-time.After(o.opts.Settle):
		}
	}

	statuses := o.checkAll(ctx, specs, handles)

	rep := &report.Report{Services: make([]report.Service, 0, len(specs))}
	ready := true
	for i, spec := range specs {
		svc := report.Service{Name: spec.Name, Order: spec.Order}
		if h, ok := handles[spec.Name]; ok {
			svc.PID = h.PID
		}

		switch {
		case failures[spec.Name] != "":
			svc.Status = report.StatusFailed
			svc.Detail = failures[spec.Name]
			ready = false
		default:
			svc.Status = toReportStatus(statuses[i])
			if svc.Status != report.StatusHealthy {
				ready = false
			}
		}
		o.publish(events.TypeHealthResult, events.HealthResult{Service: spec.Name, Status: string(svc.Status)})
		rep.Services = append(rep.Services, svc)
	}

	if ready {
		rep.Overall = report.OverallReady
		o.setState(StateReady)
	} else {
		rep.Overall = report.OverallDegraded
		o.setState(StateDegraded)
	}
	o.publish(events.TypeRunFinished, events.RunFinished{Mode: "start", Overall: string(rep.Overall)})
	return rep
}

// RunStop terminates every process matching a registered pattern. It always
// succeeds from the caller's perspective; nothing running is the normal idle
// case.
func (o *Orchestrator) RunStop(ctx context.Context) map[string]int {
	specs := o.reg.List()
	o.setState(StateStopping)
	o.publish(events.TypeRunStarted, events.RunStarted{Mode: "stop", Services: o.reg.Names()})

	counts := o.launcher.TerminateAll(ctx, specs)
	for _, spec := range specs {
		o.publish(events.TypeServiceStopped, events.ServiceStopped{Service: spec.Name, Terminated: counts[spec.Name]})
	}

	o.setState(StateIdle)
	o.publish(events.TypeRunFinished, events.RunFinished{Mode: "stop", Overall: string(report.OverallStopped)})
	return counts
}

// needsSettle reports whether any successfully launched service still has a
// health contract to verify; with nothing to check the settle wait is skipped.
func (o *Orchestrator) needsSettle(specs []registry.ServiceSpec, handles map[string]*launch.Handle) bool {
	for _, spec := range specs {
		if spec.Health == nil {
			continue
		}
		if _, ok := handles[spec.Name]; ok {
			return true
		}
	}
	return false
}

// checkAll probes every launched service concurrently. The probes are
// independent read-only requests; their relative order does not matter.
func (o *Orchestrator) checkAll(ctx context.Context, specs []registry.ServiceSpec, handles map[string]*launch.Handle) []health.Status {
	statuses := make([]health.Status, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		if _, ok := handles[spec.Name]; !ok {
			continue
		}
		g.Go(func() error {
			statuses[i] = o.checker.Check(gctx, spec.Name, spec.Health)
			return nil
		})
	}
	_ = g.Wait()
	return statuses
}

func toReportStatus(s health.Status) report.ServiceStatus {
	switch s {
	case health.StatusHealthy:
		return report.StatusHealthy
	case health.StatusUnhealthy:
		return report.StatusUnhealthy
	default:
		return report.StatusTimeout
	}
}
