package registry

import (
	"fmt"
	"sort"
	"time"
)

// ServiceSpec describes one managed service. Specs are read-only once a
// Registry has been constructed from them.
type ServiceSpec struct {
	Name    string            `json:"name"`
	Order   int               `json:"order"`
	Command []string          `json:"command"`
	Dir     string            `json:"dir,omitempty"`
	LogPath string            `json:"log,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Health  *HealthCheck      `json:"health,omitempty"`

	// MatchPattern is a plain substring matched against the space-joined
	// command line of live processes. Anything matching is terminated
	// before this service is started, and again on stop.
	MatchPattern string `json:"match,omitempty"`
}

// HealthCheck is the readiness contract for a service. Either ExpectField /
// ExpectValue (a top-level JSON field compared as a string) or Expr (a JS
// expression over `body` and `code`) decides success; with neither set, any
// 2xx response counts.
type HealthCheck struct {
	URL         string        `json:"url"`
	ExpectField string        `json:"expect_field,omitempty"`
	ExpectValue string        `json:"expect_value,omitempty"`
	Expr        string        `json:"expr,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
	Interval    time.Duration `json:"interval,omitempty"`
	MaxAttempts int           `json:"max_attempts,omitempty"`
}

// ConfigError marks a malformed registry. It is the only error class that
// aborts a run before any process is touched.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Reason
}

func configErrorf(format string, args ...any) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// Registry is the fixed, ordered catalog of services to manage.
type Registry struct {
	specs []ServiceSpec
}

// New validates the specs and returns a Registry. Duplicate names or orders,
// empty names, and empty commands are ConfigErrors.
func New(specs []ServiceSpec) (*Registry, error) {
	seenName := map[string]bool{}
	seenOrder := map[int]string{}
	out := make([]ServiceSpec, 0, len(specs))

	for _, s := range specs {
		if s.Name == "" {
			return nil, configErrorf("service with order %d has no name", s.Order)
		}
		if len(s.Command) == 0 {
			return nil, configErrorf("service %q has no command", s.Name)
		}
		if seenName[s.Name] {
			return nil, configErrorf("duplicate service name %q", s.Name)
		}
		if other, ok := seenOrder[s.Order]; ok {
			return nil, configErrorf("services %q and %q share order %d", other, s.Name, s.Order)
		}
		if s.Health != nil && s.Health.URL == "" {
			return nil, configErrorf("service %q declares a health check without a url", s.Name)
		}
		seenName[s.Name] = true
		seenOrder[s.Order] = s.Name
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return &Registry{specs: out}, nil
}

// List returns the specs sorted ascending by Order. The returned slice is a
// copy; callers cannot mutate the registry through it.
func (r *Registry) List() []ServiceSpec {
	out := make([]ServiceSpec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Lookup returns the spec for name, if registered.
func (r *Registry) Lookup(name string) (ServiceSpec, bool) {
	for _, s := range r.specs {
		if s.Name == name {
			return s, true
		}
	}
	return ServiceSpec{}, false
}

// Names returns the registered service names in start order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s.Name)
	}
	return out
}
