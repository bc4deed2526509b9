// Package report holds the aggregate outcome of an orchestrator run and
// renders it for the console.
package report

import (
	"encoding/json"

	"github.com/pkg/errors"
)

type ServiceStatus string

const (
	StatusHealthy   ServiceStatus = "healthy"
	StatusUnhealthy ServiceStatus = "unhealthy"
	StatusTimeout   ServiceStatus = "timeout"
	StatusFailed    ServiceStatus = "failed"
	StatusStopped   ServiceStatus = "stopped"
)

type Overall string

const (
	OverallReady    Overall = "ready"
	OverallDegraded Overall = "degraded"
	OverallStopped  Overall = "stopped"
)

type Service struct {
	Name   string        `json:"name"`
	Order  int           `json:"order"`
	PID    int           `json:"pid,omitempty"`
	Status ServiceStatus `json:"status"`
	Detail string        `json:"detail,omitempty"`
}

type Report struct {
	Overall  Overall   `json:"overall"`
	Services []Service `json:"services"`
}

// Degraded reports whether any service missed its contract.
func (r *Report) Degraded() bool {
	return r.Overall == OverallDegraded
}

// Status returns the recorded status for name, or "" if absent.
func (r *Report) Status(name string) ServiceStatus {
	for _, s := range r.Services {
		if s.Name == name {
			return s.Status
		}
	}
	return ""
}

func (r *Report) MarshalIndent() ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal report")
	}
	return b, nil
}
