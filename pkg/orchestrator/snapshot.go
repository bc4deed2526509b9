package orchestrator

import (
	"context"

	"github.com/dukyai/voicectl/pkg/health"
	"github.com/dukyai/voicectl/pkg/proc"
)

// ServiceSnapshot is the observed state of one registered service at a point
// in time, derived from live pattern matching rather than remembered PIDs.
type ServiceSnapshot struct {
	Name   string            `json:"name"`
	Order  int               `json:"order"`
	PIDs   []int             `json:"pids,omitempty"`
	Alive  bool              `json:"alive"`
	Stats  *proc.Stats       `json:"stats,omitempty"`
	Health health.Status     `json:"health,omitempty"`
	Log    string            `json:"log,omitempty"`
	Env    map[string]string `json:"env,omitempty"`
}

// Snapshot inspects every registered service: live PIDs by pattern match,
// process stats for the primary PID, and (when probe is set) a single
// on-demand health probe for services that declare a contract. tracker may
// be nil; passing the same tracker across calls yields CPU percentages.
func (o *Orchestrator) Snapshot(ctx context.Context, probe bool, tracker *proc.CPUTracker) []ServiceSnapshot {
	specs := o.reg.List()
	out := make([]ServiceSnapshot, 0, len(specs))

	for _, spec := range specs {
		snap := ServiceSnapshot{
			Name:  spec.Name,
			Order: spec.Order,
			Log:   spec.LogPath,
			Env:   spec.RedactedEnv(),
		}
		if spec.MatchPattern != "" {
			snap.PIDs = proc.Match(spec.MatchPattern)
		}
		snap.Alive = len(snap.PIDs) > 0

		if snap.Alive {
			if st, err := proc.ReadStats(snap.PIDs[0], tracker); err == nil {
				snap.Stats = st
			}
		}

		if probe && spec.Health != nil {
			if snap.Alive {
				snap.Health = o.checker.Probe(ctx, spec.Name, spec.Health)
			} else {
				snap.Health = health.StatusTimeout
			}
		}
		out = append(out, snap)
	}
	return out
}
