package events

import (
	"encoding/json"

	"github.com/pkg/errors"
)

type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewEnvelope(typ string, payload any) (Envelope, error) {
	if typ == "" {
		return Envelope{}, errors.New("empty envelope type")
	}
	if payload == nil {
		return Envelope{Type: typ}, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, errors.Wrap(err, "marshal envelope payload")
	}
	return Envelope{Type: typ, Payload: b}, nil
}

func (e Envelope) MarshalJSONBytes() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, "marshal envelope")
	}
	return b, nil
}

func ParseEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, errors.Wrap(err, "unmarshal envelope")
	}
	return env, nil
}

// Event types published during a run.
const (
	TypeRunStarted     = "run.started"
	TypeServiceStarted = "service.started"
	TypeServiceFailed  = "service.failed"
	TypeHealthResult   = "health.result"
	TypeServiceStopped = "service.stopped"
	TypeRunFinished    = "run.finished"
)

type RunStarted struct {
	Mode     string   `json:"mode"` // "start" | "stop"
	Services []string `json:"services"`
}

type ServiceStarted struct {
	Service string `json:"service"`
	PID     int    `json:"pid"`
}

type ServiceFailed struct {
	Service string `json:"service"`
	Error   string `json:"error"`
}

type HealthResult struct {
	Service string `json:"service"`
	Status  string `json:"status"`
}

type ServiceStopped struct {
	Service    string `json:"service"`
	Terminated int    `json:"terminated"`
}

type RunFinished struct {
	Mode    string `json:"mode"`
	Overall string `json:"overall"`
}
