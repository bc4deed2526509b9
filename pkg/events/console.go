package events

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ThreeDotsLabs/watermill/message"
)

// ConsoleHandler returns a bus handler that narrates run progress to w, one
// line per event.
func ConsoleHandler(w io.Writer) func(*message.Message) error {
	return func(msg *message.Message) error {
		env, err := ParseEnvelope(msg.Payload)
		if err != nil {
			return err
		}

		switch env.Type {
		case TypeRunStarted:
			var ev RunStarted
			if err := json.Unmarshal(env.Payload, &ev); err != nil {
				return err
			}
			fmt.Fprintf(w, "%s: %d service(s)\n", ev.Mode, len(ev.Services))
		case TypeServiceStarted:
			var ev ServiceStarted
			if err := json.Unmarshal(env.Payload, &ev); err != nil {
				return err
			}
			fmt.Fprintf(w, "  started %s (pid %d)\n", ev.Service, ev.PID)
		case TypeServiceFailed:
			var ev ServiceFailed
			if err := json.Unmarshal(env.Payload, &ev); err != nil {
				return err
			}
			fmt.Fprintf(w, "  failed %s: %s\n", ev.Service, ev.Error)
		case TypeHealthResult:
			var ev HealthResult
			if err := json.Unmarshal(env.Payload, &ev); err != nil {
				return err
			}
			fmt.Fprintf(w, "  health %s: %s\n", ev.Service, ev.Status)
		case TypeServiceStopped:
			var ev ServiceStopped
			if err := json.Unmarshal(env.Payload, &ev); err != nil {
				return err
			}
			fmt.Fprintf(w, "  stopped %s (%d terminated)\n", ev.Service, ev.Terminated)
		case TypeRunFinished:
			var ev RunFinished
			if err := json.Unmarshal(env.Payload, &ev); err != nil {
				return err
			}
			fmt.Fprintf(w, "%s finished: %s\n", ev.Mode, ev.Overall)
		}
		return nil
	}
}
