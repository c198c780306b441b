package handlers

import (
	"context"

	"github.com/charging-platform/ocpp-central-system/internal/ocpp/validate"
	"github.com/charging-platform/ocpp-central-system/internal/session"
)

// heartbeat implements spec.md §4.5 Heartbeat: payload must be the empty
// object; reply carries only the current time.
func heartbeat(deps *Deps) Handler {
	return func(ctx context.Context, s *session.Session, uid string, fields validate.Fields) ([]byte, error) {
		if len(fields) != 0 {
			return violationFrame(uid, validate.New(validate.ProtocolError))
		}
		return result(uid, map[string]interface{}{"currentTime": nowRFC3339()})
	}
}
