package handlers

import (
	"context"

	"github.com/charging-platform/ocpp-central-system/internal/events"
	"github.com/charging-platform/ocpp-central-system/internal/ocpp/validate"
	"github.com/charging-platform/ocpp-central-system/internal/session"
)

func authorize(deps *Deps) Handler {
	return func(ctx context.Context, s *session.Session, uid string, fields validate.Fields) ([]byte, error) {
		idTag, v := fields.RequiredString("idTag", deps.OCPP.IdTagLen)
		if v != nil {
			return violationFrame(uid, v)
		}

		status := "Invalid"
		if deps.AllowList.IsIDTagAllowed(ctx, idTag) {
			status = "Accepted"
			s.LastAuthorizedIdTag = idTag
		}

		deps.Events.Publish(events.New(events.TypeAuthorizationDecided, s.ChargerID, map[string]interface{}{
			"idTag":  idTag,
			"status": status,
		}))
		publish(deps, snapshotForConnectors(s, "authorize"))

		return result(uid, map[string]interface{}{
			"idTagInfo": map[string]interface{}{"status": status},
		})
	}
}
