package handlers

import (
	"context"

	"github.com/charging-platform/ocpp-central-system/internal/events"
	"github.com/charging-platform/ocpp-central-system/internal/ocpp/validate"
	"github.com/charging-platform/ocpp-central-system/internal/session"
)

// optionalBootField reads one of BootNotification's optional fields,
// bounded to 20 chars (spec.md §4.5 BootNotification).
func optionalBootField(fields validate.Fields, key string) (string, *validate.Violation) {
	v, ok, violation := fields.OptionalString(key, 20)
	if violation != nil {
		return "", violation
	}
	if !ok {
		return "", nil
	}
	return v, nil
}

func bootNotification(deps *Deps) Handler {
	return func(ctx context.Context, s *session.Session, uid string, fields validate.Fields) ([]byte, error) {
		vendor, v := fields.RequiredString("chargePointVendor", 20)
		if v != nil {
			return violationFrame(uid, v)
		}
		model, v := fields.RequiredString("chargePointModel", 20)
		if v != nil {
			return violationFrame(uid, v)
		}

		for _, key := range []string{"chargePointSerialNumber", "chargeBoxSerialNumber", "firmwareVersion", "iccid", "imsi", "meterType", "meterSerialNumber"} {
			if _, v := optionalBootField(fields, key); v != nil {
				return violationFrame(uid, v)
			}
		}

		s.BootStatus = session.BootAccepted
		s.Vendor = vendor
		s.Model = model

		deps.Events.Publish(events.New(events.TypeChargerBooted, s.ChargerID, map[string]interface{}{
			"vendor": vendor,
			"model":  model,
		}))
		publish(deps, bootSnapshot(s))

		return result(uid, map[string]interface{}{
			"status":      "Accepted",
			"currentTime": nowRFC3339(),
			"interval":    int(deps.OCPP.HeartbeatInterval.Seconds()),
		})
	}
}
