package handlers

import (
	"context"
	"time"

	"github.com/charging-platform/ocpp-central-system/internal/events"
	"github.com/charging-platform/ocpp-central-system/internal/ocpp/validate"
	"github.com/charging-platform/ocpp-central-system/internal/session"
)

func statusNotification(deps *Deps) Handler {
	return func(ctx context.Context, s *session.Session, uid string, fields validate.Fields) ([]byte, error) {
		connectorID, v := fields.RequiredInt("connectorId", 0, s.NumConnectors())
		if v != nil {
			return violationFrame(uid, v)
		}
		status, v := fields.RequiredEnum("status", connectorStatuses)
		if v != nil {
			return violationFrame(uid, v)
		}
		errorCode, v := fields.RequiredEnum("errorCode", chargePointErrorCodes)
		if v != nil {
			return violationFrame(uid, v)
		}
		if _, _, v := fields.OptionalString("info", 50); v != nil {
			return violationFrame(uid, v)
		}
		if _, _, v := fields.OptionalString("vendorId", 255); v != nil {
			return violationFrame(uid, v)
		}
		if _, _, v := fields.OptionalString("vendorErrorCode", 50); v != nil {
			return violationFrame(uid, v)
		}
		at := time.Now().UTC()
		if ts, ok, v := optionalDateTime(fields, "timestamp"); v != nil {
			return violationFrame(uid, v)
		} else if ok {
			at = ts
		}

		s.Connectors[connectorID] = session.ConnectorStatus(status)

		switch session.ConnectorStatus(status) {
		case session.ConnectorAvailable:
			s.ActiveIdTags[connectorID] = session.NoCharging
			s.ActiveTransactions[connectorID] = session.NoTransaction
		case session.ConnectorCharging:
			s.ActiveTransactions[connectorID] = s.CurrentTransactionID()
			deps.Store.InsertTransaction(ctx, s.ChargerID, "Start", connectorID, at, "")
		}

		deps.Store.InsertStatus(ctx, s.ChargerID, connectorID, status, at, errorCode)
		deps.Events.Publish(events.New(events.TypeConnectorStatusChanged, s.ChargerID, map[string]interface{}{
			"connectorId": connectorID,
			"status":      status,
			"errorCode":   errorCode,
		}))
		publish(deps, snapshotForConnectors(s, "statusNotification"))

		return result(uid, map[string]interface{}{})
	}
}

func optionalDateTime(fields validate.Fields, key string) (time.Time, bool, *validate.Violation) {
	if _, ok, v := fields.OptionalString(key, 64); v != nil || !ok {
		if v != nil {
			return time.Time{}, false, v
		}
		return time.Time{}, false, nil
	}
	t, v := fields.RequiredDateTime(key)
	if v != nil {
		return time.Time{}, false, v
	}
	return t, true, nil
}
