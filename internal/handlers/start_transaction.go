package handlers

import (
	"context"

	"github.com/charging-platform/ocpp-central-system/internal/events"
	"github.com/charging-platform/ocpp-central-system/internal/ocpp/validate"
	"github.com/charging-platform/ocpp-central-system/internal/session"
)

// startTransaction implements spec.md §4.5 StartTransaction's four-branch
// policy. transactionId is allocated in every branch, including rejection
// (DESIGN.md's Open Question decision: implemented as observed, not
// "fixed").
func startTransaction(deps *Deps) Handler {
	return func(ctx context.Context, s *session.Session, uid string, fields validate.Fields) ([]byte, error) {
		connectorID, v := fields.RequiredInt("connectorId", 1, s.NumConnectors())
		if v != nil {
			return violationFrame(uid, v)
		}
		idTag, v := fields.RequiredString("idTag", deps.OCPP.IdTagLen)
		if v != nil {
			return violationFrame(uid, v)
		}
		if _, v := fields.RequiredInt("meterStart", 0, 1<<31-1); v != nil {
			return violationFrame(uid, v)
		}
		if _, v := fields.RequiredDateTime("timestamp"); v != nil {
			return violationFrame(uid, v)
		}
		if _, _, v := fields.OptionalInt("reservationId", 0, 1<<31-1); v != nil {
			return violationFrame(uid, v)
		}

		status := "Accepted"
		switch {
		case !deps.AllowList.IsIDTagAllowed(ctx, idTag) || idTag != s.LastAuthorizedIdTag:
			status = "Invalid"
		case s.ActiveTransactions[connectorID] != session.NoTransaction || s.IdTagInUse(idTag, connectorID):
			status = "ConcurrentTx"
		case s.Connectors[0] == session.ConnectorUnavailable || s.Connectors[connectorID].NonChargeable():
			status = "Invalid"
		}

		transactionID := s.NextTransactionID()
		if status == "Accepted" {
			s.ActiveIdTags[connectorID] = idTag
		}

		deps.Events.Publish(events.New(events.TypeTransactionStarted, s.ChargerID, map[string]interface{}{
			"connectorId":   connectorID,
			"transactionId": transactionID,
			"idTag":         idTag,
			"status":        status,
		}))
		publish(deps, snapshotForConnectors(s, "startTransaction"))

		return result(uid, map[string]interface{}{
			"transactionId": transactionID,
			"idTagInfo":     map[string]interface{}{"status": status},
		})
	}
}
