package handlers

import (
	"context"
	"math"

	"github.com/charging-platform/ocpp-central-system/internal/events"
	"github.com/charging-platform/ocpp-central-system/internal/ocpp/validate"
	"github.com/charging-platform/ocpp-central-system/internal/session"
)

// stopTransaction implements spec.md §4.5 StopTransaction, including its
// connector-resolution-by-either-idTag-or-transactionId rule and the
// idTag-absent unconditional-accept branch.
func stopTransaction(deps *Deps) Handler {
	return func(ctx context.Context, s *session.Session, uid string, fields validate.Fields) ([]byte, error) {
		if _, v := fields.RequiredInt("meterStop", 0, math.MaxInt32); v != nil {
			return violationFrame(uid, v)
		}
		at, v := fields.RequiredDateTime("timestamp")
		if v != nil {
			return violationFrame(uid, v)
		}
		transactionID, v := fields.RequiredInt("transactionId", 0, math.MaxInt32)
		if v != nil {
			return violationFrame(uid, v)
		}
		idTag, hasIDTag, v := fields.OptionalString("idTag", deps.OCPP.IdTagLen)
		if v != nil {
			return violationFrame(uid, v)
		}
		if _, _, v := fields.OptionalEnum("reason", stopReasons); v != nil {
			return violationFrame(uid, v)
		}
		if rawTxData, v := fields.OptionalArray("transactionData"); v != nil {
			return violationFrame(uid, v)
		} else {
			for _, raw := range rawTxData {
				td, v := validate.ParseObject(raw)
				if v != nil {
					return violationFrame(uid, v)
				}
				if _, v := td.RequiredDateTime("timestamp"); v != nil {
					return violationFrame(uid, v)
				}
				if _, v := td.RequiredArray("sampledValue"); v != nil {
					return violationFrame(uid, v)
				}
			}
		}

		connector := resolveStopConnector(s, idTag, int64(transactionID))

		status := ""
		if hasIDTag {
			status = "Invalid"
			if deps.AllowList.IsIDTagAllowed(ctx, idTag) && connector != 0 &&
				idTag == s.ActiveIdTags[connector] && idTag == s.LastAuthorizedIdTag {
				status = "Accepted"
			}
		}

		if connector != 0 {
			s.ActiveIdTags[connector] = session.NoCharging
			s.ActiveTransactions[connector] = session.NoTransaction
			reason, _, _ := fields.OptionalEnum("reason", stopReasons)
			deps.Store.InsertTransaction(ctx, s.ChargerID, "Stop", connector, at, reason)
		}

		deps.Events.Publish(events.New(events.TypeTransactionStopped, s.ChargerID, map[string]interface{}{
			"transactionId": transactionID,
			"connectorId":   connector,
			"status":        status,
		}))
		publish(deps, snapshotForConnectors(s, "stopTransaction"))

		reply := map[string]interface{}{}
		if hasIDTag {
			reply["idTagInfo"] = map[string]interface{}{"status": status}
		}
		return result(uid, reply)
	}
}

// resolveStopConnector finds the connector this StopTransaction targets
// by idTag match or transactionId match, per spec.md §4.5. Returns 0
// (unresolved) if neither matches.
func resolveStopConnector(s *session.Session, idTag string, transactionID int64) int {
	for c := 1; c <= s.NumConnectors(); c++ {
		if idTag != "" && s.ActiveIdTags[c] == idTag {
			return c
		}
		if s.ActiveTransactions[c] == transactionID {
			return c
		}
	}
	return 0
}
