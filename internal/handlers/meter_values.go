package handlers

import (
	"context"
	"math"
	"time"

	"github.com/charging-platform/ocpp-central-system/internal/events"
	"github.com/charging-platform/ocpp-central-system/internal/ocpp/validate"
	"github.com/charging-platform/ocpp-central-system/internal/session"
)

// meterValues implements spec.md §4.5 MeterValues: each accepted sample
// is appended to persistence as (chargerId, connectorId, transactionId,
// timestamp, value, unit, measurand, context).
func meterValues(deps *Deps) Handler {
	return func(ctx context.Context, s *session.Session, uid string, fields validate.Fields) ([]byte, error) {
		connectorID, v := fields.RequiredInt("connectorId", 0, math.MaxInt32)
		if v != nil {
			return violationFrame(uid, v)
		}
		transactionID, hasTx, v := fields.OptionalInt("transactionId", 0, math.MaxInt32)
		if v != nil {
			return violationFrame(uid, v)
		}
		if !hasTx {
			transactionID = int(session.NoTransaction)
		}

		rawMeterValues, v := fields.RequiredArray("meterValue")
		if v != nil {
			return violationFrame(uid, v)
		}

		type sample struct {
			at        time.Time
			value     string
			unit      string
			measurand string
			context   string
		}
		var samples []sample

		for _, rawMV := range rawMeterValues {
			mv, v := validate.ParseObject(rawMV)
			if v != nil {
				return violationFrame(uid, v)
			}
			ts, v := mv.RequiredDateTime("timestamp")
			if v != nil {
				return violationFrame(uid, v)
			}
			rawSampled, v := mv.RequiredArray("sampledValue")
			if v != nil {
				return violationFrame(uid, v)
			}

			for _, rawSV := range rawSampled {
				sv, v := validate.ParseObject(rawSV)
				if v != nil {
					return violationFrame(uid, v)
				}
				value, v := sv.RequiredString("value", 500)
				if v != nil {
					return violationFrame(uid, v)
				}
				sampleContext, _, v := sv.OptionalEnum("context", sampledValueContexts)
				if v != nil {
					return violationFrame(uid, v)
				}
				if _, _, v := sv.OptionalEnum("format", sampledValueFormats); v != nil {
					return violationFrame(uid, v)
				}
				measurand, _, v := sv.OptionalEnum("measurand", sampledValueMeasurands)
				if v != nil {
					return violationFrame(uid, v)
				}
				if _, _, v := sv.OptionalEnum("phase", sampledValuePhases); v != nil {
					return violationFrame(uid, v)
				}
				if _, _, v := sv.OptionalEnum("location", sampledValueLocations); v != nil {
					return violationFrame(uid, v)
				}
				unit, _, v := sv.OptionalEnum("unit", sampledValueUnits)
				if v != nil {
					return violationFrame(uid, v)
				}

				samples = append(samples, sample{
					at:        ts,
					value:     value,
					unit:      unit,
					measurand: measurand,
					context:   sampleContext,
				})
			}
		}

		for _, smp := range samples {
			deps.Store.InsertMeterValue(ctx, s.ChargerID, connectorID, int64(transactionID), smp.at, smp.value, smp.unit, smp.measurand, smp.context)
		}

		deps.Events.Publish(events.New(events.TypeMeterValuesReceived, s.ChargerID, map[string]interface{}{
			"connectorId":   connectorID,
			"transactionId": transactionID,
			"samples":       len(samples),
		}))
		publish(deps, snapshotForConnectors(s, "meterValues"))

		return result(uid, map[string]interface{}{})
	}
}
