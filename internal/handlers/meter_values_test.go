package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/charging-platform/ocpp-central-system/internal/ocpp/envelope"
)

func TestMeterValues_PersistsEachSample(t *testing.T) {
	deps, _, st, bus, _ := newTestDeps()
	h := meterValues(deps)
	s := newTestSessionForHandlers()

	payload := `{
		"connectorId": 1,
		"transactionId": 42,
		"meterValue": [
			{
				"timestamp": "2026-07-30T10:00:00Z",
				"sampledValue": [
					{"value": "100", "measurand": "Energy.Active.Import.Register", "unit": "Wh"},
					{"value": "230", "measurand": "Voltage", "unit": "V"}
				]
			}
		]
	}`

	env := call(t, h, s, "uid-1", payload)

	assert.Equal(t, envelope.CALLRESULT, env.Type)
	assert.Equal(t, []string{"100", "230"}, st.meterValues)
	assert.Len(t, bus.published, 1)
}

func TestMeterValues_NoTransactionIdDefaultsToNoTransaction(t *testing.T) {
	deps, _, st, _, _ := newTestDeps()
	h := meterValues(deps)
	s := newTestSessionForHandlers()

	payload := `{
		"connectorId": 1,
		"meterValue": [
			{"timestamp": "2026-07-30T10:00:00Z", "sampledValue": [{"value": "1"}]}
		]
	}`

	env := call(t, h, s, "uid-1", payload)

	assert.Equal(t, envelope.CALLRESULT, env.Type)
	assert.Len(t, st.meterValues, 1)
}

func TestMeterValues_UnknownMeasurandIsPropertyConstraintViolation(t *testing.T) {
	deps, _, _, _, _ := newTestDeps()
	h := meterValues(deps)
	s := newTestSessionForHandlers()

	payload := `{
		"connectorId": 1,
		"meterValue": [
			{"timestamp": "2026-07-30T10:00:00Z", "sampledValue": [{"value": "1", "measurand": "NotReal"}]}
		]
	}`

	env := call(t, h, s, "uid-1", payload)

	assert.Equal(t, envelope.CALLERROR, env.Type)
	assert.Equal(t, "PropertyConstraintViolation", env.ErrorCode)
}

func TestMeterValues_MissingMeterValueArrayIsProtocolError(t *testing.T) {
	deps, _, _, _, _ := newTestDeps()
	h := meterValues(deps)
	s := newTestSessionForHandlers()

	env := call(t, h, s, "uid-1", `{"connectorId":1}`)

	assert.Equal(t, envelope.CALLERROR, env.Type)
	assert.Equal(t, "ProtocolError", env.ErrorCode)
}
