package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/charging-platform/ocpp-central-system/internal/ocpp/envelope"
	"github.com/charging-platform/ocpp-central-system/internal/session"
)

func TestStatusNotification_AvailableClearsConnector(t *testing.T) {
	deps, _, st, _, _ := newTestDeps()
	h := statusNotification(deps)
	s := newTestSessionForHandlers()
	s.ActiveIdTags[1] = "GOODTAG"
	s.ActiveTransactions[1] = 9

	env := call(t, h, s, "uid-1", `{"connectorId":1,"status":"Available","errorCode":"NoError"}`)

	assert.Equal(t, envelope.CALLRESULT, env.Type)
	assert.Equal(t, session.ConnectorAvailable, s.Connectors[1])
	assert.Equal(t, session.NoCharging, s.ActiveIdTags[1])
	assert.Equal(t, int64(session.NoTransaction), s.ActiveTransactions[1])
	assert.Equal(t, []string{"Available"}, st.statuses)
}

func TestStatusNotification_ChargingBindsCurrentTransactionID(t *testing.T) {
	deps, _, st, _, _ := newTestDeps()
	h := statusNotification(deps)
	s := newTestSessionForHandlers()
	s.NextTransactionID() // simulates a prior StartTransaction minting id 1

	env := call(t, h, s, "uid-1", `{"connectorId":1,"status":"Charging","errorCode":"NoError"}`)

	assert.Equal(t, envelope.CALLRESULT, env.Type)
	assert.Equal(t, int64(1), s.ActiveTransactions[1])
	assert.Equal(t, []string{"Start"}, st.transactions)
}

func TestStatusNotification_UnknownStatusIsPropertyConstraintViolation(t *testing.T) {
	deps, _, _, _, _ := newTestDeps()
	h := statusNotification(deps)
	s := newTestSessionForHandlers()

	env := call(t, h, s, "uid-1", `{"connectorId":1,"status":"NotReal","errorCode":"NoError"}`)

	assert.Equal(t, envelope.CALLERROR, env.Type)
	assert.Equal(t, "PropertyConstraintViolation", env.ErrorCode)
}

func TestStatusNotification_MissingErrorCodeIsProtocolError(t *testing.T) {
	deps, _, _, _, _ := newTestDeps()
	h := statusNotification(deps)
	s := newTestSessionForHandlers()

	env := call(t, h, s, "uid-1", `{"connectorId":1,"status":"Available"}`)

	assert.Equal(t, envelope.CALLERROR, env.Type)
	assert.Equal(t, "ProtocolError", env.ErrorCode)
}

func TestStatusNotification_ConnectorZeroIsWholeChargePoint(t *testing.T) {
	deps, _, _, _, _ := newTestDeps()
	h := statusNotification(deps)
	s := newTestSessionForHandlers()

	env := call(t, h, s, "uid-1", `{"connectorId":0,"status":"Faulted","errorCode":"GroundFailure"}`)

	assert.Equal(t, envelope.CALLRESULT, env.Type)
	assert.Equal(t, session.ConnectorFaulted, s.Connectors[0])
}
