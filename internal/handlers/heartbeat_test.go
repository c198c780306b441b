package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/charging-platform/ocpp-central-system/internal/ocpp/envelope"
)

func TestHeartbeat_EmptyPayloadReturnsCurrentTime(t *testing.T) {
	deps, _, _, _, _ := newTestDeps()
	h := heartbeat(deps)
	s := newTestSessionForHandlers()

	env := call(t, h, s, "uid-1", `{}`)

	body := payloadOf(t, env)
	assert.NotEmpty(t, body["currentTime"])
}

func TestHeartbeat_NonEmptyPayloadIsProtocolError(t *testing.T) {
	deps, _, _, _, _ := newTestDeps()
	h := heartbeat(deps)
	s := newTestSessionForHandlers()

	env := call(t, h, s, "uid-2", `{"unexpected":"field"}`)

	assert.Equal(t, envelope.CALLERROR, env.Type)
	assert.Equal(t, "ProtocolError", env.ErrorCode)
}
