package dispatch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/charging-platform/ocpp-central-system/internal/handlers"
	"github.com/charging-platform/ocpp-central-system/internal/logger"
	"github.com/charging-platform/ocpp-central-system/internal/ocpp/envelope"
	"github.com/charging-platform/ocpp-central-system/internal/ocpp/validate"
	"github.com/charging-platform/ocpp-central-system/internal/outbound"
	"github.com/charging-platform/ocpp-central-system/internal/session"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.DefaultConfig())
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func testSession() *session.Session {
	var counter int64
	return session.New(1, 2, &counter)
}

func parseEnvelope(t *testing.T, raw []byte) *envelope.Envelope {
	t.Helper()
	env, err := envelope.Parse(raw)
	if err != nil {
		t.Fatalf("reply is not a well-formed envelope: %v", err)
	}
	return env
}

func TestDispatch_MalformedFrameIsFormationViolation(t *testing.T) {
	d := New(handlers.Registry{}, outbound.ResultValidators{}, testLogger(t))
	s := testSession()
	s.BootStatus = session.BootAccepted

	reply := d.Dispatch(context.Background(), s, []byte(`"not an array"`))

	env := parseEnvelope(t, reply)
	assert.Equal(t, envelope.CALLERROR, env.Type)
	assert.Equal(t, "FormationViolation", env.ErrorCode)
}

func TestDispatch_BootGateRejectsNonBootActionsUntilAccepted(t *testing.T) {
	called := false
	h := handlers.Registry{
		"Heartbeat": func(ctx context.Context, s *session.Session, uid string, fields validate.Fields) ([]byte, error) {
			called = true
			return envelope.EmitCallResult(uid, map[string]interface{}{})
		},
	}
	d := New(h, outbound.ResultValidators{}, testLogger(t))
	s := testSession() // BootStatus defaults to Rejected

	reply := d.Dispatch(context.Background(), s, []byte(`[2,"uid-1","Heartbeat",{}]`))

	env := parseEnvelope(t, reply)
	assert.Equal(t, envelope.CALLERROR, env.Type)
	assert.Equal(t, "GenericError", env.ErrorCode)
	assert.False(t, called)
}

func TestDispatch_UnknownActionIsNotSupported(t *testing.T) {
	d := New(handlers.Registry{}, outbound.ResultValidators{}, testLogger(t))
	s := testSession()
	s.BootStatus = session.BootAccepted

	reply := d.Dispatch(context.Background(), s, []byte(`[2,"uid-1","FrobnicateThing",{}]`))

	env := parseEnvelope(t, reply)
	assert.Equal(t, envelope.CALLERROR, env.Type)
	assert.Equal(t, "NotSupported", env.ErrorCode)
}

func TestDispatch_ViolationFromPayloadIsReturned(t *testing.T) {
	h := handlers.Registry{
		"Heartbeat": func(ctx context.Context, s *session.Session, uid string, fields validate.Fields) ([]byte, error) {
			t.Fatal("handler should not be invoked for a malformed CALL payload")
			return nil, nil
		},
	}
	d := New(h, outbound.ResultValidators{}, testLogger(t))
	s := testSession()
	s.BootStatus = session.BootAccepted

	reply := d.Dispatch(context.Background(), s, []byte(`[2,"uid-1","Heartbeat","not an object"]`))

	env := parseEnvelope(t, reply)
	assert.Equal(t, envelope.CALLERROR, env.Type)
}

func TestDispatch_SuccessfulCallReturnsHandlerFrame(t *testing.T) {
	h := handlers.Registry{
		"Heartbeat": func(ctx context.Context, s *session.Session, uid string, fields validate.Fields) ([]byte, error) {
			return envelope.EmitCallResult(uid, map[string]interface{}{"currentTime": "now"})
		},
	}
	d := New(h, outbound.ResultValidators{}, testLogger(t))
	s := testSession()
	s.BootStatus = session.BootAccepted

	reply := d.Dispatch(context.Background(), s, []byte(`[2,"uid-1","Heartbeat",{}]`))

	env := parseEnvelope(t, reply)
	assert.Equal(t, envelope.CALLRESULT, env.Type)
	assert.Equal(t, "uid-1", env.UniqueID)
}

func TestDispatch_CallResultResolvesPendingCallAndRunsValidator(t *testing.T) {
	validated := false
	results := outbound.ResultValidators{
		"Reset": func(ctx context.Context, s *session.Session, payload json.RawMessage) *validate.Violation {
			validated = true
			return nil
		},
	}
	d := New(handlers.Registry{}, results, testLogger(t))
	s := testSession()
	s.PendingCall.Begin("uid-out", "Reset", 0)

	reply := d.Dispatch(context.Background(), s, []byte(`[3,"uid-out",{"status":"Accepted"}]`))

	assert.Nil(t, reply)
	assert.True(t, validated)
	assert.Equal(t, session.Idle, s.PendingCall.State())
}

func TestDispatch_CallResultWithMismatchedUniqueIDIsDiscarded(t *testing.T) {
	called := false
	results := outbound.ResultValidators{
		"Reset": func(ctx context.Context, s *session.Session, payload json.RawMessage) *validate.Violation {
			called = true
			return nil
		},
	}
	d := New(handlers.Registry{}, results, testLogger(t))
	s := testSession()
	s.PendingCall.Begin("uid-out", "Reset", 0)

	reply := d.Dispatch(context.Background(), s, []byte(`[3,"uid-orphan",{}]`))

	assert.Nil(t, reply)
	assert.False(t, called)
	// A uid mismatch still releases the slot (spec.md §3 invariant 3:
	// "mismatches release the slot but are otherwise discarded") so a
	// garbled/out-of-order reply doesn't stall the caller for the full
	// timeout.
	assert.Equal(t, session.Idle, s.PendingCall.State())
}

func TestDispatch_CallErrorResolvesWithoutValidating(t *testing.T) {
	called := false
	results := outbound.ResultValidators{
		"Reset": func(ctx context.Context, s *session.Session, payload json.RawMessage) *validate.Violation {
			called = true
			return nil
		},
	}
	d := New(handlers.Registry{}, results, testLogger(t))
	s := testSession()
	s.PendingCall.Begin("uid-out", "Reset", 0)

	reply := d.Dispatch(context.Background(), s, []byte(`[4,"uid-out","InternalError","boom",{}]`))

	assert.Nil(t, reply)
	assert.False(t, called)
	assert.Equal(t, session.Idle, s.PendingCall.State())
}
