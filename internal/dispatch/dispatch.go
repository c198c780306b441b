// Package dispatch implements the inbound frame pipeline (spec.md §4.4):
// parse envelope, apply the boot gate, route CALL/CALLRESULT/CALLERROR.
// Grounded on the teacher's internal/gateway Dispatcher and
// internal/protocol/ocpp16 Processor (ProcessMessage/processCallMessage/
// processCallResultMessage/processCallErrorMessage), collapsed here to
// the single pendingCall-slot correlation model instead of the teacher's
// broader request/response registry.
package dispatch

import (
	"context"
	"time"

	"github.com/charging-platform/ocpp-central-system/internal/handlers"
	"github.com/charging-platform/ocpp-central-system/internal/logger"
	"github.com/charging-platform/ocpp-central-system/internal/metrics"
	"github.com/charging-platform/ocpp-central-system/internal/ocpp/envelope"
	"github.com/charging-platform/ocpp-central-system/internal/ocpp/validate"
	"github.com/charging-platform/ocpp-central-system/internal/outbound"
	"github.com/charging-platform/ocpp-central-system/internal/session"
)

// Dispatcher routes one session's inbound frames to action handlers or
// to the outbound-call result path.
type Dispatcher struct {
	handlers handlers.Registry
	results  outbound.ResultValidators
	log      *logger.Logger
}

// New builds a Dispatcher over the given handler and outbound-result
// registries.
func New(h handlers.Registry, results outbound.ResultValidators, log *logger.Logger) *Dispatcher {
	return &Dispatcher{handlers: h, results: results, log: log}
}

// Dispatch processes one raw inbound frame for s and returns the bytes to
// write back to the peer, if any (spec.md invariant 1: "For every CALL
// received, exactly one CALLRESULT or CALLERROR is emitted").
func (d *Dispatcher) Dispatch(ctx context.Context, s *session.Session, raw []byte) []byte {
	env, err := envelope.Parse(raw)
	if err != nil {
		metrics.FramesReceived.WithLabelValues("malformed").Inc()
		uid := ""
		if env != nil {
			uid = env.UniqueID
		}
		frame, _ := validate.New(validate.FormationViolation).Frame(uid)
		return frame
	}

	metrics.FramesReceived.WithLabelValues(env.Type.String()).Inc()

	switch env.Type {
	case envelope.CALL:
		return d.dispatchCall(ctx, s, env)
	case envelope.CALLRESULT:
		return d.dispatchResult(ctx, s, env, true)
	case envelope.CALLERROR:
		return d.dispatchResult(ctx, s, env, false)
	default:
		frame, _ := validate.New(validate.NotImplemented).Frame(env.UniqueID)
		return frame
	}
}

func (d *Dispatcher) dispatchCall(ctx context.Context, s *session.Session, env *envelope.Envelope) []byte {
	start := time.Now()
	defer func() {
		metrics.HandlerDuration.WithLabelValues(env.Action).Observe(time.Since(start).Seconds())
	}()

	if s.BootStatus == session.BootRejected && env.Action != "BootNotification" {
		metrics.ActionsHandled.WithLabelValues(env.Action, "generic_error").Inc()
		frame, _ := validate.New(validate.GenericError).Frame(env.UniqueID)
		return frame
	}

	handler, ok := d.handlers[env.Action]
	if !ok {
		metrics.ActionsHandled.WithLabelValues(env.Action, "not_supported").Inc()
		frame, _ := validate.New(validate.NotSupported).Frame(env.UniqueID)
		return frame
	}

	fields, v := validate.ParseObject(env.Payload)
	if v != nil {
		metrics.ActionsHandled.WithLabelValues(env.Action, "violation").Inc()
		frame, _ := v.Frame(env.UniqueID)
		return frame
	}

	frame, err := handler(ctx, s, env.UniqueID, fields)
	if err != nil {
		d.log.ErrorWithErr(err, "dispatch: handler failed")
		metrics.ActionsHandled.WithLabelValues(env.Action, "error").Inc()
		frame, _ = validate.New(validate.GenericError).Frame(env.UniqueID)
		return frame
	}
	metrics.ActionsHandled.WithLabelValues(env.Action, "ok").Inc()
	return frame
}

// dispatchResult handles CALLRESULT/CALLERROR frames replying to an
// outbound CALL this session issued (spec.md §4.4). ok is false for a
// CALLERROR. It returns nil, except when the result validator rejects a
// CALLRESULT payload: then it returns a CALLERROR echoing that uniqueId.
func (d *Dispatcher) dispatchResult(ctx context.Context, s *session.Session, env *envelope.Envelope, ok bool) []byte {
	action := s.PendingCall.Action()
	if !s.PendingCall.Resolve(env.UniqueID) {
		d.log.Warnf("dispatch: discarding orphan %s uid=%s", env.Type, env.UniqueID)
		return nil
	}

	if !ok {
		d.log.Warnf("dispatch: charger %d CALLERROR for %s: %s %s", s.ChargerID, action, env.ErrorCode, env.ErrorDescription)
		return nil
	}

	if validator, has := d.results[action]; has {
		if v := validator(ctx, s, env.Payload); v != nil {
			d.log.Warnf("dispatch: charger %d malformed result for %s: %s", s.ChargerID, action, v.Code)
			frame, _ := v.Frame(env.UniqueID)
			return frame
		}
	}
	return nil
}
