// Package outbound implements the operator→charger CALL caller (spec.md
// §4.6): single in-flight slot per session via session.PendingCall, a
// 10s timeout polled at ~10ms granularity, and the per-action result
// validators the dispatcher applies to the CALLRESULT reply. Grounded on
// the teacher's busy-poll idiom for outstanding requests
// (internal/protocol/ocpp16 Processor's cleanup routine), adapted from a
// channel/timer wait into the bounded poll spec.md §9 calls for.
package outbound

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/charging-platform/ocpp-central-system/internal/authcache"
	"github.com/charging-platform/ocpp-central-system/internal/config"
	"github.com/charging-platform/ocpp-central-system/internal/logger"
	"github.com/charging-platform/ocpp-central-system/internal/metrics"
	"github.com/charging-platform/ocpp-central-system/internal/ocpp/envelope"
	"github.com/charging-platform/ocpp-central-system/internal/ocpp/validate"
	"github.com/charging-platform/ocpp-central-system/internal/session"
)

// Transmitter sends a raw frame to the charger owning a Session. It is
// implemented by internal/transport/websocket.
type Transmitter interface {
	Send(transportHandle int64, data []byte) error
}

// Actions is the exhaustive set of operator-initiated outbound actions
// (spec.md §4.6).
var Actions = []string{
	"ChangeAvailability", "ClearCache", "DataTransfer", "GetConfiguration",
	"RemoteStartTransaction", "RemoteStopTransaction", "Reset", "UnlockConnector",
}

func supported(action string) bool {
	for _, a := range Actions {
		if a == action {
			return true
		}
	}
	return false
}

// ResultValidator checks one outbound action's CALLRESULT payload
// against the five-step taxonomy and applies any result side effects
// (currently only GetConfiguration's configKeys update).
type ResultValidator func(ctx context.Context, s *session.Session, payload json.RawMessage) *validate.Violation

// ResultValidators maps action name to its ResultValidator.
type ResultValidators map[string]ResultValidator

// Caller issues outbound CALLs and waits for their correlated reply.
type Caller struct {
	tx           Transmitter
	allowList    authcache.AllowList
	log          *logger.Logger
	timeout      time.Duration
	pollInterval time.Duration
}

// NewCaller builds a Caller.
func NewCaller(tx Transmitter, allowList authcache.AllowList, cfg config.OCPPConfig, log *logger.Logger) *Caller {
	return &Caller{
		tx:           tx,
		allowList:    allowList,
		log:          log,
		timeout:      cfg.OutboundTimeout,
		pollInterval: cfg.OutboundPollInterval,
	}
}

// SetTransmitter wires the Transmitter once it exists. Caller is built
// before the websocket server (which is itself built with a reference to
// Caller's owner, the operator Gateway), so construction is two-phase.
func (c *Caller) SetTransmitter(tx Transmitter) {
	c.tx = tx
}

// Call schema-checks payload, takes s's pendingCall slot, emits the CALL
// frame, and blocks until the slot returns to Idle or the timeout
// expires. A schema failure or a busy slot drops the request with a
// logged warning and emits nothing (spec.md §7: "Outbound-side payload
// errors... are logged and dropped without emission").
func (c *Caller) Call(ctx context.Context, s *session.Session, action string, rawPayload json.RawMessage) {
	if !supported(action) {
		c.log.Warnf("outbound: unsupported action %q for charger %d", action, s.ChargerID)
		return
	}

	payload, err := checkOutboundPayload(action, rawPayload, s)
	if err != nil {
		c.log.Warnf("outbound: charger %d action %s payload rejected: %v", s.ChargerID, action, err)
		return
	}

	uid := s.NextUniqueID()
	if !s.PendingCall.Begin(uid, action, c.timeout) {
		c.log.Warnf("outbound: charger %d busy, dropping %s", s.ChargerID, action)
		return
	}

	frame, err := envelope.EmitCall(uid, action, payload)
	if err != nil {
		c.log.ErrorWithErr(err, "outbound: emit CALL failed")
		s.PendingCall.Resolve(uid)
		return
	}
	if err := c.tx.Send(s.TransportHandle, frame); err != nil {
		c.log.ErrorWithErr(err, "outbound: send CALL failed")
		s.PendingCall.Resolve(uid)
		return
	}

	if timedOut := s.PendingCall.Wait(c.pollInterval); timedOut {
		metrics.OutboundTimeouts.WithLabelValues(action).Inc()
		c.log.Warnf("outbound: charger %d action %s timed out after %s", s.ChargerID, action, c.timeout)
	}
}

// checkOutboundPayload schema-checks the operator-submitted JSON for
// action before it is forwarded. Unknown actions are rejected by the
// caller above; here we only validate the known ones' required shape.
func checkOutboundPayload(action string, raw json.RawMessage, s *session.Session) (map[string]interface{}, error) {
	fields, v := validate.ParseObject(raw)
	if v != nil {
		return nil, fmt.Errorf("%s: %s", v.Code, v.Error())
	}

	switch action {
	case "ChangeAvailability":
		if _, v := fields.RequiredInt("connectorId", 0, s.NumConnectors()); v != nil {
			return nil, v
		}
		if _, v := fields.RequiredEnum("type", []string{"Inoperative", "Operative"}); v != nil {
			return nil, v
		}
	case "RemoteStartTransaction":
		if _, v := fields.RequiredString("idTag", 20); v != nil {
			return nil, v
		}
	case "RemoteStopTransaction":
		if _, v := fields.RequiredInt("transactionId", 0, math.MaxInt32); v != nil {
			return nil, v
		}
	case "Reset":
		if _, v := fields.RequiredEnum("type", []string{"Hard", "Soft"}); v != nil {
			return nil, v
		}
	case "UnlockConnector":
		if _, v := fields.RequiredInt("connectorId", 1, s.NumConnectors()); v != nil {
			return nil, v
		}
	case "GetConfiguration":
		// key[] is optional; an absent/empty array means "all keys".
	case "ClearCache", "DataTransfer":
		// no required fields beyond being a JSON object.
	}

	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
