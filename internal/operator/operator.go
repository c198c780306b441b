// Package operator implements the operator-UI gateway (spec.md §4.7):
// the `Flask:charger<N>:<action>:<payload>` text protocol, the
// per-charger primer-frame-pair sent on operator connect, and the
// snapshot sink that forwards handler state changes back to the UI.
package operator

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/charging-platform/ocpp-central-system/internal/handlers"
	"github.com/charging-platform/ocpp-central-system/internal/logger"
	"github.com/charging-platform/ocpp-central-system/internal/outbound"
	"github.com/charging-platform/ocpp-central-system/internal/session"
)

// handshake is the literal greeting the UI sends on connect (spec.md §6).
const handshake = "Flask client"

// commandPrefix is the leading token of every operator command frame.
const commandPrefix = "Flask:charger"

// Gateway bridges the operator UI connection to the session registry and
// the outbound caller.
type Gateway struct {
	registry *session.Registry
	caller   *outbound.Caller
	tx       outbound.Transmitter
	log      *logger.Logger
}

// New builds a Gateway.
func New(registry *session.Registry, caller *outbound.Caller, tx outbound.Transmitter, log *logger.Logger) *Gateway {
	return &Gateway{registry: registry, caller: caller, tx: tx, log: log}
}

// SetTransmitter wires the Transmitter once it exists (see
// outbound.Caller.SetTransmitter for why construction is two-phase).
func (g *Gateway) SetTransmitter(tx outbound.Transmitter) {
	g.tx = tx
}

// HandleFrame processes one inbound text frame from the operator
// connection. The handshake frame is acknowledged by priming every
// charger slot; command frames are parsed and routed to the outbound
// caller. Unknown frames are logged and ignored (spec.md §4.7).
func (g *Gateway) HandleFrame(ctx context.Context, raw string) {
	raw = strings.TrimSpace(raw)
	if raw == handshake {
		g.PrimeAll()
		return
	}

	chargerID, action, payload, ok := parseCommand(raw)
	if !ok {
		g.log.Warnf("operator: unrecognised frame %q", raw)
		return
	}

	s, ok := g.registry.Get(chargerID)
	if !ok {
		g.log.Warnf("operator: no session for charger %d", chargerID)
		return
	}

	g.caller.Call(ctx, s, action, payload)
}

// parseCommand parses "Flask:charger<N>:<actionName>:<payload>". The
// charger number is the decimal text between the "Flask:charger" prefix
// and the next colon (any number of digits), then the
// remaining colon-separated parts are the action and its JSON payload
// (the payload itself may contain colons, so it is everything after the
// second colon that follows the charger token).
func parseCommand(raw string) (chargerID int, action string, payload json.RawMessage, ok bool) {
	if !strings.HasPrefix(raw, commandPrefix) {
		return 0, "", nil, false
	}
	rest := raw[len(commandPrefix):] // "<N>:<action>:<payload>"

	parts := strings.SplitN(rest, ":", 3)
	if len(parts) != 3 {
		return 0, "", nil, false
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", nil, false
	}
	return n, parts[1], json.RawMessage(parts[2]), true
}

// PrimeAll sends the initial snapshot pair for every charger slot
// (spec.md §4.7: "one stopTransaction-style frame and one
// bootNotification-style frame").
func (g *Gateway) PrimeAll() {
	for _, s := range g.registry.All() {
		g.primeOne(s)
	}
}

// NotifyDisconnect tells the operator UI that s's charger connection was
// torn down, sending the same synthetic stopTransaction+bootNotification
// snapshot pair PrimeAll sends on connect (spec.md §3 Lifecycle: "slot
// reset, UI informed with synthetic stopTransaction+bootNotification
// snapshots per connector"). The pair describes s as it is at the call;
// closeConn resets s first, so a stale in-progress-transaction frame in
// the UI is replaced before the slot is handed to the next charger.
func (g *Gateway) NotifyDisconnect(s *session.Session) {
	g.primeOne(s)
}

func (g *Gateway) primeOne(s *session.Session) {
	g.Publish(snapshotFor(s, "stopTransaction"))
	g.Publish(bootSnapshotFor(s))
}

// Publish implements handlers.SnapshotSink: it serialises the snapshot
// and writes it to the operator connection.
func (g *Gateway) Publish(snap handlers.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		g.log.ErrorWithErr(err, "operator: marshal snapshot failed")
		return
	}
	op := g.registry.Operator()
	if err := g.tx.Send(op.TransportHandle, data); err != nil {
		g.log.ErrorWithErr(err, "operator: send snapshot failed")
	}
}

func snapshotFor(s *session.Session, snapType string) handlers.Snapshot {
	snap := handlers.Snapshot{Charger: s.ChargerID, Type: snapType}
	if len(s.Connectors) > 1 {
		snap.Connector1 = string(s.Connectors[1])
		snap.IDTag1 = s.ActiveIdTags[1]
		snap.TransactionID1 = s.ActiveTransactions[1]
	}
	if len(s.Connectors) > 2 {
		snap.Connector2 = string(s.Connectors[2])
		snap.IDTag2 = s.ActiveIdTags[2]
		snap.TransactionID2 = s.ActiveTransactions[2]
	}
	return snap
}

func bootSnapshotFor(s *session.Session) handlers.Snapshot {
	return handlers.Snapshot{
		Charger: s.ChargerID,
		Type:    "bootNotification",
		General: string(s.BootStatus),
		Vendor:  s.Vendor,
		Model:   s.Model,
	}
}
