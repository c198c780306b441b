// Package handlers implements the eight inbound OCPP action handlers
// (spec.md §4.5). Each handler consumes a parsed payload and the
// Session it targets, and returns the raw reply frame bytes: a
// CALLRESULT on success or a CALLERROR (via validate.Violation) on any
// of the five validation failures.
package handlers

import (
	"context"
	"time"

	"github.com/charging-platform/ocpp-central-system/internal/authcache"
	"github.com/charging-platform/ocpp-central-system/internal/config"
	"github.com/charging-platform/ocpp-central-system/internal/events"
	"github.com/charging-platform/ocpp-central-system/internal/ocpp/envelope"
	"github.com/charging-platform/ocpp-central-system/internal/ocpp/validate"
	"github.com/charging-platform/ocpp-central-system/internal/session"
	"github.com/charging-platform/ocpp-central-system/internal/store"
)

// Snapshot is the compact operator-UI state frame every handler emits
// after mutating its Session (spec.md §4.5, §6 "Operator protocol").
type Snapshot struct {
	Charger        int    `json:"charger"`
	Type           string `json:"type"`
	Connector1     string `json:"connector1,omitempty"`
	Connector2     string `json:"connector2,omitempty"`
	IDTag1         string `json:"idTag1,omitempty"`
	IDTag2         string `json:"idTag2,omitempty"`
	TransactionID1 int64  `json:"transactionId1,omitempty"`
	TransactionID2 int64  `json:"transactionId2,omitempty"`
	General        string `json:"general,omitempty"`
	Vendor         string `json:"vendor,omitempty"`
	Model          string `json:"model,omitempty"`
}

// SnapshotSink publishes a Snapshot to the operator UI connection.
type SnapshotSink interface {
	Publish(snap Snapshot)
}

// Deps are the collaborators every handler needs: the allow-list/config
// cache, the persistence sink, the telemetry bus, the operator snapshot
// sink, and the static configuration constants (spec.md §6 "Compile-time
// constants").
type Deps struct {
	AllowList authcache.AllowList
	Store     store.Store
	Events    events.Bus
	Snapshots SnapshotSink
	OCPP      config.OCPPConfig
}

// Handler is one action's implementation. fields is the already-decoded
// JSON object of the CALL payload; uid is its uniqueId, needed to frame
// a CALLERROR.
type Handler func(ctx context.Context, s *session.Session, uid string, fields validate.Fields) ([]byte, error)

// Registry maps an OCPP action name to its Handler (spec.md §4.4: "Unknown
// action → NotSupported CALLERROR").
type Registry map[string]Handler

// New builds the Registry of all eight inbound action handlers.
func New(deps *Deps) Registry {
	return Registry{
		"Authorize":          authorize(deps),
		"BootNotification":    bootNotification(deps),
		"DataTransfer":        dataTransfer(deps),
		"Heartbeat":           heartbeat(deps),
		"MeterValues":         meterValues(deps),
		"StartTransaction":    startTransaction(deps),
		"StatusNotification":  statusNotification(deps),
		"StopTransaction":     stopTransaction(deps),
	}
}

func result(uid string, payload interface{}) ([]byte, error) {
	return envelope.EmitCallResult(uid, payload)
}

func violationFrame(uid string, v *validate.Violation) ([]byte, error) {
	return v.Frame(uid)
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// snapshotForConnectors builds the two-connector transaction/status
// snapshot shape (spec.md §6). NUM_CONNECTORS is fixed at 2 on the wire
// regardless of the configured connector count; connectors beyond 2 are
// tracked internally but not mirrored to the legacy operator UI frame.
func snapshotForConnectors(s *session.Session, snapType string) Snapshot {
	snap := Snapshot{Charger: s.ChargerID, Type: snapType}
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

func bootSnapshot(s *session.Session) Snapshot {
	return Snapshot{
		Charger: s.ChargerID,
		Type:    "bootNotification",
		General: string(s.BootStatus),
		Vendor:  s.Vendor,
		Model:   s.Model,
	}
}

func publish(deps *Deps, snap Snapshot) {
	if deps.Snapshots != nil {
		deps.Snapshots.Publish(snap)
	}
}
