// Package session implements the per-charger Session state machine and
// the fixed-size Registry of sessions described in spec.md §3/§4.3.
package session

import (
	"sync"
	"time"
)

// BootStatus mirrors the OCPP RegistrationStatus values relevant to the
// boot gate.
type BootStatus string

const (
	BootAccepted BootStatus = "Accepted"
	BootPending  BootStatus = "Pending"
	BootRejected BootStatus = "Rejected"
)

// ConnectorStatus is the OCPP connector-status enum plus the Unknown
// sentinel used before the first StatusNotification.
type ConnectorStatus string

const (
	ConnectorAvailable     ConnectorStatus = "Available"
	ConnectorCharging      ConnectorStatus = "Charging"
	ConnectorFaulted       ConnectorStatus = "Faulted"
	ConnectorFinishing     ConnectorStatus = "Finishing"
	ConnectorPreparing     ConnectorStatus = "Preparing"
	ConnectorReserved      ConnectorStatus = "Reserved"
	ConnectorSuspendedEV   ConnectorStatus = "SuspendedEV"
	ConnectorSuspendedEVSE ConnectorStatus = "SuspendedEVSE"
	ConnectorUnavailable   ConnectorStatus = "Unavailable"
	ConnectorUnknown       ConnectorStatus = "Unknown"
)

// NonChargeable reports whether status bars a StartTransaction per
// spec.md §4.5 StartTransaction branch 3.
func (s ConnectorStatus) NonChargeable() bool {
	switch s {
	case ConnectorFaulted, ConnectorSuspendedEV, ConnectorSuspendedEVSE, ConnectorUnavailable:
		return true
	default:
		return false
	}
}

// NoCharging is the sentinel idTag for an idle connector.
const NoCharging = "no_charging"

// NoTransaction is the sentinel transaction id for an idle connector.
const NoTransaction = -1

// FreeHandle marks a Registry slot with no live transport.
const FreeHandle int64 = -1

// PendingCallState is the state of the outbound correlation slot.
type PendingCallState int

const (
	Idle PendingCallState = iota
	Awaiting
)

// PendingCall is the single outbound-call correlation slot per Session.
// It is the one piece of Session state touched from more than one
// goroutine (the operator gateway's worker initiates; the session's own
// worker resolves), so it alone carries a mutex.
type PendingCall struct {
	mu       sync.Mutex
	uniqueID string
	action   string
	deadline time.Time
	state    PendingCallState
}

// Begin attempts to take the slot for a new outbound call. It fails if a
// call is already Awaiting (spec.md invariant 2: at most one in flight).
func (p *PendingCall) Begin(uniqueID, action string, timeout time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Awaiting {
		return false
	}
	p.uniqueID = uniqueID
	p.action = action
	p.deadline = time.Now().Add(timeout)
	p.state = Awaiting
	return true
}

// Wait blocks the caller until the slot returns to Idle or the deadline
// passes, polling at pollInterval so the deadline's approach is
// observable (spec.md §5). It returns true if the wait ended in timeout,
// in which case the slot has been force-released to Idle.
func (p *PendingCall) Wait(pollInterval time.Duration) bool {
	for {
		p.mu.Lock()
		if p.state == Idle {
			p.mu.Unlock()
			return false
		}
		if time.Now().After(p.deadline) {
			p.state = Idle
			p.mu.Unlock()
			return true
		}
		p.mu.Unlock()
		time.Sleep(pollInterval)
	}
}

// Resolve accepts a CALLRESULT/CALLERROR for uniqueID. If the slot is
// Idle, it returns false and leaves the slot untouched: there is nothing
// outstanding to release. Otherwise the slot is released to Idle
// unconditionally; it returns false when uniqueID does not match the
// outstanding call (spec.md invariant 3: "mismatches release the slot but
// are otherwise discarded"), in which case the frame is an orphaned reply
// the caller must discard rather than dispatch to a result validator.
func (p *PendingCall) Resolve(uniqueID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Awaiting {
		return false
	}
	matched := p.uniqueID == uniqueID
	p.state = Idle
	return matched
}

// Action returns the action of the outstanding call, or "" if Idle.
func (p *PendingCall) Action() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Awaiting {
		return ""
	}
	return p.action
}

// State reports the current slot state.
func (p *PendingCall) State() PendingCallState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Session is the per-charger mutable record. Outside of PendingCall, a
// Session is single-writer: only the dispatch worker for this charger's
// connection mutates it (spec.md §4.3).
type Session struct {
	ChargerID       int
	TransportHandle int64

	BootStatus BootStatus

	Connectors         []ConnectorStatus
	ActiveTransactions []int64
	ActiveIdTags       []string

	LastAuthorizedIdTag string
	Vendor, Model        string

	ConfigKeys map[string]string

	PendingCall *PendingCall

	nextUniqueID  uint64
	txCounter     *int64
}

// New creates a Session for chargerID with numConnectors+1 connector
// slots (index 0 is the charge point as a whole), sharing txCounter with
// the rest of the Registry so transaction ids are unique process-wide
// (see DESIGN.md's Open Question decision).
func New(chargerID, numConnectors int, txCounter *int64) *Session {
	s := &Session{
		ChargerID:       chargerID,
		TransportHandle: FreeHandle,
		BootStatus:      BootRejected,
		PendingCall:     &PendingCall{},
		ConfigKeys:      make(map[string]string),
		txCounter:       txCounter,
	}
	s.Reset(numConnectors)
	return s
}

// Reset restores a Session to its post-accept defaults (spec.md
// Lifecycle: a Session is initialised on accept and torn down on close).
func (s *Session) Reset(numConnectors int) {
	s.BootStatus = BootRejected
	s.Vendor = ""
	s.Model = ""
	s.LastAuthorizedIdTag = ""
	s.ConfigKeys = make(map[string]string)
	s.Connectors = make([]ConnectorStatus, numConnectors+1)
	s.ActiveTransactions = make([]int64, numConnectors+1)
	s.ActiveIdTags = make([]string, numConnectors+1)
	for i := range s.Connectors {
		s.Connectors[i] = ConnectorUnknown
		s.ActiveTransactions[i] = NoTransaction
		s.ActiveIdTags[i] = NoCharging
	}
	s.PendingCall = &PendingCall{}
}

// NextUniqueID mints a new outbound uniqueId (spec.md §4.6).
func (s *Session) NextUniqueID() string {
	s.nextUniqueID++
	return uitoa(s.nextUniqueID)
}

// NextTransactionID mints the next process-wide transaction id.
func (s *Session) NextTransactionID() int64 {
	*s.txCounter++
	return *s.txCounter
}

// CurrentTransactionID returns the most recently minted transaction id
// without allocating a new one (spec.md §4.5 StatusNotification: a
// Charging status binds the connector to "the counter's current value,
// last minted by StartTransaction").
func (s *Session) CurrentTransactionID() int64 {
	return *s.txCounter
}

// NumConnectors returns the highest valid connector index (excludes 0,
// the charge point itself).
func (s *Session) NumConnectors() int {
	return len(s.Connectors) - 1
}

// IdTagInUse reports whether idTag is already bound to an active
// transaction on a connector other than except.
func (s *Session) IdTagInUse(idTag string, except int) bool {
	for c, tag := range s.ActiveIdTags {
		if c == except {
			continue
		}
		if tag == idTag {
			return true
		}
	}
	return false
}

func uitoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
