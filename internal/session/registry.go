package session

import "sync"

// OperatorSlot is the fixed index reserved for the operator UI connection
// (spec.md §3 Registry: "Slot 0 is reserved for the operator UI
// connection").
const OperatorSlot = 0

// Registry is the fixed-size table of Session slots: index 0 is the
// operator UI, indices 1..MaxChargers hold chargers. Slot assignment is
// the one operation that needs mutual exclusion; everything else about a
// Session is owned by its own worker (spec.md §5 "Shared resources").
type Registry struct {
	mu            sync.Mutex
	slots         []*Session
	numConnectors int
	txCounter     int64
}

// NewRegistry builds a Registry with maxChargers+1 slots.
func NewRegistry(maxChargers, numConnectors int) *Registry {
	r := &Registry{
		slots:         make([]*Session, maxChargers+1),
		numConnectors: numConnectors,
	}
	r.slots[OperatorSlot] = New(OperatorSlot, numConnectors, &r.txCounter)
	return r
}

// Operator returns the distinguished operator-UI session.
func (r *Registry) Operator() *Session {
	return r.slots[OperatorSlot]
}

// Accept assigns the first free charger slot (1..MaxChargers) to a newly
// connected transport handle. ok is false if the registry is full; the
// caller accepts the connection but logs and refuses it a slot (spec.md
// §4.3).
func (r *Registry) Accept(transportHandle int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 1; i < len(r.slots); i++ {
		if r.slots[i] == nil {
			s := New(i, r.numConnectors, &r.txCounter)
			s.TransportHandle = transportHandle
			r.slots[i] = s
			return s, true
		}
	}
	return nil, false
}

// Release frees chargerID's slot on disconnect.
func (r *Registry) Release(chargerID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chargerID <= OperatorSlot || chargerID >= len(r.slots) {
		return
	}
	r.slots[chargerID] = nil
}

// Get looks up a charger by its slot id.
func (r *Registry) Get(chargerID int) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chargerID < 0 || chargerID >= len(r.slots) {
		return nil, false
	}
	s := r.slots[chargerID]
	return s, s != nil
}

// ByTransportHandle scans the registry for the session owning handle
// (spec.md §3: "Lookup by transport handle scans the array (O(N), N
// small)").
func (r *Registry) ByTransportHandle(handle int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 1; i < len(r.slots); i++ {
		if r.slots[i] != nil && r.slots[i].TransportHandle == handle {
			return r.slots[i], true
		}
	}
	return nil, false
}

// All returns every currently-assigned charger session (excludes the
// operator slot), in slot order.
func (r *Registry) All() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Session
	for i := 1; i < len(r.slots); i++ {
		if r.slots[i] != nil {
			out = append(out, r.slots[i])
		}
	}
	return out
}

// MaxChargers returns the number of non-operator slots.
func (r *Registry) MaxChargers() int {
	return len(r.slots) - 1
}
