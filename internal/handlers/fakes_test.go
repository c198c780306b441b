package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/charging-platform/ocpp-central-system/internal/config"
	"github.com/charging-platform/ocpp-central-system/internal/events"
	"github.com/charging-platform/ocpp-central-system/internal/ocpp/envelope"
	"github.com/charging-platform/ocpp-central-system/internal/ocpp/validate"
	"github.com/charging-platform/ocpp-central-system/internal/session"
)

// fakeAllowList is an in-memory authcache.AllowList for handler tests.
type fakeAllowList struct {
	allowed map[string]bool
	configs map[string]string
}

func newFakeAllowList(allowed ...string) *fakeAllowList {
	f := &fakeAllowList{allowed: map[string]bool{}, configs: map[string]string{}}
	for _, tag := range allowed {
		f.allowed[tag] = true
	}
	return f
}

func (f *fakeAllowList) IsIDTagAllowed(ctx context.Context, idTag string) bool {
	return f.allowed[idTag]
}

func (f *fakeAllowList) ConfigGet(ctx context.Context, chargerID int, key string) (string, bool) {
	v, ok := f.configs[key]
	return v, ok
}

func (f *fakeAllowList) ConfigSet(ctx context.Context, chargerID int, key, value string) {
	f.configs[key] = value
}

// fakeStore records every insert for assertion, in place of store.Store.
type fakeStore struct {
	meterValues  []string
	statuses     []string
	transactions []string
}

func (f *fakeStore) InsertMeterValue(ctx context.Context, chargerID, connector int, transactionID int64, at time.Time, value, unit, measurand, sampleContext string) error {
	f.meterValues = append(f.meterValues, value)
	return nil
}

func (f *fakeStore) InsertStatus(ctx context.Context, chargerID, connector int, status string, at time.Time, errorCode string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeStore) InsertTransaction(ctx context.Context, chargerID int, status string, connector int, at time.Time, reason string) error {
	f.transactions = append(f.transactions, status)
	return nil
}

func (f *fakeStore) Close() error { return nil }

// fakeBus records every published event, in place of events.Bus.
type fakeBus struct {
	published []events.Event
}

func (f *fakeBus) Publish(e events.Event) {
	f.published = append(f.published, e)
}

// fakeSink records every published operator snapshot, in place of
// handlers.SnapshotSink.
type fakeSink struct {
	snaps []Snapshot
}

func (f *fakeSink) Publish(snap Snapshot) {
	f.snaps = append(f.snaps, snap)
}

func newTestDeps() (*Deps, *fakeAllowList, *fakeStore, *fakeBus, *fakeSink) {
	allowList := newFakeAllowList("GOODTAG")
	st := &fakeStore{}
	bus := &fakeBus{}
	sink := &fakeSink{}
	deps := &Deps{
		AllowList: allowList,
		Store:     st,
		Events:    bus,
		Snapshots: sink,
		OCPP: config.OCPPConfig{
			NumConnectors:     2,
			MaxChargers:       10,
			HeartbeatInterval: 300 * time.Second,
			IdTagLen:          20,
			AllowedIdTags:     []string{"GOODTAG"},
		},
	}
	return deps, allowList, st, bus, sink
}

func newTestSessionForHandlers() *session.Session {
	var counter int64
	return session.New(1, 2, &counter)
}

// call invokes a handler with a raw JSON payload and returns the decoded
// reply envelope for assertions.
func call(t *testing.T, h Handler, s *session.Session, uid, payload string) *envelope.Envelope {
	t.Helper()
	fields, v := validate.ParseObject(json.RawMessage(payload))
	if v != nil {
		t.Fatalf("test payload failed to parse: %v", v)
	}
	frame, err := h(context.Background(), s, uid, fields)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	env, err := envelope.Parse(frame)
	if err != nil {
		t.Fatalf("handler emitted malformed frame: %v", err)
	}
	return env
}

func payloadOf(t *testing.T, env *envelope.Envelope) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(env.Payload, &m); err != nil {
		t.Fatalf("reply payload not an object: %v", err)
	}
	return m
}
