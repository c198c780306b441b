package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/charging-platform/ocpp-central-system/internal/config"
	"github.com/charging-platform/ocpp-central-system/internal/dispatch"
	"github.com/charging-platform/ocpp-central-system/internal/handlers"
	"github.com/charging-platform/ocpp-central-system/internal/logger"
	"github.com/charging-platform/ocpp-central-system/internal/ocpp/envelope"
	"github.com/charging-platform/ocpp-central-system/internal/ocpp/validate"
	"github.com/charging-platform/ocpp-central-system/internal/operator"
	"github.com/charging-platform/ocpp-central-system/internal/outbound"
	"github.com/charging-platform/ocpp-central-system/internal/session"
)

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		HandshakeTimeout:  2 * time.Second,
		EnableCompression: false,
		MaxMessageSize:    65536,
	}
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.DefaultConfig())
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func newTestServer(t *testing.T) *Server {
	registry := session.NewRegistry(2, 2)
	log := testLogger(t)

	h := handlers.Registry{
		"BootNotification": func(ctx context.Context, s *session.Session, uid string, fields validate.Fields) ([]byte, error) {
			s.BootStatus = session.BootAccepted
			return envelope.EmitCallResult(uid, map[string]interface{}{"status": "Accepted", "currentTime": "now", "interval": 300})
		},
		"Heartbeat": func(ctx context.Context, s *session.Session, uid string, fields validate.Fields) ([]byte, error) {
			return envelope.EmitCallResult(uid, map[string]interface{}{"currentTime": "now"})
		},
	}
	d := dispatch.New(h, outbound.ResultValidators{}, log)

	cfg := config.OCPPConfig{NumConnectors: 2, OutboundTimeout: 20 * time.Millisecond, OutboundPollInterval: 2 * time.Millisecond}
	caller := outbound.NewCaller(nil, nopAllowList{}, cfg, log)
	gw := operator.New(registry, caller, nil, log)

	srv := NewServer(testServerConfig(), registry, d, gw, log)
	caller.SetTransmitter(srv)
	gw.SetTransmitter(srv)
	return srv
}

type nopAllowList struct{}

func (nopAllowList) IsIDTagAllowed(ctx context.Context, idTag string) bool { return true }
func (nopAllowList) ConfigGet(ctx context.Context, chargerID int, key string) (string, bool) {
	return "", false
}
func (nopAllowList) ConfigSet(ctx context.Context, chargerID int, key, value string) {}

func TestSend_DeliversToRegisteredConnection(t *testing.T) {
	s := newTestServer(t)
	c := &conn{send: make(chan []byte, 1), handle: 1}
	s.conns[1] = c

	err := s.Send(1, []byte("hello"))

	assert.NoError(t, err)
	assert.Equal(t, []byte("hello"), <-c.send)
}

func TestSend_UnknownHandleIsError(t *testing.T) {
	s := newTestServer(t)

	err := s.Send(999, []byte("hello"))

	assert.ErrorIs(t, err, errConnNotFound)
}

func TestSend_FullBufferIsError(t *testing.T) {
	s := newTestServer(t)
	c := &conn{send: make(chan []byte, 1), handle: 1}
	c.send <- []byte("already queued")
	s.conns[1] = c

	err := s.Send(1, []byte("overflow"))

	assert.ErrorIs(t, err, errSendBufferFull)
}

func TestCloseConn_NotifiesOperatorAndReleasesSlot(t *testing.T) {
	s := newTestServer(t)

	sess, ok := s.registry.Accept(42)
	if !ok {
		t.Fatal("registry.Accept: no free slot")
	}

	op := s.registry.Operator()
	op.TransportHandle = 99
	opConn := &conn{send: make(chan []byte, 16), handle: 99}
	s.mu.Lock()
	s.conns[99] = opConn
	s.conns[sess.TransportHandle] = &conn{send: make(chan []byte, 4), handle: sess.TransportHandle}
	s.mu.Unlock()

	chargerConn := s.conns[sess.TransportHandle]
	chargerConn.cancel = func() {}

	s.closeConn(chargerConn, sess, true)

	var stop, boot handlers.Snapshot
	if err := json.Unmarshal(<-opConn.send, &stop); err != nil {
		t.Fatalf("stopTransaction snapshot: %v", err)
	}
	if err := json.Unmarshal(<-opConn.send, &boot); err != nil {
		t.Fatalf("bootNotification snapshot: %v", err)
	}
	assert.Equal(t, sess.ChargerID, stop.Charger)
	assert.Equal(t, "stopTransaction", stop.Type)
	assert.Equal(t, sess.ChargerID, boot.Charger)
	assert.Equal(t, "bootNotification", boot.Type)

	_, stillAssigned := s.registry.Get(sess.ChargerID)
	assert.False(t, stillAssigned)
}

func TestServeCharger_BootThenHeartbeatRoundTrip(t *testing.T) {
	s := newTestServer(t)

	httpSrv := httptest.NewServer(http.HandlerFunc(s.ServeCharger))
	defer httpSrv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	wsConn, _, err := gorilla.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer wsConn.Close()

	assert.NoError(t, wsConn.WriteMessage(gorilla.TextMessage, []byte(`[2,"uid-1","BootNotification",{"chargePointVendor":"Acme","chargePointModel":"X1"}]`)))
	_, msg, err := wsConn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	env, err := envelope.Parse(msg)
	if err != nil {
		t.Fatalf("reply not a well-formed envelope: %v", err)
	}
	assert.Equal(t, envelope.CALLRESULT, env.Type)
	assert.Equal(t, "uid-1", env.UniqueID)

	assert.NoError(t, wsConn.WriteMessage(gorilla.TextMessage, []byte(`[2,"uid-2","Heartbeat",{}]`)))
	_, msg2, err := wsConn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	env2, err := envelope.Parse(msg2)
	if err != nil {
		t.Fatalf("reply not a well-formed envelope: %v", err)
	}
	assert.Equal(t, envelope.CALLRESULT, env2.Type)
	assert.Equal(t, "uid-2", env2.UniqueID)
}
