// Package websocket adapts the teacher's gorilla/websocket connection
// manager (internal/transport/websocket Manager/ConnectionWrapper: an
// upgrader, a per-connection send channel plus sendRoutine, and a
// receive loop) to spec.md §5's scheduling model: one worker per
// accepted connection, charger frames dispatched serially on that
// worker, and the outbound caller as the only cross-worker interaction
// via session.PendingCall.
package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/charging-platform/ocpp-central-system/internal/config"
	"github.com/charging-platform/ocpp-central-system/internal/dispatch"
	"github.com/charging-platform/ocpp-central-system/internal/logger"
	"github.com/charging-platform/ocpp-central-system/internal/metrics"
	"github.com/charging-platform/ocpp-central-system/internal/operator"
	"github.com/charging-platform/ocpp-central-system/internal/session"
)

var (
	errConnNotFound   = errors.New("websocket: connection not found")
	errSendBufferFull = errors.New("websocket: send buffer full")
)

// conn wraps one upgraded WebSocket connection with the send-channel +
// sendRoutine idiom, so writes from the outbound caller (a different
// goroutine than the connection's own read loop) never race with it.
type conn struct {
	ws     *websocket.Conn
	send   chan []byte
	handle int64
	cancel context.CancelFunc
}

// Server accepts charger and operator WebSocket connections and wires
// their frames into the Dispatcher/operator Gateway.
type Server struct {
	upgrader   websocket.Upgrader
	registry   *session.Registry
	dispatcher *dispatch.Dispatcher
	gateway    *operator.Gateway
	cfg        config.ServerConfig
	log        *logger.Logger

	mu         sync.Mutex
	conns      map[int64]*conn
	nextHandle int64
}

// NewServer builds a Server.
func NewServer(cfg config.ServerConfig, registry *session.Registry, dispatcher *dispatch.Dispatcher, gw *operator.Gateway, log *logger.Logger) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:    cfg.ReadBufferSize,
			WriteBufferSize:   cfg.WriteBufferSize,
			HandshakeTimeout:  cfg.HandshakeTimeout,
			EnableCompression: cfg.EnableCompression,
			CheckOrigin:       func(r *http.Request) bool { return true },
		},
		registry:   registry,
		dispatcher: dispatcher,
		gateway:    gw,
		cfg:        cfg,
		log:        log,
		conns:      make(map[int64]*conn),
	}
}

// Send implements outbound.Transmitter and operator.Gateway's send path:
// it hands data to the connection's send channel.
func (s *Server) Send(transportHandle int64, data []byte) error {
	s.mu.Lock()
	c, ok := s.conns[transportHandle]
	s.mu.Unlock()
	if !ok {
		return errConnNotFound
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errSendBufferFull
	}
}

// ServeCharger upgrades r and runs the charger connection's worker
// (spec.md §4.3: registry assigns the first free slot).
func (s *Server) ServeCharger(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.ErrorWithErr(err, "websocket: charger upgrade failed")
		return
	}

	handle := atomic.AddInt64(&s.nextHandle, 1)
	sess, ok := s.registry.Accept(handle)
	if !ok {
		s.log.Warnf("websocket: registry full, refusing charger connection from %s", r.RemoteAddr)
		ws.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{ws: ws, send: make(chan []byte, 64), handle: handle, cancel: cancel}
	s.mu.Lock()
	s.conns[handle] = c
	s.mu.Unlock()
	metrics.ActiveChargers.Inc()

	go s.sendLoop(c)
	s.readLoopCharger(ctx, c, sess)
}

// ServeOperator upgrades r and binds it to the fixed operator session
// slot (spec.md §4.7).
func (s *Server) ServeOperator(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.ErrorWithErr(err, "websocket: operator upgrade failed")
		return
	}

	handle := atomic.AddInt64(&s.nextHandle, 1)
	op := s.registry.Operator()
	op.TransportHandle = handle

	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{ws: ws, send: make(chan []byte, 64), handle: handle, cancel: cancel}
	s.mu.Lock()
	s.conns[handle] = c
	s.mu.Unlock()

	go s.sendLoop(c)
	s.readLoopOperator(ctx, c)
}

func (s *Server) sendLoop(c *conn) {
	for data := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(s.cfg.HandshakeTimeout))
		if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
			s.log.ErrorWithErr(err, "websocket: write failed")
			return
		}
	}
}

func (s *Server) readLoopCharger(ctx context.Context, c *conn, sess *session.Session) {
	defer s.closeConn(c, sess, true)
	c.ws.SetReadLimit(int64(s.cfg.MaxMessageSize))
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		reply := s.dispatcher.Dispatch(ctx, sess, data)
		if reply != nil {
			select {
			case c.send <- reply:
			default:
				s.log.Warnf("websocket: charger %d send buffer full, dropping reply", sess.ChargerID)
			}
		}
	}
}

func (s *Server) readLoopOperator(ctx context.Context, c *conn) {
	defer s.closeConn(c, s.registry.Operator(), false)
	c.ws.SetReadLimit(int64(s.cfg.MaxMessageSize))
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		s.gateway.HandleFrame(ctx, string(data))
	}
}

// closeConn tears down c. For charger connections (releaseSlot) it tells
// the operator UI the charger went away before freeing the slot, so the
// UI never keeps showing a stale in-progress snapshot for a session that
// no longer exists (spec.md §3 Lifecycle).
func (s *Server) closeConn(c *conn, sess *session.Session, releaseSlot bool) {
	c.cancel()
	s.mu.Lock()
	delete(s.conns, c.handle)
	s.mu.Unlock()
	close(c.send)
	c.ws.Close()
	if releaseSlot {
		sess.Reset(len(sess.Connectors) - 1)
		s.gateway.NotifyDisconnect(sess)
		s.registry.Release(sess.ChargerID)
		metrics.ActiveChargers.Dec()
	}
}
