package relay

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/chat-relay/backend/internal/config"
	"github.com/zhouzirui/chat-relay/backend/internal/metrics"
	"github.com/zhouzirui/chat-relay/backend/internal/model/wire"
	"github.com/zhouzirui/chat-relay/backend/internal/session"
)

const (
	readDeadline  = 60 * time.Second
	pingInterval  = 54 * time.Second
	closeDeadline = 30 * time.Second
)

// Handler WebSocket中继处理器：每个连接升级后交给一个session.Engine驱动
type Handler struct {
	deps     session.Deps
	relayCfg config.RelayConfig
	upgrader websocket.Upgrader
}

// New 创建中继处理器
func New(deps session.Deps, relayCfg config.RelayConfig) *Handler {
	return &Handler{
		deps:     deps,
		relayCfg: relayCfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return relayCfg.OriginAllowed(r.Header.Get("Origin"))
			},
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/relay", h.handleWebSocket)
}

// handleWebSocket 处理一个完整的连接生命周期
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed origin=%s: %v", origin, err)
		return
	}

	sessionID := uuid.NewString()
	sender := newConnSender(conn)
	eng := session.New(h.deps, sender, sessionID, origin)

	metrics.ConnectionOpened()
	log.Printf("[websocket] new connection session=%s origin=%s", sessionID, origin)

	defer func() {
		// Finalization must outlive the request context: the write can
		// still be in flight after the client is gone.
		closeCtx, cancel := context.WithTimeout(context.Background(), closeDeadline)
		defer cancel()
		eng.Close(closeCtx)

		sender.Shutdown()
		conn.Close()
		metrics.ConnectionClosed()
		log.Printf("[websocket] connection closed session=%s", sessionID)
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	go h.pingLoop(ctx, sender)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[websocket] read error session=%s: %v", sessionID, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readDeadline))

		var frame wire.Frame
		switch msgType {
		case websocket.BinaryMessage:
			frame = wire.AudioFrame(data)
		case websocket.TextMessage:
			frame = wire.DecodeControl(data)
		default:
			continue
		}

		if err := eng.HandleFrame(ctx, frame); err != nil {
			log.Printf("[websocket] terminating session=%s: %v", sessionID, err)
			return
		}
	}
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, sender *connSender) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !sender.Ping() {
				return
			}
		}
	}
}

// connSender serializes all writes to one connection. The session engine
// and its typing timer may both send, and sends after shutdown must be
// silent no-ops.
type connSender struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func newConnSender(conn *websocket.Conn) *connSender {
	return &connSender{conn: conn}
}

func (s *connSender) SendEvent(ev wire.Outbound) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err := s.conn.WriteJSON(ev); err != nil {
		log.Printf("[websocket] write event failed: %v", err)
		s.closed = true
	}
}

func (s *connSender) SendBinary(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		log.Printf("[websocket] write binary failed: %v", err)
		s.closed = true
	}
}

// Ping reports whether the connection is still writable.
func (s *connSender) Ping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		s.closed = true
		return false
	}
	return true
}

// Shutdown marks the sender closed; later sends are dropped.
func (s *connSender) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
