package collab

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dropDatabas3/collabsql/internal/auth"
	"github.com/dropDatabas3/collabsql/internal/domain"
	httperrors "github.com/dropDatabas3/collabsql/internal/httpx/errors"
	"github.com/dropDatabas3/collabsql/internal/observability/logger"
)

// ===== PARÁMETROS DE TRANSPORTE =====

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 64 << 10
)

// Client es el lado servidor de una conexión WebSocket: identidad ya
// verificada, un connID propio y un buffer de salida que drena el
// write pump. Implementa Sender.
type Client struct {
	connID   string
	identity domain.Identity
	conn     *websocket.Conn
	hub      *Hub
	send     chan Frame

	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, hub *Hub, identity domain.Identity, buffer int) *Client {
	return &Client{
		connID:   uuid.NewString(),
		identity: identity,
		conn:     conn,
		hub:      hub,
		send:     make(chan Frame, buffer),
	}
}

// Enqueue encola sin bloquear. False = buffer lleno, el frame se pierde
// para este cliente (el broadcaster lo contabiliza).
func (c *Client) Enqueue(f Frame) bool {
	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

// readPump lee frames hasta que la conexión muera y los despacha al
// hub. Corre en la goroutine del handler HTTP; al salir limpia la
// sesión igual que un leave explícito.
func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(contextWithConnLogger(c), c.connID)
		c.close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.hub.HandleHeartbeat(c.connID)
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.L().Debug("websocket closed abruptly",
					logger.Component("collab.client"),
					logger.ConnID(c.connID),
					logger.Err(err),
				)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.dispatch(raw)
	}
}

func (c *Client) dispatch(raw []byte) {
	ctx := contextWithConnLogger(c)

	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		c.hub.unicastError(c.connID, "BAD_FRAME", "malformed frame", "")
		return
	}

	switch f.Event {
	case EvJoin:
		var p JoinPayload
		if err := json.Unmarshal(f.Data, &p); err != nil || p.DatabaseID == "" {
			c.hub.unicastError(c.connID, "BAD_FRAME", "join-database requires database_id", "")
			return
		}
		c.hub.HandleJoin(ctx, c.connID, c.identity, p)
	case EvLeave:
		c.hub.HandleLeave(ctx, c.connID)
	case EvTyping:
		c.hub.HandleTyping(ctx, c.connID, false)
	case EvStopTyping:
		c.hub.HandleTyping(ctx, c.connID, true)
	case EvCursor:
		var p CursorPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return
		}
		c.hub.HandleCursor(ctx, c.connID, p)
	case EvQueryExec:
		var p QueryExecutedPayload
		if err := json.Unmarshal(f.Data, &p); err != nil || p.DatabaseID == "" || p.Query == "" {
			c.hub.unicastError(c.connID, "BAD_FRAME", "query-executed requires database_id and query", "")
			return
		}
		c.hub.HandleQueryExecuted(ctx, c.connID, p)
	case EvHeartbeat:
		c.hub.HandleHeartbeat(c.connID)
	default:
		c.hub.unicastError(c.connID, "UNKNOWN_EVENT", "unsupported event: "+f.Event, "")
	}
}

// writePump drena el buffer de salida y mantiene vivos los pings del
// protocolo. Una sola goroutine escribe sobre la conexión.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func contextWithConnLogger(c *Client) context.Context {
	l := logger.L().With(logger.ConnID(c.connID), logger.UserID(c.identity.ID))
	return logger.ToContext(context.Background(), l)
}

// ===== HANDLER DE UPGRADE =====

// WSHandler autentica el handshake y promueve la request a WebSocket.
// La credencial viaja en Authorization: Bearer o en el query param
// token (los browsers no mandan headers custom en el upgrade).
type WSHandler struct {
	hub        *Hub
	verifier   auth.Verifier
	upgrader   websocket.Upgrader
	sendBuffer int
}

func NewWSHandler(hub *Hub, verifier auth.Verifier, allowedOrigins []string, sendBuffer int) *WSHandler {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &WSHandler{
		hub:      hub,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		sendBuffer: sendBuffer,
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cred := bearerToken(r)
	identity, err := h.verifier.Verify(r.Context(), cred)
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrUnauthenticated.WithCause(err))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade ya respondió el error HTTP
		logger.From(r.Context()).Warn("websocket upgrade failed",
			logger.Component("collab.ws"),
			logger.Err(err),
		)
		return
	}

	client := newClient(conn, h.hub, identity, h.sendBuffer)
	h.hub.broadcaster.Attach(client.connID, client)

	logger.From(r.Context()).Info("websocket connected",
		logger.Component("collab.ws"),
		logger.ConnID(client.connID),
		logger.UserID(identity.ID),
	)

	go client.writePump()
	client.readPump()
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if after, ok := strings.CutPrefix(h, "Bearer "); ok {
			return after
		}
	}
	return r.URL.Query().Get("token")
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}
