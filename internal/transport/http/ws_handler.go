package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"faculty-eval-service/internal/app"
	"faculty-eval-service/internal/domain"
)

const (
	msgSubscribe  = "admin:subscribe"
	msgSubscribed = "subscribed"
	msgError      = "error"

	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	writeWait  = 10 * time.Second
)

// WSHandler streams evaluation events from the hub's admin room to dashboard clients.
type WSHandler struct {
	hub      *app.Hub
	tokens   TokenParser
	users    UserLookup
	log      *zap.Logger
	upgrader websocket.Upgrader

	// inbound messages per second and burst allowed per connection
	limit rate.Limit
	burst int

	onConnect func(delta int)
}

func NewWSHandler(hub *app.Hub, tokens TokenParser, users UserLookup, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		hub:    hub,
		tokens: tokens,
		users:  users,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		limit:     rate.Limit(5),
		burst:     10,
		onConnect: func(int) {},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type subscribedPayload struct {
	Room string `json:"room"`
}

// ServeWS authenticates an admin via ?token= or the Authorization header, upgrades the
// connection and forwards admin-room events once the client sends admin:subscribe.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	usr, err := principal(r, h.tokens, h.users)
	if err != nil {
		writeHTTPError(w, err)
		return
	}
	if !usr.Role.IsAdmin() {
		writeHTTPError(w, domain.ErrPermissionDenied)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	h.onConnect(1)
	defer h.onConnect(-1)

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	forwarders := make(chan struct{}, 1)

	// Single writer: gorilla connections allow one concurrent writer.
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-send:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					h.log.Debug("ws write error", zap.Error(err))
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// enqueue never blocks the read loop once the writer has gone away.
	enqueue := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		}
	}

	var cancel func()
	limiter := rate.NewLimiter(h.limit, h.burst)

readLoop:
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !limiter.Allow() {
			if !enqueue(outboundMessage[any]{Type: msgError, Payload: errorPayload{Message: "rate limit exceeded"}}) {
				break readLoop
			}
			continue
		}
		switch inbound.Type {
		case msgSubscribe:
			if cancel == nil {
				var events <-chan domain.Event
				events, cancel = h.hub.Subscribe(domain.AdminRoom)
				forwarders <- struct{}{}
				go func() {
					defer func() { <-forwarders }()
					for {
						select {
						case ev, ok := <-events:
							if !ok {
								return
							}
							select {
							case send <- outboundMessage[any]{Type: ev.Type, Payload: ev.Payload}:
							case <-closeSignals:
								return
							case <-writerDone:
								return
							}
						case <-closeSignals:
							return
						}
					}
				}()
				h.log.Info("admin subscribed", zap.String("user_id", usr.ID))
			}
			if !enqueue(outboundMessage[any]{Type: msgSubscribed, Payload: subscribedPayload{Room: domain.AdminRoom}}) {
				break readLoop
			}
		default:
			if !enqueue(outboundMessage[any]{Type: msgError, Payload: errorPayload{Message: "unsupported message type"}}) {
				break readLoop
			}
		}
	}

	close(closeSignals)
	if cancel != nil {
		cancel()
	}
	// wait for the forwarder before closing send
	forwarders <- struct{}{}
	close(send)
	<-writerDone
}

func writeHTTPError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(err))
	_ = json.NewEncoder(w).Encode(errorResponse{Message: err.Error()})
}
