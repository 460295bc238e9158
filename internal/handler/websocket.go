package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"cliprelay/internal/auth"
	"cliprelay/internal/hub"
	"cliprelay/internal/model"
	"cliprelay/internal/relay"
	"cliprelay/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Incoming socket message types.
const (
	typeAuth         = "AUTH"
	typeAuthPair     = "AUTH_PAIR"
	typeUpdateRules  = "UPDATE_RULES"
	typeClipUpdate   = "CLIP_UPDATE"
	typeFileOffer    = "FILE_OFFER"
	typeRevokeDevice = "REVOKE_DEVICE"
)

// Server-pushed types not owned by the relay engine.
const (
	typeAuthOK   = "AUTH_OK"
	typeAuthFail = "AUTH_FAIL"
	typeError    = "ERROR"
)

// 5 MiB of file payload grows by 4/3 as base64 plus JSON framing.
const maxFrameBytes = 8 << 20

type WebSocketHandler struct {
	Hub              *hub.Hub
	Store            *store.Store
	Engine           *relay.Engine
	TokenConfig      auth.TokenConfig
	RequireSignature bool
}

type clientFrame struct {
	Type         string           `json:"type"`
	UserID       string           `json:"userId,omitempty"`
	DeviceID     string           `json:"deviceId,omitempty"`
	Platform     string           `json:"platform,omitempty"`
	Name         string           `json:"name,omitempty"`
	PairingToken string           `json:"pairingToken,omitempty"`
	Rules        *model.RulePatch `json:"rules,omitempty"`
	ContentType  string           `json:"contentType,omitempty"`
	Payload      string           `json:"payload,omitempty"`
	Timestamp    int64            `json:"timestamp,omitempty"`
	Size         int64            `json:"size,omitempty"`
	Mime         string           `json:"mime,omitempty"`
	PublicKey    string           `json:"publicKey,omitempty"`
	Challenge    string           `json:"challenge,omitempty"`
	Signature    string           `json:"signature,omitempty"`
}

type serverFrame struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) Write(message []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.conn.WriteMessage(websocket.TextMessage, message)
}

func (w *wsWriter) Close() error {
	return w.conn.Close()
}

func (h *WebSocketHandler) Serve(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	writer := &wsWriter{conn: ws}
	defer func() {
		_ = ws.Close()
	}()

	ws.SetReadLimit(maxFrameBytes)
	const pongWait = 60 * time.Second
	const writeWait = 10 * time.Second
	pingPeriod := (pongWait * 9) / 10

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	var closeOnce sync.Once
	closeDone := func() {
		closeOnce.Do(func() {
			close(done)
		})
	}
	defer closeDone()

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				deadline := time.Now().Add(writeWait)
				if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					_ = ws.Close()
					return
				}
			}
		}
	}()

	// Connection state machine: nil session = unauthenticated. Messages
	// are processed strictly in arrival order.
	var sess *hub.Session

	defer func() {
		if sess != nil {
			if h.Hub.Disconnect(sess.UserID, sess.DeviceID, writer) {
				h.Engine.PublishPresence(sess.UserID)
			}
		}
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var msg clientFrame
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(writer, "Invalid message")
			continue
		}

		if sess == nil {
			switch msg.Type {
			case typeAuth:
				if next, closed := h.handleAuth(writer, msg); closed {
					return
				} else if next != nil {
					sess = next
				}
			case typeAuthPair:
				if next, closed := h.handleAuthPair(writer, msg); closed {
					return
				} else if next != nil {
					sess = next
				}
			default:
				h.sendError(writer, "Not authenticated")
			}
			continue
		}

		h.Hub.Touch(sess.UserID, sess.DeviceID, time.Now().UnixMilli())

		switch msg.Type {
		case typeAuth, typeAuthPair:
			h.sendError(writer, "Already authenticated")
		case typeUpdateRules:
			h.handleUpdateRules(writer, sess, msg)
		case typeClipUpdate:
			h.handleClipUpdate(writer, sess, msg)
		case typeFileOffer:
			h.handleFileOffer(writer, sess, msg)
		case typeRevokeDevice:
			if msg.DeviceID == "" {
				h.sendError(writer, "Missing deviceId")
				continue
			}
			h.Engine.RevokeDevice(sess.UserID, msg.DeviceID)
			if msg.DeviceID == sess.DeviceID {
				// self-revocation closed this connection too
				return
			}
		default:
			h.sendError(writer, "Unknown message type")
		}
	}
}

// handleAuth processes direct-credential authentication. Returns the new
// session, or closed=true when the connection must not continue.
func (h *WebSocketHandler) handleAuth(w hub.Writer, msg clientFrame) (*hub.Session, bool) {
	if msg.UserID == "" || msg.DeviceID == "" {
		h.sendError(w, "Missing userId or deviceId")
		return nil, false
	}
	if h.RequireSignature {
		if err := auth.VerifyDeviceSignature(msg.PublicKey, msg.Challenge, msg.Signature); err != nil {
			h.send(w, serverFrame{Type: typeAuthFail, Message: err.Error()})
			return nil, false
		}
	}
	return h.finishAuth(w, msg.UserID, msg)
}

// handleAuthPair consumes a pairing token. An invalid or expired token
// gets AUTH_FAIL and the connection stays open for retry.
func (h *WebSocketHandler) handleAuthPair(w hub.Writer, msg clientFrame) (*hub.Session, bool) {
	if msg.DeviceID == "" {
		h.sendError(w, "Missing deviceId")
		return nil, false
	}
	userID, ok := h.Store.ConsumeToken(msg.PairingToken)
	if !ok {
		h.send(w, serverFrame{Type: typeAuthFail, Message: "Invalid or expired pairing token"})
		return nil, false
	}
	return h.finishAuth(w, userID, msg)
}

// finishAuth is the shared tail of both auth paths: revocation check,
// registration (evicting any prior handle for the slot), AUTH_OK with a
// management token, offline queue flush, presence broadcast.
func (h *WebSocketHandler) finishAuth(w hub.Writer, userID string, msg clientFrame) (*hub.Session, bool) {
	if h.Store.IsRevoked(userID, msg.DeviceID) {
		h.send(w, serverFrame{Type: relay.TypeDeviceRevoked, Message: "Device revoked"})
		_ = w.Close()
		return nil, true
	}

	sess := &hub.Session{
		UserID:   userID,
		DeviceID: msg.DeviceID,
		Platform: msg.Platform,
		Name:     msg.Name,
		Rules:    model.DefaultRules(msg.Platform),
		LastSeen: time.Now().UnixMilli(),
		Writer:   w,
	}
	h.Hub.Register(sess)

	token, err := auth.CreateToken(userID, h.TokenConfig)
	if err != nil {
		token = ""
	}
	h.send(w, serverFrame{Type: typeAuthOK, UserID: userID, Token: token})

	h.Engine.FlushQueue(*sess)
	h.Engine.PublishPresence(userID)
	return sess, false
}

func (h *WebSocketHandler) handleUpdateRules(w hub.Writer, sess *hub.Session, msg clientFrame) {
	if msg.Rules == nil {
		h.sendError(w, "Missing rules")
		return
	}
	if _, ok := h.Hub.UpdateRules(sess.UserID, sess.DeviceID, *msg.Rules); ok {
		h.Engine.PublishPresence(sess.UserID)
	}
}

func (h *WebSocketHandler) handleClipUpdate(w hub.Writer, sess *hub.Session, msg clientFrame) {
	if msg.ContentType == "" {
		h.sendError(w, "Missing contentType")
		return
	}
	sender, ok := h.Hub.Get(sess.UserID, sess.DeviceID)
	if !ok {
		return
	}
	h.Engine.RelayClip(sender, msg.ContentType, msg.Payload, msg.Timestamp)
}

func (h *WebSocketHandler) handleFileOffer(w hub.Writer, sess *hub.Session, msg clientFrame) {
	data, err := base64.StdEncoding.DecodeString(msg.Payload)
	if err != nil {
		h.sendError(w, "Invalid file payload")
		return
	}
	if msg.Size > h.Store.MaxFileBytes() || int64(len(data)) > h.Store.MaxFileBytes() {
		h.sendError(w, "File too large")
		return
	}
	sender, ok := h.Hub.Get(sess.UserID, sess.DeviceID)
	if !ok {
		return
	}
	if _, err := h.Engine.OfferFile(sender, msg.Name, msg.Mime, data); err != nil {
		h.sendError(w, "File too large")
	}
}

func (h *WebSocketHandler) send(w hub.Writer, frame serverFrame) {
	out, err := json.Marshal(frame)
	if err != nil {
		return
	}
	_ = w.Write(out)
}

func (h *WebSocketHandler) sendError(w hub.Writer, message string) {
	h.send(w, serverFrame{Type: typeError, Message: message})
}
