package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
)

// CloseCodeInvalidToken is sent before closing a channel whose credential
// failed verification.
const CloseCodeInvalidToken = 4001

const wsEventsRoutingKey = "ws_events.messages"

// TokenVerifier resolves the handshake credential to a user id.
type TokenVerifier interface {
	Verify(token string) (int, error)
}

// MessageSender is the dispatcher-side contract of the receive loop: persist
// and deliver chat messages, relay typing indicators.
type MessageSender interface {
	SendChatMessage(ctx context.Context, senderID, receiverID int, content, msgType string) (models.Message, error)
	SendTyping(senderID, receiverID int)
}

// Handler upgrades authenticated clients and runs their receive loop.
type Handler struct {
	registry *Registry
	verifier TokenVerifier
	sender   MessageSender
}

// NewHandler constructs a Handler.
func NewHandler(registry *Registry, verifier TokenVerifier, sender MessageSender) *Handler {
	return &Handler{registry: registry, verifier: verifier, sender: sender}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, verifies the bearer credential and joins
// the client to the registry. An invalid or expired credential closes the
// channel with code 4001 before any frame exchange.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messaging-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	userID, err := h.verifier.Verify(token)
	if err != nil {
		observability.IncWSEvent("ws_reject")
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(CloseCodeInvalidToken, "invalid token"))
		conn.Close()
		return
	}

	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}

	client := newClient(userID, conn, info)
	h.registry.Register(client)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	publishWSEvent(ctx, "ws_connect", info, "")

	go client.writePump()
	go h.readLoop(client)
}

// readLoop is the single receive loop per connection. Dispatches to other
// channels happen from this goroutine. On exit the client is unregistered so
// future sends treat the user as offline.
func (h *Handler) readLoop(client *Client) {
	ctx := context.Background()
	var closeReason string
	defer func() {
		h.registry.Unregister(client)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		publishWSEvent(ctx, "ws_disconnect", client.Info, closeReason)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxFrameSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				publishWSEvent(ctx, "ws_error", client.Info, closeReason)
			}
			return
		}
		h.handleFrame(ctx, client, raw)
	}
}

// handleFrame processes one client-originated frame. Malformed or invalid
// frames are dropped silently; no error frame is defined on this channel.
func (h *Handler) handleFrame(ctx context.Context, client *Client, raw []byte) {
	var frame models.InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return
	}

	switch frame.Type {
	case models.FrameChat:
		if frame.ToUserID == 0 || frame.Content == "" {
			return
		}
		// The sender identity is the one verified at handshake, never a
		// client-supplied field.
		if _, err := h.sender.SendChatMessage(ctx, client.UserID, frame.ToUserID, frame.Content, models.MessageTypeText); err != nil {
			log.Printf("ws chat rejected user_id=%d conn_id=%s: %v", client.UserID, client.Info.ConnID, err)
		}
	case models.FrameTyping:
		if frame.ToUserID != 0 {
			h.sender.SendTyping(client.UserID, frame.ToUserID)
		}
	default:
		// Unrecognized frame types are ignored.
	}
}

func publishWSEvent(ctx context.Context, event string, info ConnInfo, reason string) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(ctx, wsEventsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, headers)
}

// bearerToken pulls the credential from the path parameter, the query string
// or the Authorization header, in that order.
func bearerToken(c *gin.Context) string {
	if token := c.Param("token"); token != "" {
		return token
	}
	if token := c.Query("token"); token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}
