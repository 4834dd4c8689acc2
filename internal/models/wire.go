package models

// Frame types exchanged over the websocket channel.
const (
	FrameChat   = "chat"
	FrameTyping = "typing"
	FrameSystem = "system"
)

// InboundFrame is a client-originated websocket frame. The sender identity is
// never taken from the frame; it is bound to the channel at handshake time.
type InboundFrame struct {
	Type     string `json:"type"`
	ToUserID int    `json:"to_user_id"`
	Content  string `json:"content"`
}

// ChatFrame is pushed to a recipient when a message addressed to them is
// stored. Timestamp is the server-side creation time in RFC 3339.
type ChatFrame struct {
	Type       string `json:"type"`
	FromUserID int    `json:"from_user_id"`
	ToUserID   int    `json:"to_user_id"`
	Content    string `json:"content"`
	MessageID  int    `json:"message_id"`
	Timestamp  string `json:"timestamp"`
}

// TypingFrame is the ephemeral typing indicator. Never persisted.
type TypingFrame struct {
	Type       string `json:"type"`
	FromUserID int    `json:"from_user_id"`
}

// SystemFrame is a notice fanned out to every connected client.
type SystemFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}
