package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

var (
	ErrSelfMessage      = errors.New("cannot message yourself")
	ErrInvalidContent   = errors.New("content must be between 1 and 1000 characters")
	ErrReceiverNotFound = errors.New("receiver not found")
)

const maxContentLength = 1000

// Pusher delivers payloads to online recipients. Implemented by ws.Registry.
type Pusher interface {
	SendToUser(userID int, payload []byte) bool
	Broadcast(payload []byte)
}

// Dispatcher bridges message creation from the REST path and the websocket
// path into one persist-then-deliver flow.
type Dispatcher struct {
	messages repositories.MessageRepository
	users    repositories.UserRepository
	pusher   Pusher
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(messages repositories.MessageRepository, users repositories.UserRepository, pusher Pusher) *Dispatcher {
	return &Dispatcher{messages: messages, users: users, pusher: pusher}
}

// SendChatMessage validates, persists and then best-effort delivers a direct
// message. Send success is defined by persistence alone: an offline recipient
// or a failed push is not an error, the message stays visible on the next
// fetch. Nothing is delivered when persistence fails.
func (d *Dispatcher) SendChatMessage(ctx context.Context, senderID, receiverID int, content, msgType string) (models.Message, error) {
	if senderID == receiverID {
		return models.Message{}, ErrSelfMessage
	}
	if n := utf8.RuneCountInString(content); n == 0 || n > maxContentLength {
		return models.Message{}, ErrInvalidContent
	}
	if msgType == "" {
		msgType = models.MessageTypeText
	}

	exists, err := d.users.UserExists(ctx, receiverID)
	if err != nil {
		return models.Message{}, fmt.Errorf("check receiver: %w", err)
	}
	if !exists {
		return models.Message{}, ErrReceiverNotFound
	}

	msg, err := d.messages.CreateMessage(ctx, senderID, receiverID, content, msgType)
	if err != nil {
		return models.Message{}, fmt.Errorf("store message: %w", err)
	}

	payload, err := json.Marshal(models.ChatFrame{
		Type:       models.FrameChat,
		FromUserID: msg.SenderID,
		ToUserID:   msg.ReceiverID,
		Content:    msg.Content,
		MessageID:  msg.ID,
		Timestamp:  msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err == nil && !d.pusher.SendToUser(receiverID, payload) {
		log.Printf("recipient offline, stored only message_id=%d receiver_id=%d", msg.ID, receiverID)
	}

	return msg, nil
}

// SendTyping relays a typing indicator to an online recipient. No
// persistence, no error: a dropped indicator is an accepted loss.
func (d *Dispatcher) SendTyping(senderID, receiverID int) {
	if senderID == receiverID {
		return
	}
	payload, err := json.Marshal(models.TypingFrame{
		Type:       models.FrameTyping,
		FromUserID: senderID,
	})
	if err != nil {
		return
	}
	d.pusher.SendToUser(receiverID, payload)
}

// BroadcastSystemNotice fans a system frame out to every connected client.
func (d *Dispatcher) BroadcastSystemNotice(content string) {
	payload, err := json.Marshal(models.SystemFrame{
		Type:    models.FrameSystem,
		Content: content,
	})
	if err != nil {
		return
	}
	d.pusher.Broadcast(payload)
}
