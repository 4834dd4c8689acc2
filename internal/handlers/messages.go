package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
	"messaging-service/internal/realtime"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ConversationLister derives the conversation list for a user.
type ConversationLister interface {
	List(ctx context.Context, userID int) ([]models.ConversationSummary, error)
}

// MessageDispatcher persists and delivers direct messages.
type MessageDispatcher interface {
	SendChatMessage(ctx context.Context, senderID, receiverID int, content, msgType string) (models.Message, error)
}

// MessageHandler manages the direct-message endpoints.
type MessageHandler struct {
	conversations ConversationLister
	dispatcher    MessageDispatcher
	messages      repositories.MessageRepository
	users         repositories.UserRepository
	emitter       *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(conversations ConversationLister, dispatcher MessageDispatcher, messages repositories.MessageRepository, users repositories.UserRepository, emitter *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		conversations: conversations,
		dispatcher:    dispatcher,
		messages:      messages,
		users:         users,
		emitter:       emitter,
	}
}

// ListConversations returns the caller's conversations sorted by recency.
func (h *MessageHandler) ListConversations(c *gin.Context) {
	userID := c.GetInt("userID")

	summaries, err := h.conversations.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// GetMessages returns one page of the thread with a counterpart, oldest first
// within the page, and marks every unread message from the counterpart to the
// caller as read. Viewing a thread is acknowledging it.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	otherID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	page, pageSize, ok := parsePagination(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if _, err := h.users.GetUser(c.Request.Context(), otherID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "user not found"})
		return
	}

	msgs, total, err := h.messages.ListBetween(c.Request.Context(), userID, otherID, (page-1)*pageSize, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	if err := h.messages.MarkConversationRead(c.Request.Context(), otherID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark messages read"})
		return
	}

	// Fetched newest-first for pagination; display order is oldest-first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	c.JSON(http.StatusOK, gin.H{
		"items":     msgs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// SendMessage persists a direct message and pushes it to the recipient when
// online.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req struct {
		ReceiverID int    `json:"receiver_id" binding:"required"`
		Content    string `json:"content" binding:"required,min=1,max=1000"`
		MsgType    string `json:"msg_type" binding:"omitempty,oneof=text image system"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.dispatcher.SendChatMessage(c.Request.Context(), userID, req.ReceiverID, req.Content, req.MsgType)
	if err != nil {
		switch {
		case errors.Is(err, realtime.ErrSelfMessage), errors.Is(err, realtime.ErrInvalidContent):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, realtime.ErrReceiverNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "receiver not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		}
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO",
		fmt.Sprintf("message sent message_id=%d receiver_id=%d", msg.ID, msg.ReceiverID),
		requestIDFromContext(c), auditUserID(userID))

	var sender *models.PublicUser
	if user, err := h.users.GetUser(c.Request.Context(), userID); err == nil {
		pub := user.Public()
		sender = &pub
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg, "sender": sender})
}

// MarkMessageRead marks a single received message as read. Idempotent.
func (h *MessageHandler) MarkMessageRead(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	userID := c.GetInt("userID")
	if err := h.messages.MarkMessageRead(c.Request.Context(), messageID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

// UnreadCount returns the caller's total unread message count.
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	userID := c.GetInt("userID")

	count, err := h.messages.CountUnread(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count unread messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func parsePagination(c *gin.Context) (int, int, bool) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
			return 0, 0, false
		}
		page = parsed
	}

	pageSize := defaultPageSize
	if raw := c.Query("page_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxPageSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page size"})
			return 0, 0, false
		}
		pageSize = parsed
	}

	return page, pageSize, true
}

func auditUserID(userID int) *string {
	if userID == 0 {
		return nil
	}
	value := strconv.Itoa(userID)
	return &value
}
