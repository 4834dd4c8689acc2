package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messaging-service/internal/models"
	"messaging-service/internal/realtime"
	"messaging-service/internal/repositories"
)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, senderID, receiverID int, content, msgType string) (models.Message, error) {
	args := m.Called(ctx, senderID, receiverID, content, msgType)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListBetween(ctx context.Context, userID, otherID, offset, limit int) ([]models.Message, int, error) {
	args := m.Called(ctx, userID, otherID, offset, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Int(1), args.Error(2)
}

func (m *MessageRepositoryMock) MarkConversationRead(ctx context.Context, senderID, receiverID int) error {
	args := m.Called(ctx, senderID, receiverID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) MarkMessageRead(ctx context.Context, messageID, receiverID int) error {
	args := m.Called(ctx, messageID, receiverID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) CountUnread(ctx context.Context, receiverID int) (int, error) {
	args := m.Called(ctx, receiverID)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) CountUnreadFrom(ctx context.Context, senderID, receiverID int) (int, error) {
	args := m.Called(ctx, senderID, receiverID)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) CounterpartIDs(ctx context.Context, userID int) ([]int, error) {
	args := m.Called(ctx, userID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

func (m *MessageRepositoryMock) LastMessageBetween(ctx context.Context, userID, otherID int) (*models.Message, error) {
	args := m.Called(ctx, userID, otherID)
	var msg *models.Message
	if val := args.Get(0); val != nil {
		msg = val.(*models.Message)
	}
	return msg, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, email, passwordHash, nickname string) (models.User, error) {
	args := m.Called(ctx, email, passwordHash, nickname)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) UserExists(ctx context.Context, userID int) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type PusherMock struct {
	mock.Mock
}

func (m *PusherMock) SendToUser(userID int, payload []byte) bool {
	args := m.Called(userID, payload)
	return args.Bool(0)
}

func (m *PusherMock) Broadcast(payload []byte) {
	m.Called(payload)
}

type DispatcherMock struct {
	mock.Mock
}

func (m *DispatcherMock) SendChatMessage(ctx context.Context, senderID, receiverID int, content, msgType string) (models.Message, error) {
	args := m.Called(ctx, senderID, receiverID, content, msgType)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type ConversationListerMock struct {
	mock.Mock
}

func (m *ConversationListerMock) List(ctx context.Context, userID int) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	var summaries []models.ConversationSummary
	if val := args.Get(0); val != nil {
		summaries = val.([]models.ConversationSummary)
	}
	return summaries, args.Error(1)
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ realtime.Pusher = (*PusherMock)(nil)
