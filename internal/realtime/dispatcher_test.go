package realtime_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/realtime"
)

func newDispatcher() (*realtime.Dispatcher, *mocks.MessageRepositoryMock, *mocks.UserRepositoryMock, *mocks.PusherMock) {
	messages := new(mocks.MessageRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	pusher := new(mocks.PusherMock)
	return realtime.NewDispatcher(messages, users, pusher), messages, users, pusher
}

func TestSendChatMessagePersistsAndPushes(t *testing.T) {
	dispatcher, messages, users, pusher := newDispatcher()

	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	stored := models.Message{ID: 42, SenderID: 1, ReceiverID: 2, Content: "hello", MsgType: models.MessageTypeText, CreatedAt: created}

	users.On("UserExists", mock.Anything, 2).Return(true, nil).Once()
	messages.On("CreateMessage", mock.Anything, 1, 2, "hello", models.MessageTypeText).Return(stored, nil).Once()
	pusher.On("SendToUser", 2, mock.MatchedBy(func(payload []byte) bool {
		var frame models.ChatFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			return false
		}
		return frame.Type == models.FrameChat &&
			frame.MessageID == 42 &&
			frame.FromUserID == 1 &&
			frame.ToUserID == 2 &&
			frame.Content == "hello" &&
			frame.Timestamp == created.Format(time.RFC3339Nano)
	})).Return(true).Once()

	msg, err := dispatcher.SendChatMessage(context.Background(), 1, 2, "hello", "")
	require.NoError(t, err)
	assert.Equal(t, stored, msg)

	messages.AssertExpectations(t)
	users.AssertExpectations(t)
	pusher.AssertExpectations(t)
}

func TestSendChatMessageToSelf(t *testing.T) {
	dispatcher, messages, _, pusher := newDispatcher()

	_, err := dispatcher.SendChatMessage(context.Background(), 1, 1, "hello", "")
	assert.ErrorIs(t, err, realtime.ErrSelfMessage)

	messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	pusher.AssertNotCalled(t, "SendToUser", mock.Anything, mock.Anything)
}

func TestSendChatMessageContentBounds(t *testing.T) {
	dispatcher, _, _, _ := newDispatcher()

	_, err := dispatcher.SendChatMessage(context.Background(), 1, 2, "", "")
	assert.ErrorIs(t, err, realtime.ErrInvalidContent)

	_, err = dispatcher.SendChatMessage(context.Background(), 1, 2, strings.Repeat("a", 1001), "")
	assert.ErrorIs(t, err, realtime.ErrInvalidContent)
}

func TestSendChatMessageCountsRunesNotBytes(t *testing.T) {
	dispatcher, messages, users, pusher := newDispatcher()

	// 1000 runes but well over 1000 bytes must still pass.
	content := strings.Repeat("é", 1000)
	users.On("UserExists", mock.Anything, 2).Return(true, nil).Once()
	messages.On("CreateMessage", mock.Anything, 1, 2, content, models.MessageTypeText).
		Return(models.Message{ID: 1, SenderID: 1, ReceiverID: 2, Content: content}, nil).Once()
	pusher.On("SendToUser", 2, mock.Anything).Return(true).Once()

	_, err := dispatcher.SendChatMessage(context.Background(), 1, 2, content, "")
	require.NoError(t, err)
	messages.AssertExpectations(t)
}

func TestSendChatMessageUnknownReceiver(t *testing.T) {
	dispatcher, messages, users, pusher := newDispatcher()

	users.On("UserExists", mock.Anything, 99).Return(false, nil).Once()

	_, err := dispatcher.SendChatMessage(context.Background(), 1, 99, "hello", "")
	assert.ErrorIs(t, err, realtime.ErrReceiverNotFound)

	messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	pusher.AssertNotCalled(t, "SendToUser", mock.Anything, mock.Anything)
}

func TestSendChatMessageStorageFailure(t *testing.T) {
	dispatcher, messages, users, pusher := newDispatcher()

	users.On("UserExists", mock.Anything, 2).Return(true, nil).Once()
	messages.On("CreateMessage", mock.Anything, 1, 2, "hello", models.MessageTypeText).
		Return(models.Message{}, errors.New("db down")).Once()

	_, err := dispatcher.SendChatMessage(context.Background(), 1, 2, "hello", "")
	require.Error(t, err)

	// Nothing may be delivered for a message that was never persisted.
	pusher.AssertNotCalled(t, "SendToUser", mock.Anything, mock.Anything)
}

func TestSendChatMessageOfflineRecipient(t *testing.T) {
	dispatcher, messages, users, pusher := newDispatcher()

	stored := models.Message{ID: 7, SenderID: 1, ReceiverID: 2, Content: "hello", MsgType: models.MessageTypeText, CreatedAt: time.Now()}
	users.On("UserExists", mock.Anything, 2).Return(true, nil).Once()
	messages.On("CreateMessage", mock.Anything, 1, 2, "hello", models.MessageTypeText).Return(stored, nil).Once()
	pusher.On("SendToUser", 2, mock.Anything).Return(false).Once()

	msg, err := dispatcher.SendChatMessage(context.Background(), 1, 2, "hello", "")
	require.NoError(t, err)
	assert.Equal(t, 7, msg.ID)
}

func TestSendTypingRelaysWithoutPersistence(t *testing.T) {
	dispatcher, messages, _, pusher := newDispatcher()

	pusher.On("SendToUser", 2, mock.MatchedBy(func(payload []byte) bool {
		var frame models.TypingFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			return false
		}
		return frame.Type == models.FrameTyping && frame.FromUserID == 1
	})).Return(true).Once()

	dispatcher.SendTyping(1, 2)

	pusher.AssertExpectations(t)
	messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendTypingToSelfIsNoop(t *testing.T) {
	dispatcher, _, _, pusher := newDispatcher()

	dispatcher.SendTyping(3, 3)

	pusher.AssertNotCalled(t, "SendToUser", mock.Anything, mock.Anything)
}

func TestBroadcastSystemNotice(t *testing.T) {
	dispatcher, _, _, pusher := newDispatcher()

	pusher.On("Broadcast", mock.MatchedBy(func(payload []byte) bool {
		var frame models.SystemFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			return false
		}
		return frame.Type == models.FrameSystem && frame.Content == "maintenance at noon"
	})).Once()

	dispatcher.BroadcastSystemNotice("maintenance at noon")

	pusher.AssertExpectations(t)
}
