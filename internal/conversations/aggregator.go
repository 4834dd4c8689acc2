package conversations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

// Aggregator derives per-user conversation summaries straight from the
// message log. Every call is a full recompute over the user's messages; there
// is no cached or materialized view. The walk is O(messages) and could become
// a single grouped query behind this same contract if read volume demands it.
type Aggregator struct {
	messages repositories.MessageRepository
	users    repositories.UserRepository
}

// NewAggregator constructs an Aggregator.
func NewAggregator(messages repositories.MessageRepository, users repositories.UserRepository) *Aggregator {
	return &Aggregator{messages: messages, users: users}
}

// List returns the user's conversations sorted by last-message time, newest
// first. Conversations without a last message sort to the end. Counterparts
// whose account no longer exists are skipped.
func (a *Aggregator) List(ctx context.Context, userID int) ([]models.ConversationSummary, error) {
	counterparts, err := a.messages.CounterpartIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list counterparts: %w", err)
	}

	summaries := make([]models.ConversationSummary, 0, len(counterparts))
	for _, otherID := range counterparts {
		other, err := a.users.GetUser(ctx, otherID)
		if errors.Is(err, repositories.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load counterpart %d: %w", otherID, err)
		}

		last, err := a.messages.LastMessageBetween(ctx, userID, otherID)
		if err != nil {
			return nil, fmt.Errorf("last message with %d: %w", otherID, err)
		}

		unread, err := a.messages.CountUnreadFrom(ctx, otherID, userID)
		if err != nil {
			return nil, fmt.Errorf("unread count from %d: %w", otherID, err)
		}

		summaries = append(summaries, models.ConversationSummary{
			User:        other.Public(),
			LastMessage: last,
			UnreadCount: unread,
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return lastActivity(summaries[i]).After(lastActivity(summaries[j]))
	})
	return summaries, nil
}

func lastActivity(s models.ConversationSummary) time.Time {
	if s.LastMessage == nil {
		return time.Time{}
	}
	return s.LastMessage.CreatedAt
}
