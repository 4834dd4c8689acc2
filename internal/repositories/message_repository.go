package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, sender_id, receiver_id, content, msg_type, is_read, created_at`

// MessageRepository is the durable message log: append, paginated reads and
// read-flag transitions. It is the single source of truth for delivery state.
type MessageRepository interface {
	CreateMessage(ctx context.Context, senderID, receiverID int, content, msgType string) (models.Message, error)
	ListBetween(ctx context.Context, userID, otherID, offset, limit int) ([]models.Message, int, error)
	MarkConversationRead(ctx context.Context, senderID, receiverID int) error
	MarkMessageRead(ctx context.Context, messageID, receiverID int) error
	CountUnread(ctx context.Context, receiverID int) (int, error)
	CountUnreadFrom(ctx context.Context, senderID, receiverID int) (int, error)
	CounterpartIDs(ctx context.Context, userID int) ([]int, error)
	LastMessageBetween(ctx context.Context, userID, otherID int) (*models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage appends a message to the log with the server-side timestamp.
func (r *MessageRepo) CreateMessage(ctx context.Context, senderID, receiverID int, content, msgType string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (sender_id, receiver_id, content, msg_type) VALUES ($1, $2, $3, $4)
         RETURNING `+messageColumns,
		senderID, receiverID, content, msgType).StructScan(&msg)
	return msg, err
}

// ListBetween returns one page of the thread between two users, newest first,
// along with the total thread size.
func (r *MessageRepo) ListBetween(ctx context.Context, userID, otherID, offset, limit int) ([]models.Message, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM messages
         WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)`,
		userID, otherID)
	if err != nil {
		return nil, 0, err
	}

	var msgs []models.Message
	err = r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages
         WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
         ORDER BY created_at DESC, id DESC
         OFFSET $3 LIMIT $4`,
		userID, otherID, offset, limit)
	return msgs, total, err
}

// MarkConversationRead flips the read flag on every unread message from
// senderID to receiverID. Already-read rows are untouched.
func (r *MessageRepo) MarkConversationRead(ctx context.Context, senderID, receiverID int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE messages SET is_read = TRUE
         WHERE sender_id=$1 AND receiver_id=$2 AND is_read = FALSE`,
		senderID, receiverID)
	return err
}

// MarkMessageRead marks a single message read. Only the addressed receiver
// can flip the flag; re-marking a read message is a no-op, not an error.
func (r *MessageRepo) MarkMessageRead(ctx context.Context, messageID, receiverID int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET is_read = TRUE WHERE id=$1 AND receiver_id=$2`,
		messageID, receiverID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// CountUnread returns the user's total unread count across all counterparts.
func (r *MessageRepo) CountUnread(ctx context.Context, receiverID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM messages WHERE receiver_id=$1 AND is_read = FALSE`,
		receiverID)
	return count, err
}

// CountUnreadFrom returns the unread count within a single thread.
func (r *MessageRepo) CountUnreadFrom(ctx context.Context, senderID, receiverID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM messages WHERE sender_id=$1 AND receiver_id=$2 AND is_read = FALSE`,
		senderID, receiverID)
	return count, err
}

// CounterpartIDs returns the distinct users the given user has exchanged
// messages with, in either direction.
func (r *MessageRepo) CounterpartIDs(ctx context.Context, userID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids,
		`SELECT DISTINCT CASE WHEN sender_id=$1 THEN receiver_id ELSE sender_id END
         FROM messages WHERE sender_id=$1 OR receiver_id=$1`,
		userID)
	return ids, err
}

// LastMessageBetween returns the most recent message between the pair, or nil
// when the pair has no messages.
func (r *MessageRepo) LastMessageBetween(ctx context.Context, userID, otherID int) (*models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT `+messageColumns+` FROM messages
         WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
         ORDER BY created_at DESC, id DESC LIMIT 1`,
		userID, otherID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
