package repository

import (
	"context"
	"time"

	"github.com/jobtalk/jobtalk-backend/internal/common"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
	"gorm.io/gorm"
)

// MessageCursor is a position in a channel's (created_at, id) order
type MessageCursor struct {
	CreatedAt time.Time
	ID        uint64
}

// ChatMessageRepository append-only message log
type ChatMessageRepository interface {
	Append(ctx context.Context, msg *domain.ChatMessage) error
	ListAfter(ctx context.Context, channelID uint64, after *MessageCursor, limit int) ([]*domain.ChatMessage, error)
	CountAfter(ctx context.Context, channelID, excludeSenderID uint64, since *time.Time) (int64, error)
}

type chatMessageRepository struct {
	db *gorm.DB
}

// NewChatMessageRepository creates a new ChatMessageRepository
func NewChatMessageRepository(db *gorm.DB) ChatMessageRepository {
	return &chatMessageRepository{db: db}
}

// Append persists the message, bumps the channel's last activity and
// advances the sender's own read marker, all in one transaction.
func (r *chatMessageRepository) Append(ctx context.Context, msg *domain.ChatMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ch domain.Channel
		if err := tx.Select("id").Where("id = ?", msg.ChannelID).First(&ch).Error; err != nil {
			return notFoundAs(err, common.ErrChannelNotFound)
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		err := tx.Model(&domain.Channel{}).
			Where("id = ? AND last_message_at < ?", msg.ChannelID, msg.CreatedAt).
			Update("last_message_at", msg.CreatedAt).Error
		if err != nil {
			return err
		}
		return advanceMarker(tx, msg.SenderID, msg.ChannelID, msg.CreatedAt)
	})
}

// ListAfter returns up to limit messages strictly after the cursor, oldest first
func (r *chatMessageRepository) ListAfter(ctx context.Context, channelID uint64, after *MessageCursor, limit int) ([]*domain.ChatMessage, error) {
	query := r.db.WithContext(ctx).Where("chat_room_id = ?", channelID)
	if after != nil {
		query = query.Where("created_at > ? OR (created_at = ? AND id > ?)", after.CreatedAt, after.CreatedAt, after.ID)
	}
	var messages []*domain.ChatMessage
	err := query.Order("created_at ASC, id ASC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// CountAfter counts messages not sent by excludeSenderID, newer than since when given
func (r *chatMessageRepository) CountAfter(ctx context.Context, channelID, excludeSenderID uint64, since *time.Time) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.ChatMessage{}).
		Where("chat_room_id = ? AND sender_id <> ?", channelID, excludeSenderID)
	if since != nil {
		query = query.Where("created_at > ?", *since)
	}
	err := query.Count(&count).Error
	return count, err
}
