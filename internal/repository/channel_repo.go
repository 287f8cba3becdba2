package repository

import (
	"context"

	"github.com/jobtalk/jobtalk-backend/internal/common"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
	"gorm.io/gorm"
)

// ChannelRepository channel data access interface.
// Channels are only ever inserted by RequestRepository.Accept.
type ChannelRepository interface {
	FindByID(ctx context.Context, id uint64) (*domain.Channel, error)
	FindByRequestID(ctx context.Context, requestID uint64) (*domain.Channel, error)
	ListByParticipant(ctx context.Context, userID uint64) ([]*domain.Channel, error)
}

type channelRepository struct {
	db *gorm.DB
}

// NewChannelRepository creates a new ChannelRepository
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) FindByID(ctx context.Context, id uint64) (*domain.Channel, error) {
	var ch domain.Channel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&ch).Error
	if err != nil {
		return nil, notFoundAs(err, common.ErrChannelNotFound)
	}
	return &ch, nil
}

func (r *channelRepository) FindByRequestID(ctx context.Context, requestID uint64) (*domain.Channel, error) {
	var ch domain.Channel
	err := r.db.WithContext(ctx).Where("application_id = ?", requestID).First(&ch).Error
	if err != nil {
		return nil, notFoundAs(err, common.ErrChannelNotFound)
	}
	return &ch, nil
}

// ListByParticipant returns the user's channels, most recently active first
func (r *channelRepository) ListByParticipant(ctx context.Context, userID uint64) ([]*domain.Channel, error) {
	var channels []*domain.Channel
	err := r.db.WithContext(ctx).
		Where("company_id = ? OR student_id = ?", userID, userID).
		Order("last_message_at DESC, id DESC").
		Find(&channels).Error
	if err != nil {
		return nil, err
	}
	return channels, nil
}
