package repository

import (
	"context"
	"time"

	"github.com/jobtalk/jobtalk-backend/internal/common"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReadMarkerRepository read marker data access interface
type ReadMarkerRepository interface {
	Find(ctx context.Context, userID, channelID uint64) (*domain.ReadMarker, error)
	Advance(ctx context.Context, userID, channelID uint64, at time.Time) (*domain.ReadMarker, error)
}

type readMarkerRepository struct {
	db *gorm.DB
}

// NewReadMarkerRepository creates a new ReadMarkerRepository
func NewReadMarkerRepository(db *gorm.DB) ReadMarkerRepository {
	return &readMarkerRepository{db: db}
}

func (r *readMarkerRepository) Find(ctx context.Context, userID, channelID uint64) (*domain.ReadMarker, error) {
	var m domain.ReadMarker
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND chat_room_id = ?", userID, channelID).
		First(&m).Error
	if err != nil {
		return nil, notFoundAs(err, common.ErrNotFound)
	}
	return &m, nil
}

// Advance upserts the marker, moving it forward only
func (r *readMarkerRepository) Advance(ctx context.Context, userID, channelID uint64, at time.Time) (*domain.ReadMarker, error) {
	var m domain.ReadMarker
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := advanceMarker(tx, userID, channelID, at); err != nil {
			return err
		}
		return tx.Where("user_id = ? AND chat_room_id = ?", userID, channelID).First(&m).Error
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// advanceMarker inserts the marker if missing, then raises it if at is newer.
// The conditional update keeps concurrent callers from regressing it.
func advanceMarker(tx *gorm.DB, userID, channelID uint64, at time.Time) error {
	marker := &domain.ReadMarker{UserID: userID, ChannelID: channelID, LastReadAt: at}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(marker).Error; err != nil {
		return err
	}
	return tx.Model(&domain.ReadMarker{}).
		Where("user_id = ? AND chat_room_id = ? AND last_read_at < ?", userID, channelID, at).
		Update("last_read_at", at).Error
}
