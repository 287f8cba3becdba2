package repository

import (
	"context"
	"time"

	"github.com/jobtalk/jobtalk-backend/internal/common"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
	"gorm.io/gorm"
)

// RequestRepository chat request data access interface
type RequestRepository interface {
	Create(ctx context.Context, req *domain.ChatRequest) error
	FindByID(ctx context.Context, id uint64) (*domain.ChatRequest, error)
	FindByListingAndRequester(ctx context.Context, listingID, requesterID uint64) (*domain.ChatRequest, error)
	ListByRequester(ctx context.Context, requesterID uint64, status *domain.RequestStatus) ([]*domain.ChatRequest, error)
	ListByResponder(ctx context.Context, responderID uint64, status *domain.RequestStatus) ([]*domain.ChatRequest, error)
	ListAll(ctx context.Context, status *domain.RequestStatus) ([]*domain.ChatRequest, error)
	Accept(ctx context.Context, id uint64, at time.Time) (*domain.ChatRequest, *domain.Channel, error)
	Reject(ctx context.Context, id uint64, at time.Time) (*domain.ChatRequest, error)
	Delete(ctx context.Context, id uint64) ([]uint64, error)
}

type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository creates a new RequestRepository
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

// Create inserts a new request. A duplicate (listing, requester) pair
// surfaces as common.ErrConflict.
func (r *requestRepository) Create(ctx context.Context, req *domain.ChatRequest) error {
	return conflictOr(r.db.WithContext(ctx).Create(req).Error)
}

func (r *requestRepository) FindByID(ctx context.Context, id uint64) (*domain.ChatRequest, error) {
	var req domain.ChatRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		return nil, notFoundAs(err, common.ErrRequestNotFound)
	}
	return &req, nil
}

func (r *requestRepository) FindByListingAndRequester(ctx context.Context, listingID, requesterID uint64) (*domain.ChatRequest, error) {
	var req domain.ChatRequest
	err := r.db.WithContext(ctx).
		Where("job_post_id = ? AND student_id = ?", listingID, requesterID).
		First(&req).Error
	if err != nil {
		return nil, notFoundAs(err, common.ErrRequestNotFound)
	}
	return &req, nil
}

func (r *requestRepository) ListByRequester(ctx context.Context, requesterID uint64, status *domain.RequestStatus) ([]*domain.ChatRequest, error) {
	return r.list(r.db.WithContext(ctx).Where("student_id = ?", requesterID), status)
}

func (r *requestRepository) ListByResponder(ctx context.Context, responderID uint64, status *domain.RequestStatus) ([]*domain.ChatRequest, error) {
	return r.list(r.db.WithContext(ctx).Where("company_id = ?", responderID), status)
}

func (r *requestRepository) ListAll(ctx context.Context, status *domain.RequestStatus) ([]*domain.ChatRequest, error) {
	return r.list(r.db.WithContext(ctx), status)
}

func (r *requestRepository) list(query *gorm.DB, status *domain.RequestStatus) ([]*domain.ChatRequest, error) {
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var reqs []*domain.ChatRequest
	if err := query.Order("created_at DESC, id DESC").Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

// Accept moves a REQUESTED request to ACCEPTED and creates its channel in
// one transaction. If the request is no longer REQUESTED when the update
// runs, or a channel for it already exists, nothing is written and
// common.ErrConflict is returned.
func (r *requestRepository) Accept(ctx context.Context, id uint64, at time.Time) (*domain.ChatRequest, *domain.Channel, error) {
	var (
		req     domain.ChatRequest
		channel *domain.Channel
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := transition(tx, id, domain.RequestAccepted, at); err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).First(&req).Error; err != nil {
			return err
		}
		channel = domain.NewChannelFor(&req, at)
		return conflictOr(tx.Create(channel).Error)
	})
	if err != nil {
		return nil, nil, err
	}
	return &req, channel, nil
}

// Reject moves a REQUESTED request to REJECTED
func (r *requestRepository) Reject(ctx context.Context, id uint64, at time.Time) (*domain.ChatRequest, error) {
	var req domain.ChatRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := transition(tx, id, domain.RequestRejected, at); err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&req).Error
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// transition is a compare-and-swap on status: it only matches rows still in REQUESTED
func transition(tx *gorm.DB, id uint64, to domain.RequestStatus, at time.Time) error {
	result := tx.Model(&domain.ChatRequest{}).
		Where("id = ? AND status = ?", id, domain.RequestRequested).
		Updates(map[string]interface{}{
			"status":       to,
			"responded_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrConflict
	}
	return nil
}

// Delete removes a request together with its channel, messages and read
// markers, and returns the ids of the channels it removed.
func (r *requestRepository) Delete(ctx context.Context, id uint64) ([]uint64, error) {
	var channelIDs []uint64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Channel{}).Where("application_id = ?", id).Pluck("id", &channelIDs).Error; err != nil {
			return err
		}
		if len(channelIDs) > 0 {
			if err := tx.Where("chat_room_id IN ?", channelIDs).Delete(&domain.ChatMessage{}).Error; err != nil {
				return err
			}
			if err := tx.Where("chat_room_id IN ?", channelIDs).Delete(&domain.ReadMarker{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", channelIDs).Delete(&domain.Channel{}).Error; err != nil {
				return err
			}
		}
		result := tx.Where("id = ?", id).Delete(&domain.ChatRequest{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return common.ErrRequestNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return channelIDs, nil
}
