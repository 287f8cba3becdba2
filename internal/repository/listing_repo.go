package repository

import (
	"context"

	"github.com/jobtalk/jobtalk-backend/internal/common"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
	"gorm.io/gorm"
)

// ListingRepository read access to job posts.
// Listing CRUD lives outside this service; Create exists for seeding and tests.
type ListingRepository interface {
	FindByID(ctx context.Context, id uint64) (*domain.Listing, error)
	Create(ctx context.Context, listing *domain.Listing) error
}

type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository creates a new ListingRepository
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

// FindByID finds a listing that has not been soft-deleted
func (r *listingRepository) FindByID(ctx context.Context, id uint64) (*domain.Listing, error) {
	var listing domain.Listing
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&listing).Error
	if err != nil {
		return nil, notFoundAs(err, common.ErrListingNotFound)
	}
	return &listing, nil
}

func (r *listingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}
