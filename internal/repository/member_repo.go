package repository

import (
	"context"

	"github.com/jobtalk/jobtalk-backend/internal/common"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
	"gorm.io/gorm"
)

// MemberRepository member data access interface
type MemberRepository interface {
	FindByID(ctx context.Context, id uint64) (*domain.Member, error)
	Create(ctx context.Context, member *domain.Member) error
}

type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a new MemberRepository
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) FindByID(ctx context.Context, id uint64) (*domain.Member, error) {
	var member domain.Member
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&member).Error
	if err != nil {
		return nil, notFoundAs(err, common.ErrNotFound)
	}
	return &member, nil
}

func (r *memberRepository) Create(ctx context.Context, member *domain.Member) error {
	return conflictOr(r.db.WithContext(ctx).Create(member).Error)
}
