package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jobtalk/jobtalk-backend/internal/common"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
	"github.com/jobtalk/jobtalk-backend/internal/repository"
	"github.com/jobtalk/jobtalk-backend/pkg/jwt"
)

// Authenticator resolves an opaque credential to an active principal
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (domain.Principal, error)
}

type jwtAuthenticator struct {
	jwtManager *jwt.Manager
	memberRepo repository.MemberRepository
}

// NewAuthenticator creates an Authenticator backed by JWT bearer tokens and the member directory
func NewAuthenticator(jwtManager *jwt.Manager, memberRepo repository.MemberRepository) Authenticator {
	return &jwtAuthenticator{
		jwtManager: jwtManager,
		memberRepo: memberRepo,
	}
}

// Authenticate verifies the token and loads the member. Unknown and inactive
// members are unauthenticated; the role comes from the member record, not the token.
func (a *jwtAuthenticator) Authenticate(ctx context.Context, credential string) (domain.Principal, error) {
	if credential == "" {
		return domain.Principal{}, common.ErrUnauthorized
	}

	claims, err := a.jwtManager.VerifyToken(credential)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	}
	userID, err := claims.UserID()
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	}

	member, err := a.memberRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return domain.Principal{}, common.ErrUnauthorized
		}
		return domain.Principal{}, err
	}
	if !member.IsActive {
		return domain.Principal{}, common.ErrUserInactive
	}
	if !member.Role.Valid() {
		return domain.Principal{}, fmt.Errorf("%w: unknown role %q", common.ErrUnauthorized, member.Role)
	}

	return member.Principal(), nil
}
