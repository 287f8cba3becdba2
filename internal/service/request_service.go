package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jobtalk/jobtalk-backend/internal/common"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
	"github.com/jobtalk/jobtalk-backend/internal/repository"
	pkglogger "github.com/jobtalk/jobtalk-backend/pkg/logger"
)

// RequestService owns the chat request lifecycle:
//
//	REQUESTED --approve--> ACCEPTED (terminal, channel created)
//	REQUESTED --reject---> REJECTED (terminal)
type RequestService interface {
	Submit(ctx context.Context, actor domain.Principal, listingID uint64) (*domain.ChatRequest, error)
	Approve(ctx context.Context, actor domain.Principal, requestID uint64) (*domain.ChatRequest, error)
	Reject(ctx context.Context, actor domain.Principal, requestID uint64) (*domain.ChatRequest, error)
	ListMine(ctx context.Context, actor domain.Principal, status *domain.RequestStatus) ([]*domain.ChatRequest, error)
	Get(ctx context.Context, actor domain.Principal, requestID uint64) (*domain.ChatRequest, error)
	Delete(ctx context.Context, actor domain.Principal, requestID uint64) error
}

// ChannelObserver is told about channels removed together with their request
type ChannelObserver interface {
	ChannelRemoved(ctx context.Context, channelID uint64)
}

type requestService struct {
	requestRepo repository.RequestRepository
	listingRepo repository.ListingRepository
	observers   []ChannelObserver
}

// NewRequestService creates a new RequestService. observers are notified,
// in order, of every channel removed by Delete.
func NewRequestService(requestRepo repository.RequestRepository, listingRepo repository.ListingRepository, observers ...ChannelObserver) RequestService {
	return &requestService{
		requestRepo: requestRepo,
		listingRepo: listingRepo,
		observers:   observers,
	}
}

// Submit creates a REQUESTED request against the listing, addressed to its owner.
// Submitting twice for the same listing returns the existing request unchanged
// together with common.ErrConflict.
func (s *requestService) Submit(ctx context.Context, actor domain.Principal, listingID uint64) (*domain.ChatRequest, error) {
	if !actor.CanRequest() {
		return nil, fmt.Errorf("%w: role %s cannot submit requests", common.ErrForbidden, actor.Role)
	}

	listing, err := s.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	existing, err := s.requestRepo.FindByListingAndRequester(ctx, listingID, actor.ID)
	if err == nil {
		return existing, common.ErrConflict
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	req := &domain.ChatRequest{
		ListingID:   listing.ID,
		RequesterID: actor.ID,
		ResponderID: listing.OwnerID,
		Status:      domain.RequestRequested,
		CreatedAt:   now(),
	}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		if !errors.Is(err, common.ErrConflict) {
			return nil, err
		}
		// lost an insert race against the same requester
		existing, findErr := s.requestRepo.FindByListingAndRequester(ctx, listingID, actor.ID)
		if findErr != nil {
			return nil, findErr
		}
		return existing, common.ErrConflict
	}

	pkglogger.GetLogger().Info().
		Uint64("chat_request_id", req.ID).
		Uint64("listing_id", req.ListingID).
		Uint64("requester_id", req.RequesterID).
		Uint64("responder_id", req.ResponderID).
		Msg("chat request submitted")
	return req, nil
}

// Approve accepts the request and opens its channel atomically
func (s *requestService) Approve(ctx context.Context, actor domain.Principal, requestID uint64) (*domain.ChatRequest, error) {
	if _, err := s.respondable(ctx, actor, requestID); err != nil {
		return nil, err
	}

	req, channel, err := s.requestRepo.Accept(ctx, requestID, now())
	if err != nil {
		return nil, fmt.Errorf("approve request %d: %w", requestID, err)
	}

	pkglogger.GetLogger().Info().
		Uint64("chat_request_id", req.ID).
		Uint64("channel_id", channel.ID).
		Uint64("responder_id", actor.ID).
		Msg("chat request accepted, channel opened")
	return req, nil
}

// Reject declines the request; no channel is created
func (s *requestService) Reject(ctx context.Context, actor domain.Principal, requestID uint64) (*domain.ChatRequest, error) {
	if _, err := s.respondable(ctx, actor, requestID); err != nil {
		return nil, err
	}

	req, err := s.requestRepo.Reject(ctx, requestID, now())
	if err != nil {
		return nil, fmt.Errorf("reject request %d: %w", requestID, err)
	}

	pkglogger.GetLogger().Info().
		Uint64("chat_request_id", req.ID).
		Uint64("responder_id", actor.ID).
		Msg("chat request rejected")
	return req, nil
}

// respondable applies the guards shared by Approve and Reject
func (s *requestService) respondable(ctx context.Context, actor domain.Principal, requestID uint64) (*domain.ChatRequest, error) {
	req, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ResponderID != actor.ID {
		return nil, fmt.Errorf("%w: only the responder can answer request %d", common.ErrForbidden, requestID)
	}
	if req.Status != domain.RequestRequested {
		return nil, fmt.Errorf("%w: request %d is %s", common.ErrInvalidState, requestID, req.Status)
	}
	return req, nil
}

// ListMine lists requests by role: requesters see what they sent,
// responders what they received, admins everything.
func (s *requestService) ListMine(ctx context.Context, actor domain.Principal, status *domain.RequestStatus) ([]*domain.ChatRequest, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", common.ErrInvalidArgument, *status)
	}

	switch actor.Role {
	case domain.RoleRequester:
		return s.requestRepo.ListByRequester(ctx, actor.ID, status)
	case domain.RoleResponder:
		return s.requestRepo.ListByResponder(ctx, actor.ID, status)
	case domain.RoleAdmin:
		return s.requestRepo.ListAll(ctx, status)
	default:
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrForbidden, actor.Role)
	}
}

// Get returns a single request visible to its participants and admins
func (s *requestService) Get(ctx context.Context, actor domain.Principal, requestID uint64) (*domain.ChatRequest, error) {
	req, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsParticipant(actor.ID) && !actor.IsAdmin() {
		return nil, common.ErrForbidden
	}
	return req, nil
}

// Delete removes a request with its channel and history. Admin only.
func (s *requestService) Delete(ctx context.Context, actor domain.Principal, requestID uint64) error {
	if !actor.IsAdmin() {
		return common.ErrForbidden
	}
	channelIDs, err := s.requestRepo.Delete(ctx, requestID)
	if err != nil {
		return err
	}
	for _, channelID := range channelIDs {
		for _, o := range s.observers {
			o.ChannelRemoved(ctx, channelID)
		}
	}

	log := pkglogger.WithUserID(actor.ID)
	log.Warn().
		Uint64("chat_request_id", requestID).
		Uints64("channel_ids", channelIDs).
		Msg("chat request deleted by admin")
	return nil
}
