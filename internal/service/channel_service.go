package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jobtalk/jobtalk-backend/internal/common"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
	"github.com/jobtalk/jobtalk-backend/internal/repository"
	"github.com/jobtalk/jobtalk-backend/pkg/cache"
	pkglogger "github.com/jobtalk/jobtalk-backend/pkg/logger"
)

// ChannelService is the authorization gate for channels
type ChannelService interface {
	GetForParticipant(ctx context.Context, channelID uint64, actor domain.Principal) (*domain.Channel, error)
	GetByRequest(ctx context.Context, actor domain.Principal, requestID uint64) (*domain.Channel, error)
	ListFor(ctx context.Context, actor domain.Principal) ([]*domain.Channel, error)

	// ChannelRemoved evicts the cached participants of a deleted channel
	ChannelObserver
}

type channelService struct {
	channelRepo repository.ChannelRepository
	cache       cache.Service
}

// NewChannelService creates a new ChannelService. cacheSvc may be nil.
func NewChannelService(channelRepo repository.ChannelRepository, cacheSvc cache.Service) ChannelService {
	return &channelService{
		channelRepo: channelRepo,
		cache:       cacheSvc,
	}
}

// GetForParticipant loads the channel and fails with common.ErrForbidden
// unless actor is one of its two participants.
//
// Participants never change while the channel exists, so they may be
// served from the cache until ChannelRemoved evicts them; a channel served
// that way has a zero LastActivityAt.
func (s *channelService) GetForParticipant(ctx context.Context, channelID uint64, actor domain.Principal) (*domain.Channel, error) {
	channel, err := s.load(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !channel.IsParticipant(actor.ID) {
		return nil, fmt.Errorf("%w: user %d is not a participant of channel %d", common.ErrForbidden, actor.ID, channelID)
	}
	return channel, nil
}

func (s *channelService) load(ctx context.Context, channelID uint64) (*domain.Channel, error) {
	if s.cache != nil && s.cache.IsAvailable() {
		p, err := s.cache.GetChannel(ctx, channelID)
		if err == nil {
			return &domain.Channel{
				ID:          p.ChannelID,
				RequestID:   p.RequestID,
				ListingID:   p.ListingID,
				RequesterID: p.RequesterID,
				ResponderID: p.ResponderID,
			}, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			pkglogger.GetLogger().Warn().Err(err).Uint64("channel_id", channelID).Msg("channel cache read failed")
		}
	}

	channel, err := s.channelRepo.FindByID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.cache.IsAvailable() {
		err := s.cache.SetChannel(ctx, &cache.ChannelParticipants{
			ChannelID:   channel.ID,
			RequestID:   channel.RequestID,
			ListingID:   channel.ListingID,
			RequesterID: channel.RequesterID,
			ResponderID: channel.ResponderID,
		})
		if err != nil {
			pkglogger.GetLogger().Warn().Err(err).Uint64("channel_id", channelID).Msg("channel cache write failed")
		}
	}
	return channel, nil
}

// ChannelRemoved drops the channel's cache entry. A failed eviction is
// logged; the entry then lives until its TTL.
func (s *channelService) ChannelRemoved(ctx context.Context, channelID uint64) {
	if s.cache == nil || !s.cache.IsAvailable() {
		return
	}
	if err := s.cache.DeleteChannel(ctx, channelID); err != nil {
		pkglogger.GetLogger().Error().Err(err).Uint64("channel_id", channelID).Msg("channel cache eviction failed")
	}
}

// GetByRequest returns the channel opened by an accepted request
func (s *channelService) GetByRequest(ctx context.Context, actor domain.Principal, requestID uint64) (*domain.Channel, error) {
	channel, err := s.channelRepo.FindByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !channel.IsParticipant(actor.ID) {
		return nil, common.ErrForbidden
	}
	return channel, nil
}

// ListFor returns the actor's channels, most recently active first
func (s *channelService) ListFor(ctx context.Context, actor domain.Principal) ([]*domain.Channel, error) {
	return s.channelRepo.ListByParticipant(ctx, actor.ID)
}
