package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jobtalk/jobtalk-backend/internal/common"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
	"github.com/jobtalk/jobtalk-backend/internal/repository"
	pkglogger "github.com/jobtalk/jobtalk-backend/pkg/logger"
)

// ChatOptions bounds message bodies and history pages
type ChatOptions struct {
	MaxMessageLength int
	DefaultPageSize  int
	MaxPageSize      int
}

// DefaultChatOptions returns the limits used when none are configured
func DefaultChatOptions() ChatOptions {
	return ChatOptions{
		MaxMessageLength: 4000,
		DefaultPageSize:  50,
		MaxPageSize:      200,
	}
}

// HistoryPage is one page of a channel's history, oldest first.
// An empty NextCursor means there is nothing after this page.
type HistoryPage struct {
	Messages   []*domain.ChatMessage
	NextCursor string
}

// ChatService message store business logic
type ChatService interface {
	Append(ctx context.Context, channelID uint64, sender domain.Principal, body string) (*domain.ChatMessage, error)
	History(ctx context.Context, channelID uint64, actor domain.Principal, cursor string, limit int) (*HistoryPage, error)
	HistorySeq(ctx context.Context, channelID uint64, actor domain.Principal, pageSize int) iter.Seq2[*domain.ChatMessage, error]
	MarkRead(ctx context.Context, channelID uint64, actor domain.Principal, at time.Time) (*domain.ReadMarker, error)
	UnreadCount(ctx context.Context, channelID uint64, actor domain.Principal) (int64, error)
}

type chatService struct {
	channels   ChannelService
	messages   repository.ChatMessageRepository
	markerRepo repository.ReadMarkerRepository
	opts       ChatOptions
}

// NewChatService creates a new ChatService
func NewChatService(
	channels ChannelService,
	messages repository.ChatMessageRepository,
	markerRepo repository.ReadMarkerRepository,
	opts ChatOptions,
) ChatService {
	def := DefaultChatOptions()
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = def.MaxMessageLength
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = def.MaxPageSize
	}
	if opts.DefaultPageSize <= 0 || opts.DefaultPageSize > opts.MaxPageSize {
		opts.DefaultPageSize = min(def.DefaultPageSize, opts.MaxPageSize)
	}
	return &chatService{
		channels:   channels,
		messages:   messages,
		markerRepo: markerRepo,
		opts:       opts,
	}
}

// Append validates and persists a message. The body is stored as given;
// only its trimmed form must be non-empty.
func (s *chatService) Append(ctx context.Context, channelID uint64, sender domain.Principal, body string) (*domain.ChatMessage, error) {
	if _, err := s.channels.GetForParticipant(ctx, channelID, sender); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, common.ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > s.opts.MaxMessageLength {
		return nil, fmt.Errorf("%w: limit is %d characters", common.ErrMessageTooLong, s.opts.MaxMessageLength)
	}

	msg := &domain.ChatMessage{
		ChannelID: channelID,
		SenderID:  sender.ID,
		Content:   body,
		CreatedAt: now(),
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("append message to channel %d: %w", channelID, err)
	}

	pkglogger.GetLogger().Debug().
		Uint64("channel_id", channelID).
		Uint64("message_id", msg.ID).
		Uint64("sender_id", sender.ID).
		Msg("message persisted")
	return msg, nil
}

// History returns one page of messages after cursor
func (s *chatService) History(ctx context.Context, channelID uint64, actor domain.Principal, cursor string, limit int) (*HistoryPage, error) {
	if _, err := s.channels.GetForParticipant(ctx, channelID, actor); err != nil {
		return nil, err
	}
	after, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	limit = s.pageSize(limit)

	messages, err := s.messages.ListAfter(ctx, channelID, after, limit+1)
	if err != nil {
		return nil, err
	}

	page := &HistoryPage{Messages: messages}
	if len(messages) > limit {
		page.Messages = messages[:limit]
		last := page.Messages[limit-1]
		page.NextCursor = EncodeCursor(&repository.MessageCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

// HistorySeq yields the whole history oldest first, fetching pageSize
// messages at a time. Every range over the sequence starts from the beginning.
func (s *chatService) HistorySeq(ctx context.Context, channelID uint64, actor domain.Principal, pageSize int) iter.Seq2[*domain.ChatMessage, error] {
	pageSize = s.pageSize(pageSize)
	return func(yield func(*domain.ChatMessage, error) bool) {
		if _, err := s.channels.GetForParticipant(ctx, channelID, actor); err != nil {
			yield(nil, err)
			return
		}
		var after *repository.MessageCursor
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			batch, err := s.messages.ListAfter(ctx, channelID, after, pageSize)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, msg := range batch {
				if !yield(msg, nil) {
					return
				}
			}
			if len(batch) < pageSize {
				return
			}
			last := batch[len(batch)-1]
			after = &repository.MessageCursor{CreatedAt: last.CreatedAt, ID: last.ID}
		}
	}
}

// MarkRead advances the actor's read marker to at. A zero at means now and
// a future at is clamped to now; the marker never moves backwards.
func (s *chatService) MarkRead(ctx context.Context, channelID uint64, actor domain.Principal, at time.Time) (*domain.ReadMarker, error) {
	if _, err := s.channels.GetForParticipant(ctx, channelID, actor); err != nil {
		return nil, err
	}
	current := now()
	if at.IsZero() || at.After(current) {
		at = current
	}
	return s.markerRepo.Advance(ctx, actor.ID, channelID, at.UTC())
}

// UnreadCount counts the counterpart's messages newer than the actor's marker
func (s *chatService) UnreadCount(ctx context.Context, channelID uint64, actor domain.Principal) (int64, error) {
	if _, err := s.channels.GetForParticipant(ctx, channelID, actor); err != nil {
		return 0, err
	}
	var since *time.Time
	marker, err := s.markerRepo.Find(ctx, actor.ID, channelID)
	switch {
	case err == nil:
		since = &marker.LastReadAt
	case !errors.Is(err, common.ErrNotFound):
		return 0, err
	}
	return s.messages.CountAfter(ctx, channelID, actor.ID, since)
}

func (s *chatService) pageSize(limit int) int {
	if limit <= 0 {
		return s.opts.DefaultPageSize
	}
	return min(limit, s.opts.MaxPageSize)
}

// EncodeCursor renders a history position as an opaque token
func EncodeCursor(c *repository.MessageCursor) string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + ":" + strconv.FormatUint(c.ID, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token is
// the start of history.
func DecodeCursor(token string) (*repository.MessageCursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", common.ErrInvalidArgument)
	}
	ts, id, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, fmt.Errorf("%w: malformed cursor", common.ErrInvalidArgument)
	}
	nanos, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", common.ErrInvalidArgument)
	}
	msgID, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", common.ErrInvalidArgument)
	}
	return &repository.MessageCursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: msgID}, nil
}
