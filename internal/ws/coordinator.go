package ws

import (
	"context"
	"fmt"
	"time"

	"github.com/jobtalk/jobtalk-backend/internal/common"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
	"github.com/jobtalk/jobtalk-backend/internal/service"
	pkglogger "github.com/jobtalk/jobtalk-backend/pkg/logger"
)

// Coordinator binds live sessions to the message store: it admits
// connections, persists inbound messages and fans them out.
type Coordinator struct {
	channels service.ChannelService
	chat     service.ChatService
	registry *Registry
	seq      *keyedMutex
}

// NewCoordinator creates a new Coordinator
func NewCoordinator(channels service.ChannelService, chat service.ChatService, registry *Registry) *Coordinator {
	return &Coordinator{
		channels: channels,
		chat:     chat,
		registry: registry,
		seq:      newKeyedMutex(),
	}
}

// Registry returns the connection registry
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// Authorize checks that principal may join the channel. It must pass
// before a session is admitted.
func (c *Coordinator) Authorize(ctx context.Context, principal domain.Principal, channelID uint64) (*domain.Channel, error) {
	return c.channels.GetForParticipant(ctx, channelID, principal)
}

// Join admits an already authorized connection
func (c *Coordinator) Join(conn Connection) {
	c.registry.Join(conn.ChannelID(), conn)
	pkglogger.GetLogger().Info().
		Uint64("channel_id", conn.ChannelID()).
		Uint64("user_id", conn.Principal().ID).
		Str("conn_id", conn.ID()).
		Msg("chat connection joined")
}

// OnConnect authorizes then admits conn. It runs under the channel's
// sequencer so a session cannot slip in after ChannelRemoved.
func (c *Coordinator) OnConnect(ctx context.Context, conn Connection) error {
	unlock := c.seq.Lock(conn.ChannelID())
	defer unlock()

	if _, err := c.Authorize(ctx, conn.Principal(), conn.ChannelID()); err != nil {
		return err
	}
	c.Join(conn)
	return nil
}

// Disconnect removes conn from the registry. Safe to call more than once.
func (c *Coordinator) Disconnect(conn Connection) {
	if c.registry.Leave(conn.ChannelID(), conn) {
		pkglogger.GetLogger().Info().
			Uint64("channel_id", conn.ChannelID()).
			Uint64("user_id", conn.Principal().ID).
			Str("conn_id", conn.ID()).
			Msg("chat connection left")
	}
}

// ChannelRemoved ends the live sessions of a deleted channel. Holding the
// channel's sequencer keeps it from cutting into a broadcast in progress.
func (c *Coordinator) ChannelRemoved(_ context.Context, channelID uint64) {
	unlock := c.seq.Lock(channelID)
	defer unlock()

	if closed := c.registry.CloseChannel(channelID); closed > 0 {
		pkglogger.GetLogger().Info().
			Uint64("channel_id", channelID).
			Int("closed", closed).
			Msg("closed sessions of deleted channel")
	}
}

// HandleInbound processes one client frame. Failures are reported to conn
// only, as an error event, and also returned.
//
// The work runs detached from ctx's cancellation so a closing session
// never aborts a message that is already being persisted or broadcast.
func (c *Coordinator) HandleInbound(ctx context.Context, conn Connection, ev InboundEvent) error {
	ctx = context.WithoutCancel(ctx)

	var err error
	switch ev.Type {
	case EventMessage:
		err = c.handleMessage(ctx, conn, ev.Content)
	case EventRead:
		err = c.handleRead(ctx, conn, ev.At)
	default:
		err = fmt.Errorf("%w: %w %q", common.ErrInvalidArgument, errUnknownEvent, ev.Type)
	}
	if err != nil {
		c.reply(ctx, conn, ErrorEvent(err))
	}
	return err
}

func (c *Coordinator) handleMessage(ctx context.Context, conn Connection, content string) error {
	channelID := conn.ChannelID()

	unlock := c.seq.Lock(channelID)
	defer unlock()

	msg, err := c.chat.Append(ctx, channelID, conn.Principal(), content)
	if err != nil {
		return err
	}
	messagesPersisted.Inc()

	delivered := c.registry.Broadcast(ctx, channelID, MessageEvent(msg))
	pkglogger.GetLogger().Debug().
		Uint64("channel_id", channelID).
		Uint64("message_id", msg.ID).
		Int("delivered", delivered).
		Msg("message broadcast")
	return nil
}

func (c *Coordinator) handleRead(ctx context.Context, conn Connection, at *time.Time) error {
	var t time.Time
	if at != nil {
		t = *at
	}
	marker, err := c.chat.MarkRead(ctx, conn.ChannelID(), conn.Principal(), t)
	if err != nil {
		return err
	}
	c.reply(ctx, conn, ReadEvent(marker))
	return nil
}

func (c *Coordinator) reply(ctx context.Context, conn Connection, ev *Event) {
	sendCtx, cancel := context.WithTimeout(ctx, c.registry.sendTimeout)
	defer cancel()
	if err := conn.Send(sendCtx, ev); err != nil {
		pkglogger.GetLogger().Warn().Err(err).
			Str("conn_id", conn.ID()).
			Str("event", ev.Type).
			Msg("failed to reply to connection")
	}
}
