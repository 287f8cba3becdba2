package ws

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jobtalk/jobtalk-backend/internal/domain"
	pkglogger "github.com/jobtalk/jobtalk-backend/pkg/logger"
)

// DefaultSendTimeout bounds a single send during broadcast
const DefaultSendTimeout = 5 * time.Second

// Connection is a live session bound to one channel and one principal
type Connection interface {
	ID() string
	Principal() domain.Principal
	ChannelID() uint64
	Send(ctx context.Context, ev *Event) error
	Close() error
}

// memberSet is the set of live connections of one channel.
// A dead set has been pruned from the registry and must not be joined.
type memberSet struct {
	mu    sync.Mutex
	conns map[string]Connection
	dead  bool
}

// Registry tracks live connections per channel
type Registry struct {
	mu          sync.Mutex
	channels    map[uint64]*memberSet
	sendTimeout time.Duration
}

// NewRegistry creates a new Registry
func NewRegistry(sendTimeout time.Duration) *Registry {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &Registry{
		channels:    make(map[uint64]*memberSet),
		sendTimeout: sendTimeout,
	}
}

// Join adds conn to the channel's set. Joining twice is a no-op.
func (r *Registry) Join(channelID uint64, conn Connection) {
	for {
		r.mu.Lock()
		set, ok := r.channels[channelID]
		if !ok {
			set = &memberSet{conns: make(map[string]Connection)}
			r.channels[channelID] = set
		}
		r.mu.Unlock()

		set.mu.Lock()
		if set.dead {
			set.mu.Unlock()
			continue
		}
		if _, exists := set.conns[conn.ID()]; !exists {
			set.conns[conn.ID()] = conn
			activeConnections.Inc()
		}
		set.mu.Unlock()
		return
	}
}

// Leave removes conn from the channel's set and reports whether it was a member.
// Unknown channels and connections are ignored.
func (r *Registry) Leave(channelID uint64, conn Connection) bool {
	r.mu.Lock()
	set, ok := r.channels[channelID]
	r.mu.Unlock()
	if !ok {
		return false
	}

	set.mu.Lock()
	current, ok := set.conns[conn.ID()]
	if ok && current == conn {
		delete(set.conns, conn.ID())
		activeConnections.Dec()
	} else {
		ok = false
	}
	empty := len(set.conns) == 0
	set.mu.Unlock()

	if empty {
		r.prune(channelID, set)
	}
	return ok
}

// prune drops set from the map if it is still empty
func (r *Registry) prune(channelID uint64, set *memberSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set.mu.Lock()
	defer set.mu.Unlock()

	if len(set.conns) == 0 && !set.dead && r.channels[channelID] == set {
		set.dead = true
		delete(r.channels, channelID)
	}
}

// Members returns a snapshot of the channel's connections
func (r *Registry) Members(channelID uint64) []Connection {
	r.mu.Lock()
	set, ok := r.channels[channelID]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	set.mu.Lock()
	defer set.mu.Unlock()
	members := make([]Connection, 0, len(set.conns))
	for _, c := range set.conns {
		members = append(members, c)
	}
	return members
}

// Broadcast sends ev to every connection of the channel concurrently and
// returns the number of successful deliveries. A connection whose send fails
// or times out is removed and closed.
func (r *Registry) Broadcast(ctx context.Context, channelID uint64, ev *Event) int {
	members := r.Members(channelID)
	if len(members) == 0 {
		return 0
	}

	var (
		wg        sync.WaitGroup
		delivered atomic.Int64
	)
	for _, conn := range members {
		wg.Add(1)
		go func(conn Connection) {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
			defer cancel()

			if err := conn.Send(sendCtx, ev); err != nil {
				deliveries.WithLabelValues("failed").Inc()
				if r.Leave(channelID, conn) {
					prunedConnections.Inc()
				}
				conn.Close() //nolint:errcheck
				pkglogger.GetLogger().Warn().Err(err).
					Uint64("channel_id", channelID).
					Uint64("user_id", conn.Principal().ID).
					Str("conn_id", conn.ID()).
					Msg("connection pruned after failed send")
				return
			}
			deliveries.WithLabelValues("ok").Inc()
			delivered.Add(1)
		}(conn)
	}
	wg.Wait()
	return int(delivered.Load())
}

// Count returns the number of live connections in the channel
func (r *Registry) Count(channelID uint64) int {
	r.mu.Lock()
	set, ok := r.channels[channelID]
	r.mu.Unlock()
	if !ok {
		return 0
	}
	set.mu.Lock()
	defer set.mu.Unlock()
	return len(set.conns)
}

// Channels returns the ids of channels with at least one live connection
func (r *Registry) Channels() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uint64, 0, len(r.channels))
	for id := range r.channels {
		ids = append(ids, id)
	}
	return ids
}

// CloseChannel closes every live connection of the channel and drops its
// set. It returns the number of connections closed.
func (r *Registry) CloseChannel(channelID uint64) int {
	r.mu.Lock()
	set, ok := r.channels[channelID]
	delete(r.channels, channelID)
	r.mu.Unlock()
	if !ok {
		return 0
	}
	return set.closeAll()
}

// closeAll marks the set dead and closes its connections
func (s *memberSet) closeAll() int {
	s.mu.Lock()
	s.dead = true
	conns := s.conns
	s.conns = make(map[string]Connection)
	s.mu.Unlock()

	for _, conn := range conns {
		conn.Close() //nolint:errcheck
		activeConnections.Dec()
	}
	return len(conns)
}

// CloseAll closes every live connection and empties the registry.
// It returns the number of connections closed.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	sets := r.channels
	r.channels = make(map[uint64]*memberSet)
	r.mu.Unlock()

	closed := 0
	for _, set := range sets {
		closed += set.closeAll()
	}
	return closed
}
