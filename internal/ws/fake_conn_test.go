package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/jobtalk/jobtalk-backend/internal/domain"
)

// fakeConn records every event it is sent
type fakeConn struct {
	id        string
	principal domain.Principal
	channelID uint64

	mu     sync.Mutex
	events []*Event
	fail   bool
	block  bool
	closed bool
}

func newFakeConn(id string, p domain.Principal, channelID uint64) *fakeConn {
	return &fakeConn{id: id, principal: p, channelID: channelID}
}

func (f *fakeConn) ID() string                  { return f.id }
func (f *fakeConn) Principal() domain.Principal { return f.principal }
func (f *fakeConn) ChannelID() uint64           { return f.channelID }

func (f *fakeConn) Send(ctx context.Context, ev *Event) error {
	f.mu.Lock()
	fail, block := f.fail, f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if fail {
		return errors.New("broken pipe")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) received() []*Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Event(nil), f.events...)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
