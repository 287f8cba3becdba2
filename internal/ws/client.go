package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jobtalk/jobtalk-backend/internal/common"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
	pkglogger "github.com/jobtalk/jobtalk-backend/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 << 10

	// DefaultSendBuffer is the outbound queue length of a client
	DefaultSendBuffer = 256
)

// ErrConnectionClosed is returned by Send after Close
var ErrConnectionClosed = errors.New("connection closed")

// Client is a WebSocket session on one channel
type Client struct {
	id          string
	coordinator *Coordinator
	conn        *websocket.Conn
	send        chan []byte
	principal   domain.Principal
	channelID   uint64

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a new WebSocket client
func NewClient(coordinator *Coordinator, conn *websocket.Conn, principal domain.Principal, channelID uint64, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	return &Client{
		id:          uuid.NewString(),
		coordinator: coordinator,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		principal:   principal,
		channelID:   channelID,
		done:        make(chan struct{}),
	}
}

func (c *Client) ID() string                  { return c.id }
func (c *Client) Principal() domain.Principal { return c.principal }
func (c *Client) ChannelID() uint64           { return c.channelID }

// Send queues ev for the write pump. It blocks while the queue is full
// until ctx is done.
func (c *Client) Send(ctx context.Context, ev *Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops both pumps and closes the socket
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// ReadPump reads inbound frames and hands them to the coordinator in
// arrival order. It returns when the socket fails or is closed.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.coordinator.Disconnect(c)
		c.Close() //nolint:errcheck
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				pkglogger.GetLogger().Debug().Err(err).Str("conn_id", c.id).Msg("websocket read failed")
			}
			return
		}

		var ev InboundEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			c.coordinator.reply(ctx, c, ErrorEvent(common.ErrInvalidArgument))
			continue
		}
		c.coordinator.HandleInbound(ctx, c, ev) //nolint:errcheck
	}
}

// WritePump writes queued frames and keeps the connection alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close() //nolint:errcheck
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
			return
		}
	}
}
