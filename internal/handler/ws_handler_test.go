package handler

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
	"github.com/jobtalk/jobtalk-backend/internal/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *apiEnv) wsURL(channelID uint64, token string) string {
	base := "ws" + strings.TrimPrefix(e.server.URL, "http")
	url := fmt.Sprintf("%s/ws/chat/%d", base, channelID)
	if token != "" {
		url += "?token=" + token
	}
	return url
}

func (e *apiEnv) dial(t *testing.T, channelID uint64, p domain.Principal) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(e.wsURL(channelID, e.token(t, p)), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) ws.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var ev ws.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestWS_RejectsBeforeUpgrade(t *testing.T) {
	env := newAPIEnv(t)
	ch := env.openChannel(t, studentP)

	tests := []struct {
		name   string
		url    string
		status int
	}{
		{"no token", env.wsURL(ch.ID, ""), http.StatusUnauthorized},
		{"bad token", env.wsURL(ch.ID, "nope"), http.StatusUnauthorized},
		{"inactive member", env.wsURL(ch.ID, env.token(t, inactiveP)), http.StatusUnauthorized},
		{"outsider", env.wsURL(ch.ID, env.token(t, outsiderP)), http.StatusForbidden},
		{"unknown channel", env.wsURL(9999, env.token(t, studentP)), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := websocket.DefaultDialer.Dial(tt.url, nil)
			if conn != nil {
				conn.Close()
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
	assert.Zero(t, env.registry.Count(ch.ID))
}

func TestWS_BroadcastToAllParticipantSessions(t *testing.T) {
	env := newAPIEnv(t)
	ch := env.openChannel(t, studentP)

	phone := env.dial(t, ch.ID, studentP)
	laptop := env.dial(t, ch.ID, studentP)
	company := env.dial(t, ch.ID, companyP)

	require.Eventually(t, func() bool { return env.registry.Count(ch.ID) == 3 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, phone.WriteJSON(ws.InboundEvent{Type: ws.EventMessage, Content: "are you hiring?"}))

	var ids []uint64
	for _, conn := range []*websocket.Conn{phone, laptop, company} {
		ev := readEvent(t, conn)
		assert.Equal(t, ws.EventMessage, ev.Type)
		assert.Equal(t, "are you hiring?", ev.Content)
		assert.Equal(t, studentP.ID, ev.SenderID)
		assert.Equal(t, ch.ID, ev.ChannelID)
		require.NotNil(t, ev.CreatedAt)
		ids = append(ids, ev.ID)
	}
	assert.Equal(t, ids[0], ids[1])
	assert.Equal(t, ids[0], ids[2])

	// errors go back to the sender only
	require.NoError(t, company.WriteJSON(ws.InboundEvent{Type: ws.EventMessage, Content: "  "}))
	ev := readEvent(t, company)
	assert.Equal(t, ws.EventError, ev.Type)
	assert.Equal(t, "INVALID_ARGUMENT", ev.Code)

	require.NoError(t, company.WriteJSON(ws.InboundEvent{Type: ws.EventRead}))
	ev = readEvent(t, company)
	assert.Equal(t, ws.EventRead, ev.Type)
	assert.NotNil(t, ev.LastReadAt)

	// the next thing the student sees is the next message, not the company's errors
	require.NoError(t, company.WriteJSON(ws.InboundEvent{Type: ws.EventMessage, Content: "yes"}))
	ev = readEvent(t, laptop)
	assert.Equal(t, "yes", ev.Content)
	assert.Greater(t, ev.ID, ids[0])

	laptop.Close()
	require.Eventually(t, func() bool { return env.registry.Count(ch.ID) == 2 },
		2*time.Second, 10*time.Millisecond)

	status, envelope, _ := env.do(t, &adminP, http.MethodGet, "/api/v1/admin/chat/live", "")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, envelope.Success)
}

func TestWS_MalformedFrame(t *testing.T) {
	env := newAPIEnv(t)
	ch := env.openChannel(t, studentP)
	conn := env.dial(t, ch.ID, studentP)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	ev := readEvent(t, conn)
	assert.Equal(t, ws.EventError, ev.Type)
	assert.Equal(t, "INVALID_ARGUMENT", ev.Code)
}
