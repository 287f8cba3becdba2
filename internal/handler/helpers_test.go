package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jobtalk/jobtalk-backend/internal/common"
	"github.com/jobtalk/jobtalk-backend/internal/database"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
	"github.com/jobtalk/jobtalk-backend/internal/middleware"
	"github.com/jobtalk/jobtalk-backend/internal/migration"
	"github.com/jobtalk/jobtalk-backend/internal/repository"
	"github.com/jobtalk/jobtalk-backend/internal/service"
	"github.com/jobtalk/jobtalk-backend/internal/ws"
	"github.com/jobtalk/jobtalk-backend/pkg/cache"
	"github.com/jobtalk/jobtalk-backend/pkg/jwt"
	"github.com/stretchr/testify/require"
)

var (
	companyP  = domain.Principal{ID: 1, Role: domain.RoleResponder}
	studentP  = domain.Principal{ID: 2, Role: domain.RoleRequester}
	outsiderP = domain.Principal{ID: 3, Role: domain.RoleRequester}
	adminP    = domain.Principal{ID: 4, Role: domain.RoleAdmin}
	inactiveP = domain.Principal{ID: 5, Role: domain.RoleRequester}
)

type apiEnv struct {
	server    *httptest.Server
	jwt       *jwt.Manager
	requests  service.RequestService
	channels  service.ChannelService
	registry  *ws.Registry
	listingID uint64
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, migration.Run(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	for _, p := range []domain.Principal{companyP, studentP, outsiderP, adminP} {
		require.NoError(t, db.Create(&domain.Member{ID: p.ID, Role: p.Role, IsActive: true}).Error)
	}
	require.NoError(t, db.Create(&domain.Member{ID: inactiveP.ID, Role: inactiveP.Role, IsActive: false}).Error)
	listing := &domain.Listing{OwnerID: companyP.ID, Title: "night shift", Status: domain.ListingOpen}
	require.NoError(t, db.Create(listing).Error)

	manager := jwt.NewManager("handler-test-secret-0123", 3600)
	auth := service.NewAuthenticator(manager, repository.NewMemberRepository(db))
	channels := service.NewChannelService(repository.NewChannelRepository(db), cache.NewService(nil))
	chat := service.NewChatService(channels,
		repository.NewChatMessageRepository(db),
		repository.NewReadMarkerRepository(db),
		service.ChatOptions{MaxMessageLength: 100, DefaultPageSize: 2, MaxPageSize: 10})
	registry := ws.NewRegistry(time.Second)
	coordinator := ws.NewCoordinator(channels, chat, registry)
	requests := service.NewRequestService(repository.NewRequestRepository(db), repository.NewListingRepository(db),
		channels, coordinator)

	requestHandler := NewRequestHandler(requests, channels)
	channelHandler := NewChannelHandler(channels, chat)
	wsHandler := NewWSHandler(auth, coordinator, "", 16)

	router := gin.New()
	api := router.Group("/api/v1", middleware.JWTAuth(auth))
	api.POST("/chat/requests", requestHandler.Submit)
	api.GET("/chat/requests", requestHandler.List)
	api.GET("/chat/requests/:id", requestHandler.Get)
	api.POST("/chat/requests/:id/accept", requestHandler.Accept)
	api.POST("/chat/requests/:id/reject", requestHandler.Reject)
	api.GET("/chat/channels", channelHandler.List)
	api.GET("/chat/channels/:id/messages", channelHandler.History)
	api.POST("/chat/channels/:id/read", channelHandler.MarkRead)
	api.GET("/chat/channels/:id/unread", channelHandler.Unread)
	admin := api.Group("/admin", middleware.RequireAdmin())
	admin.GET("/chat/live", wsHandler.Live)
	admin.DELETE("/chat/requests/:id", requestHandler.Delete)
	router.GET("/ws/chat/:id", wsHandler.Connect)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &apiEnv{
		server:    server,
		jwt:       manager,
		requests:  requests,
		channels:  channels,
		registry:  registry,
		listingID: listing.ID,
	}
}

func (e *apiEnv) token(t *testing.T, p domain.Principal) string {
	t.Helper()
	token, err := e.jwt.GenerateAccessToken(p.ID, string(p.Role))
	require.NoError(t, err)
	return token
}

// do sends a JSON request as p and decodes the envelope
func (e *apiEnv) do(t *testing.T, p *domain.Principal, method, path, body string) (int, common.V2Response, json.RawMessage) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if p != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(t, *p))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope common.V2Response
	var data struct {
		Data json.RawMessage `json:"data"`
	}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &envelope))
		require.NoError(t, json.Unmarshal(raw, &data))
	}
	return resp.StatusCode, envelope, data.Data
}

// openChannel submits and accepts a request through the services
func (e *apiEnv) openChannel(t *testing.T, requester domain.Principal) *domain.Channel {
	t.Helper()
	ctx := context.Background()
	req, err := e.requests.Submit(ctx, requester, e.listingID)
	require.NoError(t, err)
	_, err = e.requests.Approve(ctx, companyP, req.ID)
	require.NoError(t, err)
	ch, err := e.channels.GetByRequest(ctx, requester, req.ID)
	require.NoError(t, err)
	return ch
}
