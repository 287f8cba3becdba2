package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jobtalk/jobtalk-backend/internal/database"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
	"github.com/jobtalk/jobtalk-backend/internal/migration"
	"github.com/jobtalk/jobtalk-backend/internal/repository"
	"github.com/jobtalk/jobtalk-backend/pkg/cache"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	company  = domain.Principal{ID: 1, Role: domain.RoleResponder}
	student  = domain.Principal{ID: 2, Role: domain.RoleRequester}
	student2 = domain.Principal{ID: 3, Role: domain.RoleRequester}
	admin    = domain.Principal{ID: 4, Role: domain.RoleAdmin}
	company2 = domain.Principal{ID: 5, Role: domain.RoleResponder}
)

type testEnv struct {
	db       *gorm.DB
	requests RequestService
	channels ChannelService
	chat     ChatService
	listing  *domain.Listing
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, migration.Run(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	for _, p := range []domain.Principal{company, student, student2, admin, company2} {
		require.NoError(t, db.Create(&domain.Member{ID: p.ID, Role: p.Role, IsActive: true}).Error)
	}
	return db
}

func newTestEnv(t *testing.T, opts ChatOptions) *testEnv {
	return newCachedTestEnv(t, opts, cache.NewService(nil))
}

func newCachedTestEnv(t *testing.T, opts ChatOptions, c cache.Service) *testEnv {
	t.Helper()
	db := setupTestDB(t)

	listing := &domain.Listing{OwnerID: company.ID, Title: "barista", Status: domain.ListingOpen}
	require.NoError(t, db.Create(listing).Error)

	channels := NewChannelService(repository.NewChannelRepository(db), c)
	return &testEnv{
		db:       db,
		requests: NewRequestService(repository.NewRequestRepository(db), repository.NewListingRepository(db), channels),
		channels: channels,
		chat: NewChatService(channels,
			repository.NewChatMessageRepository(db),
			repository.NewReadMarkerRepository(db),
			opts),
		listing: listing,
	}
}

// memoryCache keeps channel participants in a map
type memoryCache struct {
	mu       sync.Mutex
	channels map[uint64]cache.ChannelParticipants
	reads    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{channels: make(map[uint64]cache.ChannelParticipants)}
}

func (m *memoryCache) Get(context.Context, string, interface{}) error { return cache.ErrMiss }

func (m *memoryCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }

func (m *memoryCache) Delete(context.Context, ...string) error { return nil }

func (m *memoryCache) GetChannel(_ context.Context, channelID uint64) (*cache.ChannelParticipants, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.channels[channelID]
	if !ok {
		return nil, cache.ErrMiss
	}
	m.reads++
	return &p, nil
}

func (m *memoryCache) SetChannel(_ context.Context, p *cache.ChannelParticipants) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[p.ChannelID] = *p
	return nil
}

func (m *memoryCache) DeleteChannel(_ context.Context, channelID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, channelID)
	return nil
}

func (m *memoryCache) IsAvailable() bool { return true }

func (m *memoryCache) has(channelID uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.channels[channelID]
	return ok
}

func (m *memoryCache) hits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}
