package store

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/abgdnv/cartwish/internal/cart"
	apperrors "github.com/abgdnv/cartwish/internal/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RedisStoreSuite runs the CartStore contract against a real Redis.
type RedisStoreSuite struct {
	suite.Suite
	container testcontainers.Container
	client    *redis.Client
	store     *RedisStore
	logger    *slog.Logger
	ctx       context.Context
}

func (s *RedisStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var err error
	s.container, err = testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(s.T(), err, "Failed to run Redis container")

	url, err := s.container.PortEndpoint(s.ctx, "6379/tcp", "redis")
	require.NoError(s.T(), err, "Failed to get Redis endpoint")
	opts, err := redis.ParseURL(url)
	require.NoError(s.T(), err)
	s.client = redis.NewClient(opts)
	require.NoError(s.T(), s.client.Ping(s.ctx).Err(), "Failed to ping Redis")

	s.store = NewRedisStore(s.client, time.Hour)
}

func (s *RedisStoreSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		if err := s.container.Terminate(s.ctx); err != nil {
			s.logger.Warn("failed to terminate Redis container", "error", err)
		}
	}
}

func (s *RedisStoreSuite) SetupTest() {
	require.NoError(s.T(), s.client.FlushDB(s.ctx).Err())
}

func TestRedisStoreIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) TestContract() {
	runCartStoreContract(s.T(), s.store)
}

func (s *RedisStoreSuite) TestSave_SetsTTL() {
	// given
	c := cart.New(uuid.New())
	require.NoError(s.T(), c.Add(testProduct("x", 10), 1))

	// when
	_, err := s.store.Save(s.ctx, c)
	require.NoError(s.T(), err)

	// then
	ttl, err := s.client.TTL(s.ctx, cartKey(c.UserID)).Result()
	require.NoError(s.T(), err)
	s.Greater(ttl, 59*time.Minute)
}

func (s *RedisStoreSuite) TestFindByUserID_Expired() {
	// given
	short := NewRedisStore(s.client, time.Second)
	c := cart.New(uuid.New())
	require.NoError(s.T(), c.Add(testProduct("y", 10), 1))
	_, err := short.Save(s.ctx, c)
	require.NoError(s.T(), err)

	// when
	require.Eventually(s.T(), func() bool {
		_, err := short.FindByUserID(s.ctx, c.UserID)
		return err != nil
	}, 5*time.Second, 200*time.Millisecond)

	// then
	_, err = short.FindByUserID(s.ctx, c.UserID)
	require.ErrorIs(s.T(), err, apperrors.ErrCartNotFound)
}
