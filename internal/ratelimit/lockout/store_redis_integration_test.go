//go:build integration

package lockout

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

type RedisStoreSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcredis.RedisContainer
	client    *redis.Client
	store     *RedisStore
}

func (s *RedisStoreSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := tcredis.Run(s.ctx, "redis:7-alpine")
	s.Require().NoError(err)
	s.container = container

	addr, err := container.ConnectionString(s.ctx)
	s.Require().NoError(err)

	opts, err := redis.ParseURL(addr)
	s.Require().NoError(err)
	s.client = redis.NewClient(opts)
	s.Require().NoError(s.client.Ping(s.ctx).Err())

	s.store = NewRedisStore(s.client)
}

func (s *RedisStoreSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.client.FlushAll(s.ctx).Err())
}

func (s *RedisStoreSuite) TestRecordFailureCounts() {
	count, err := s.store.RecordFailure(s.ctx, "alice|192.0.2.1", time.Minute)
	s.Require().NoError(err)
	s.EqualValues(1, count)

	count, err = s.store.RecordFailure(s.ctx, "alice|192.0.2.1", time.Minute)
	s.Require().NoError(err)
	s.EqualValues(2, count)
}

func (s *RedisStoreSuite) TestRecordFailureWindowExpires() {
	count, err := s.store.RecordFailure(s.ctx, "alice|192.0.2.1", 100*time.Millisecond)
	s.Require().NoError(err)
	s.EqualValues(1, count)

	time.Sleep(200 * time.Millisecond)

	count, err = s.store.RecordFailure(s.ctx, "alice|192.0.2.1", 100*time.Millisecond)
	s.Require().NoError(err)
	s.EqualValues(1, count)
}

func (s *RedisStoreSuite) TestLockAndUnlock() {
	_, locked, err := s.store.LockedUntil(s.ctx, "alice|192.0.2.1")
	s.Require().NoError(err)
	s.False(locked)

	until := time.Now().Add(time.Minute)
	s.Require().NoError(s.store.Lock(s.ctx, "alice|192.0.2.1", until))

	got, locked, err := s.store.LockedUntil(s.ctx, "alice|192.0.2.1")
	s.Require().NoError(err)
	s.True(locked)
	s.WithinDuration(until, got, 2*time.Second)
}

func (s *RedisStoreSuite) TestLockExpires() {
	s.Require().NoError(s.store.Lock(s.ctx, "alice|192.0.2.1", time.Now().Add(100*time.Millisecond)))

	time.Sleep(200 * time.Millisecond)

	_, locked, err := s.store.LockedUntil(s.ctx, "alice|192.0.2.1")
	s.Require().NoError(err)
	s.False(locked)
}

func (s *RedisStoreSuite) TestClearRemovesEverything() {
	_, err := s.store.RecordFailure(s.ctx, "alice|192.0.2.1", time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Lock(s.ctx, "alice|192.0.2.1", time.Now().Add(time.Minute)))

	s.Require().NoError(s.store.Clear(s.ctx, "alice|192.0.2.1"))

	_, locked, err := s.store.LockedUntil(s.ctx, "alice|192.0.2.1")
	s.Require().NoError(err)
	s.False(locked)

	count, err := s.store.RecordFailure(s.ctx, "alice|192.0.2.1", time.Minute)
	s.Require().NoError(err)
	s.EqualValues(1, count)
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}
