//go:build integration

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"marlin/internal/exemption/models"
	"marlin/internal/exemption/store/session"
	"marlin/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *session.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.store = session.NewRedisStore(s.redis.Client, session.WithTTL(time.Hour))
}

func (s *RedisStoreSuite) TestCommitRoundTrip() {
	ctx := context.Background()

	s.Require().NoError(s.store.Set(ctx, "sid", session.KeyExemption, []byte(`{"projectName":"Dredge"}`)))

	// Staged but uncommitted: visible to this store, absent from Redis.
	v, ok, err := s.store.Get(ctx, "sid", session.KeyExemption)
	s.Require().NoError(err)
	s.True(ok)
	s.JSONEq(`{"projectName":"Dredge"}`, string(v))

	fresh := session.NewRedisStore(s.redis.Client)
	_, ok, err = fresh.Get(ctx, "sid", session.KeyExemption)
	s.Require().NoError(err)
	s.False(ok, "uncommitted writes must not be visible to other readers")

	s.Require().NoError(s.store.Commit(ctx, "sid"))

	v, ok, err = fresh.Get(ctx, "sid", session.KeyExemption)
	s.Require().NoError(err)
	s.True(ok)
	s.JSONEq(`{"projectName":"Dredge"}`, string(v))
}

func (s *RedisStoreSuite) TestCommitSetsExpiry() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "sid", session.KeyExemption, []byte(`1`)))
	s.Require().NoError(s.store.Commit(ctx, "sid"))

	ttl := s.redis.Client.TTL(ctx, "marlin:session:sid").Val()
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, time.Hour)
}

func (s *RedisStoreSuite) TestLastCommitWinsAcrossStores() {
	ctx := context.Background()
	a := session.NewRedisStore(s.redis.Client)
	b := session.NewRedisStore(s.redis.Client)

	s.Require().NoError(a.Set(ctx, "sid", session.KeyExemption, []byte(`"a"`)))
	s.Require().NoError(b.Set(ctx, "sid", session.KeyExemption, []byte(`"b"`)))
	s.Require().NoError(a.Commit(ctx, "sid"))
	s.Require().NoError(b.Commit(ctx, "sid"))

	v, ok, err := session.NewRedisStore(s.redis.Client).Get(ctx, "sid", session.KeyExemption)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal([]byte(`"b"`), v)
}

func (s *RedisStoreSuite) TestDestroy() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "sid", session.KeyExemption, []byte(`1`)))
	s.Require().NoError(s.store.Commit(ctx, "sid"))
	s.Require().NoError(s.store.Destroy(ctx, "sid"))

	_, ok, err := s.store.Get(ctx, "sid", session.KeyExemption)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RedisStoreSuite) TestCacheAggregateRoundTrip() {
	ctx := context.Background()
	cache := session.NewCache(s.store)

	name := "North berth"
	exm := &models.Exemption{
		ProjectName: "Dredging works",
		SiteDetails: []models.SiteDetail{{SiteName: &name}},
	}
	s.Require().NoError(cache.SaveExemption(ctx, "sid", exm))

	got, err := session.NewCache(session.NewRedisStore(s.redis.Client)).Exemption(ctx, "sid")
	s.Require().NoError(err)
	s.Equal("Dredging works", got.ProjectName)
}
