package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
	"github.com/noah-isme/qr-attendance-api/pkg/jobs"
)

type stubCacheRepo struct {
	mu          sync.Mutex
	store       map[string][]byte
	gets        int
	patterns    []string
	failDeletes int
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = append(s.patterns, pattern)
	if s.failDeletes > 0 {
		s.failDeletes--
		return errors.New("redis: connection refused")
	}
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
		}
	}
	return nil
}

func (s *stubCacheRepo) keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.store)
}

func TestStatsCacheKey(t *testing.T) {
	week := 3
	assert.Equal(t, "stats:lect-1:all:all", StatsCacheKey(models.AttendanceStatsFilter{LecturerID: "lect-1"}))
	assert.Equal(t, "stats:lect-1:course-1:3", StatsCacheKey(models.AttendanceStatsFilter{LecturerID: "lect-1", CourseID: "course-1", Week: &week}))
	assert.True(t, strings.HasPrefix(StatsCacheKey(models.AttendanceStatsFilter{LecturerID: "lect-1"}), strings.TrimSuffix(statsCachePattern("lect-1"), "*")))
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := &stubCacheRepo{}
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), false)
	require.NoError(t, cache.Set(context.Background(), "k", 1, 0))
	hit, err := cache.Get(context.Background(), "k", new(int))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Zero(t, repo.gets)

	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
}

func TestStatsInvalidatorDropsLecturerEntriesBeforeReturning(t *testing.T) {
	repo := &stubCacheRepo{}
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "stats:lect-1:all:all", 1, 0))
	require.NoError(t, cache.Set(ctx, "stats:lect-2:all:all", 1, 0))

	inv := NewStatsInvalidator(cache, jobs.QueueConfig{})
	inv.InvalidateStats(ctx, "lect-1")

	assert.Equal(t, 1, repo.keys())
	assert.Equal(t, []string{"stats:lect-1:*"}, repo.patterns)

	var v int
	hit, err := cache.Get(ctx, "stats:lect-2:all:all", &v)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestStatsInvalidatorRetriesFailedDeleteOnQueue(t *testing.T) {
	repo := &stubCacheRepo{failDeletes: 1}
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "stats:lect-1:all:all", 1, 0))

	inv := NewStatsInvalidator(cache, jobs.QueueConfig{Workers: 1, MaxRetries: 2})
	inv.Start(ctx)
	defer inv.Stop()
	inv.InvalidateStats(ctx, "lect-1")

	assert.Eventually(t, func() bool { return repo.keys() == 0 }, time.Second, 10*time.Millisecond)
}
