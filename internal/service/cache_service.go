package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
	"github.com/noah-isme/qr-attendance-api/pkg/jobs"
)

const (
	statsCachePrefix        = "stats"
	jobTypeStatsInvalidate  = "stats.invalidate"
	statsInvalidatorQueueID = "stats-invalidator"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService orchestrates cache operations and related metrics.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// StatsCacheKey builds the cache key of a statistics query.
func StatsCacheKey(filter models.AttendanceStatsFilter) string {
	course := filter.CourseID
	if course == "" {
		course = "all"
	}
	week := "all"
	if filter.Week != nil {
		week = strconv.Itoa(*filter.Week)
	}
	return fmt.Sprintf("%s:%s:%s:%s", statsCachePrefix, filter.LecturerID, course, week)
}

func statsCachePattern(lecturerID string) string {
	return fmt.Sprintf("%s:%s:*", statsCachePrefix, lecturerID)
}

// StatsInvalidator drops a lecturer's cached statistics on the request path.
// Failed deletions are retried on a background queue.
type StatsInvalidator struct {
	cache  *CacheService
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewStatsInvalidator wires the invalidation queue. Call Start before use.
func NewStatsInvalidator(cache *CacheService, cfg jobs.QueueConfig) *StatsInvalidator {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	inv := &StatsInvalidator{cache: cache, logger: cfg.Logger}
	inv.queue = jobs.NewQueue(statsInvalidatorQueueID, inv.handle, cfg)
	return inv
}

// Start launches the queue workers.
func (i *StatsInvalidator) Start(ctx context.Context) {
	i.queue.Start(ctx)
}

// Stop waits for the queue workers to exit.
func (i *StatsInvalidator) Stop() {
	i.queue.Stop()
}

// InvalidateStats removes the lecturer's cached statistics before returning, so
// the caller reads its own writes. A failed removal is queued for retry.
func (i *StatsInvalidator) InvalidateStats(ctx context.Context, lecturerID string) {
	if i == nil || !i.cache.Enabled() || lecturerID == "" {
		return
	}
	err := i.cache.Invalidate(ctx, statsCachePattern(lecturerID))
	if err == nil {
		return
	}
	if qerr := i.queue.Enqueue(jobs.Job{ID: lecturerID, Type: jobTypeStatsInvalidate, Payload: lecturerID}); qerr != nil {
		i.logger.Warn("stats invalidation dropped",
			zap.String("lecturer_id", lecturerID),
			zap.Error(err),
			zap.NamedError("queue_error", qerr))
	}
}

func (i *StatsInvalidator) handle(ctx context.Context, job jobs.Job) error {
	lecturerID, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	return i.cache.Invalidate(ctx, statsCachePattern(lecturerID))
}
