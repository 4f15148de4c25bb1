package reportcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	goredis "github.com/redis/go-redis/v9"

	"github.com/stacksys/circulation-tracker-go/circstore"
)

const (
	// redisKeyPrefix namespaces report snapshot keys in a shared redis.
	redisKeyPrefix = "circulation:report"

	// defaultRedisTTL bounds how long an orphaned snapshot survives in redis.
	// Validity is still decided by journal sequence and max age; the TTL only
	// keeps dead keys from accumulating.
	defaultRedisTTL = 24 * time.Hour
)

// RedisStore keeps report snapshots in redis instead of the circulation
// store. Deployments use it to take dashboard cache traffic off the primary
// database. It implements SavesAndLoadsReportSnapshots for WithReportStore.
type RedisStore struct {
	client *goredis.Client
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore) error

// WithTTL overrides the expiry on stored snapshots. Zero disables expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) error {
		if ttl < 0 {
			return errors.New("ttl must not be negative")
		}

		s.ttl = ttl
		return nil
	}
}

// NewRedisStore creates a redis-backed report snapshot store around an
// existing client. The caller owns the client's lifecycle.
func NewRedisStore(client *goredis.Client, opts ...RedisOption) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client must not be nil")
	}

	store := &RedisStore{
		client: client,
		ttl:    defaultRedisTTL,
	}

	for _, opt := range opts {
		if err := opt(store); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// LoadReportSnapshot reads a snapshot, returning nil when none is cached.
func (s *RedisStore) LoadReportSnapshot(ctx context.Context, reportType string, filterHash string) (*circstore.ReportSnapshot, error) {
	raw, err := s.client.Get(ctx, s.key(reportType, filterHash)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Join(circstore.ErrLoadingSnapshotFailed, err)
	}

	snapshot := new(circstore.ReportSnapshot)
	if err := jsoniter.ConfigFastest.Unmarshal(raw, snapshot); err != nil {
		return nil, errors.Join(circstore.ErrLoadingSnapshotFailed, err)
	}

	return snapshot, nil
}

// SaveReportSnapshot stores a snapshot, replacing any previous one for the
// same report type and filter hash.
func (s *RedisStore) SaveReportSnapshot(ctx context.Context, snapshot circstore.ReportSnapshot) error {
	if err := snapshot.Validate(); err != nil {
		return errors.Join(circstore.ErrSavingSnapshotFailed, err)
	}

	raw, err := jsoniter.ConfigFastest.Marshal(snapshot)
	if err != nil {
		return errors.Join(circstore.ErrSavingSnapshotFailed, err)
	}

	setErr := s.client.Set(ctx, s.key(snapshot.ReportType, snapshot.FilterHash), raw, s.ttl).Err()
	if setErr != nil {
		return errors.Join(circstore.ErrSavingSnapshotFailed, setErr)
	}

	return nil
}

// DeleteReportSnapshot removes a snapshot; deleting a missing one is a no-op.
func (s *RedisStore) DeleteReportSnapshot(ctx context.Context, reportType string, filterHash string) error {
	if reportType == "" {
		return errors.Join(circstore.ErrDeletingSnapshotFailed, circstore.ErrEmptyReportType)
	}

	if filterHash == "" {
		return errors.Join(circstore.ErrDeletingSnapshotFailed, circstore.ErrEmptyFilterHash)
	}

	if err := s.client.Del(ctx, s.key(reportType, filterHash)).Err(); err != nil {
		return errors.Join(circstore.ErrDeletingSnapshotFailed, err)
	}

	return nil
}

func (s *RedisStore) key(reportType string, filterHash string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, reportType, filterHash)
}
