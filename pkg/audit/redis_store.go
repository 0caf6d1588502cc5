package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/clinicalcore/orchestrator/core"
)

// RedisStore is the alternate durable Store backend (§6 audit_store_dsn),
// using a sorted set keyed by entry ID for ordered insert and range
// lookup, adapted from the teacher's go-redis/v8 usage pattern. Filtering
// beyond ID order is done in-process after fetching the candidate range,
// trading index sophistication for the simplicity appropriate to a
// moderate-volume audit trail.
type RedisStore struct {
	client *redis.Client
	prefix string
}

const redisSeqKey = "audit:seq"
const redisIndexKey = "audit:index"

// NewRedisStore constructs a RedisStore against an already-configured
// client. prefix namespaces keys (e.g. "orchestrator:") for multi-tenant
// Redis instances; pass "" for none.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(suffix string) string { return s.prefix + suffix }

func (s *RedisStore) Insert(ctx context.Context, entry *core.AuditEntry) (int64, error) {
	id, err := s.client.Incr(ctx, s.key(redisSeqKey)).Result()
	if err != nil {
		return 0, fmt.Errorf("audit: redis incr: %w", err)
	}
	entry.ID = id

	raw, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("audit: marshal entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.entryKey(id), raw, 0)
	pipe.ZAdd(ctx, s.key(redisIndexKey), &redis.Z{Score: float64(id), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("audit: redis insert pipeline: %w", err)
	}
	return id, nil
}

func (s *RedisStore) entryKey(id int64) string {
	return s.key("audit:entry:" + strconv.FormatInt(id, 10))
}

func (s *RedisStore) Get(ctx context.Context, id int64) (*core.AuditEntry, error) {
	raw, err := s.client.Get(ctx, s.entryKey(id)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: audit entry %d", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("audit: redis get: %w", err)
	}
	var entry core.AuditEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("audit: unmarshal entry: %w", err)
	}
	return &entry, nil
}

func (s *RedisStore) List(ctx context.Context, filters ListFilters) ([]core.AuditEntry, error) {
	ids, err := s.client.ZRevRange(ctx, s.key(redisIndexKey), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("audit: redis zrevrange: %w", err)
	}

	var cutoff time.Time
	if filters.SinceHours > 0 {
		cutoff = time.Now().UTC().Add(-time.Duration(filters.SinceHours) * time.Hour)
	}

	var out []core.AuditEntry
	for _, idStr := range ids {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			continue
		}
		entry, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		if !matchesFilters(entry, filters, cutoff) {
			continue
		}
		out = append(out, *entry)
		if filters.Limit > 0 && len(out) >= filters.Limit {
			break
		}
	}
	return out, nil
}

func matchesFilters(entry *core.AuditEntry, filters ListFilters, cutoff time.Time) bool {
	if filters.Handler != "" && entry.HandlerName != filters.Handler {
		return false
	}
	if filters.UserHash != "" && entry.UserIDHash != filters.UserHash {
		return false
	}
	if filters.MinConfidencePercent > 0 {
		if entry.ConfidenceScore == nil || *entry.ConfidenceScore < filters.MinConfidencePercent {
			return false
		}
	}
	if filters.EscalationsOnly && entry.EscalationTriggered == nil {
		return false
	}
	if !cutoff.IsZero() && entry.Timestamp.Before(cutoff) {
		return false
	}
	return true
}

func (s *RedisStore) UpdateReview(ctx context.Context, id int64, review ReviewUpdate) error {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if review.Override != nil && entry.ClinicianOverride != nil {
		return core.ErrAlreadyReviewed
	}
	if review.ReviewedByHash != "" && entry.ReviewedByHash != nil {
		return core.ErrAlreadyReviewed
	}

	if review.ReviewedByHash != "" {
		entry.ReviewedByHash = &review.ReviewedByHash
	}
	if review.ReviewNotes != nil {
		entry.ReviewNotes = review.ReviewNotes
	}
	if !review.ReviewTimestamp.IsZero() {
		entry.ReviewTimestamp = &review.ReviewTimestamp
	}
	if review.Override != nil {
		entry.ClinicianOverride = review.Override
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}
	if err := s.client.Set(ctx, s.entryKey(id), raw, 0).Err(); err != nil {
		return fmt.Errorf("audit: redis update: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
