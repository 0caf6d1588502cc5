package audit

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-redis/redis/v8"
)

// Open constructs a Store from a DSN (§6 audit_store_dsn). A "redis://"
// scheme selects RedisStore; anything else (including a bare filesystem
// path) selects SQLiteStore, matching the teacher's audit_store_dsn
// being "a connection string for durable store" without mandating a
// specific engine.
func Open(dsn string) (Store, error) {
	if strings.HasPrefix(dsn, "redis://") || strings.HasPrefix(dsn, "rediss://") {
		opts, err := redis.ParseURL(dsn)
		if err != nil {
			return nil, fmt.Errorf("audit: parse redis dsn: %w", err)
		}
		client := redis.NewClient(opts)

		prefix := ""
		if u, err := url.Parse(dsn); err == nil {
			prefix = strings.TrimPrefix(u.Path, "/")
			if prefix != "" {
				prefix += ":"
			}
		}
		return NewRedisStore(client, prefix), nil
	}

	path := strings.TrimPrefix(dsn, "sqlite://")
	if path == "" {
		path = "audit.db"
	}
	return NewSQLiteStore(path)
}
