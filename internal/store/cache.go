package store

import (
	"context"
	"log/slog"

	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/verifier"
)

// VerdictCache adapts a Store to the verifier's cache interface, so
// verdicts survive process restarts. The cache is bound to one schema;
// keys already encode the schema ID, so a shared store file never
// serves a verdict across schemas.
//
// The cache interface has no error channel. Database failures are
// logged and treated as misses on read and as no-ops on write, which
// keeps verification correct (a miss just re-solves).
type VerdictCache struct {
	store  *Store
	schema *schema.Schema
	logger *slog.Logger
}

// NewVerdictCache binds a store to a schema.
func NewVerdictCache(s *Store, sch *schema.Schema, logger *slog.Logger) *VerdictCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &VerdictCache{store: s, schema: sch, logger: logger}
}

// Get implements verifier.Cache.
func (c *VerdictCache) Get(key string) (*verifier.Result, bool) {
	res, ok, err := c.store.ReadVerdict(context.Background(), key, c.schema)
	if err != nil {
		c.logger.Warn("verdict cache read failed", "key", key, "error", err)
		return nil, false
	}
	return res, ok
}

// Put implements verifier.Cache. First writer wins: the stored row is
// read back so racing writers converge on the same result.
func (c *VerdictCache) Put(key string, r *verifier.Result) *verifier.Result {
	ctx := context.Background()
	inserted, err := c.store.WriteVerdict(ctx, key, c.schema.ID(), r)
	if err != nil {
		c.logger.Warn("verdict cache write failed", "key", key, "error", err)
		return r
	}
	if inserted {
		return r
	}
	stored, ok, err := c.store.ReadVerdict(ctx, key, c.schema)
	if err != nil || !ok {
		if err != nil {
			c.logger.Warn("verdict cache readback failed", "key", key, "error", err)
		}
		return r
	}
	return stored
}
