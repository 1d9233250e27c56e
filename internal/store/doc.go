// Package store provides SQLite-backed durable storage for verification
// results.
//
// The store implements a write-once verdict log plus a run history:
//   - Verdicts: one row per (candidate, reference, schema, bound) key,
//     first writer wins, later writes are silently ignored
//   - Runs: one row per batch item, append-only
//
// # Critical Patterns
//
// Write-Once Verdicts
//   - UNIQUE(key) constraint with ON CONFLICT DO NOTHING
//   - A key's first verdict is immutable; re-verification of the same
//     pair reads the stored row instead of racing it
//
// Deterministic Ordering
//   - All ordering uses seq INTEGER (insertion order), never timestamps
//   - ListRuns returns identical results across reads
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// Verdict keys are computed in internal/schema/hash.go using SHA-256
// with domain separation, so a store file can be shared between
// descriptors without collisions.
package store
