package verifier

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// RunIDGenerator issues identifiers for batch items.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run identifiers, so a
// batch report sorts by submission order.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined run identifiers for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator builds a generator that yields the given identifiers
// in order and panics when exhausted.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("FixedGenerator: identifiers exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// Pair is one batch item: a candidate query checked against a reference.
type Pair struct {
	// Label carries the caller's name for the pair, if any.
	Label     string
	Candidate string
	Reference string
}

// BatchResult is the outcome for one pair. Exactly one of Result and
// Err is set.
type BatchResult struct {
	RunID  string
	Pair   Pair
	Result *Result
	Err    error
}

// BatchOption configures VerifyBatch.
type BatchOption func(*batchConfig)

type batchConfig struct {
	workers int
	ids     RunIDGenerator
}

// WithWorkers sets the number of concurrent verifications.
func WithWorkers(n int) BatchOption {
	return func(c *batchConfig) { c.workers = n }
}

// WithRunIDs replaces the run identifier generator.
func WithRunIDs(g RunIDGenerator) BatchOption {
	return func(c *batchConfig) { c.ids = g }
}

// VerifyBatch checks every pair and returns results in input order. A
// failing pair records its error and does not abort the rest of the
// batch; only context cancellation stops early, and even then every
// pair gets a result (the cancellation error for unstarted ones).
func (v *Verifier) VerifyBatch(ctx context.Context, pairs []Pair, opts ...BatchOption) []BatchResult {
	cfg := batchConfig{workers: 4, ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}

	results := make([]BatchResult, len(pairs))
	// RunIDs are assigned up front, in input order, so UUIDv7 ids sort
	// the same way the report does.
	for i, p := range pairs {
		results[i] = BatchResult{RunID: cfg.ids.Generate(), Pair: p}
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < cfg.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					results[i].Err = err
					continue
				}
				p := pairs[i]
				results[i].Result, results[i].Err = v.Verify(ctx, p.Candidate, p.Reference)
			}
		}()
	}
	for i := range pairs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}
