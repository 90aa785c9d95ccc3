// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reindex

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/strata/core"
	"github.com/poiesic/strata/index"
	"github.com/poiesic/strata/objects"
)

// Config holds configuration for a reindex run.
type Config struct {
	// Kinds lists the record kinds to reindex, in order.
	Kinds []string

	// BatchSize is the number of records loaded per batch
	BatchSize int

	// PoolSize is the number of records indexed concurrently
	PoolSize int

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per record
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Kinds:          []string{core.KindUser, core.KindCampaign},
		BatchSize:      DefaultBatchSize,
		PoolSize:       max(runtime.NumCPU()/2, 1),
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     time.Second,
	}
}

// Stats summarizes a run.
type Stats struct {
	Indexed int
	Failed  int
	Skipped int
	Elapsed time.Duration
}

// Reindexer rebuilds the indexes of every stored record.
type Reindexer struct {
	store    *objects.Store
	engine   *index.Engine
	indexers map[string]Indexer
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// Option configures a Reindexer.
type Option func(*Reindexer)

// WithIndexer sets the indexer used for kind.
func WithIndexer(kind string, fn Indexer) Option {
	return func(r *Reindexer) {
		r.indexers[kind] = fn
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reindexer) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// NewReindexer creates a new reindexer.
// progress: where to write progress output (typically os.Stderr)
func NewReindexer(store *objects.Store, engine *index.Engine, config *Config, progress io.Writer, opts ...Option) (*Reindexer, error) {
	if store == nil {
		return nil, ErrObjectStoreRequired
	}
	if engine == nil {
		return nil, ErrEngineRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	r := &Reindexer{
		store:    store,
		engine:   engine,
		indexers: DefaultIndexers(),
		config:   config,
		progress: progress,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, kind := range config.Kinds {
		if _, ok := r.indexers[kind]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
		}
	}
	return r, nil
}

// Run reindexes every configured kind in turn.
func (r *Reindexer) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	start := time.Now()

	pool, err := ants.NewPool(max(r.config.PoolSize, 1))
	if err != nil {
		return stats, err
	}
	defer pool.Release()

	processor := NewBatchProcessor(r.engine, r.indexers, pool, r.config.MaxRetries, r.config.RetryDelay, r.logger)

	for _, kind := range r.config.Kinds {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		iterator := NewRecordIterator(r.store, kind, r.config.BatchSize, r.logger)

		ids, err := iterator.IDs(ctx)
		if err != nil {
			return stats, fmt.Errorf("failed to list %s records: %w", kind, err)
		}
		if len(ids) == 0 {
			fmt.Fprintf(r.progress, "No %s records found\n", kind)
			continue
		}

		fmt.Fprintf(r.progress, "Reindexing %d %s records (batch size: %d)\n", len(ids), kind, r.config.BatchSize)

		tracker := NewProgressTracker(r.progress, kind, len(ids), r.config.ReportInterval)
		tracker.Start()

		skipped, err := iterator.ForEach(ctx, func(records []core.Record) error {
			failed, err := processor.Process(ctx, records)
			stats.Indexed += len(records) - failed
			stats.Failed += failed
			tracker.Add(len(records), failed)
			return err
		})
		stats.Skipped += skipped
		if err != nil {
			return stats, err
		}

		tracker.Finish()
		r.logger.Info("reindexed kind", "kind", kind, "records", len(ids), "skipped", skipped)
	}

	stats.Elapsed = time.Since(start)
	fmt.Fprintf(r.progress, "Reindex complete. %d indexed, %d failed, %d skipped in %v\n",
		stats.Indexed, stats.Failed, stats.Skipped, stats.Elapsed.Round(time.Millisecond))
	return stats, nil
}
