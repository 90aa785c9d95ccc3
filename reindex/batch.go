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
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/strata/core"
	"github.com/poiesic/strata/index"
)

// Indexer updates the indexes of one record.
type Indexer func(ctx context.Context, engine *index.Engine, rec core.Record) error

// DefaultIndexers returns the indexers of the built-in kinds.
func DefaultIndexers() map[string]Indexer {
	return map[string]Indexer{
		core.KindCampaign: func(ctx context.Context, engine *index.Engine, rec core.Record) error {
			c, ok := rec.(*core.Campaign)
			if !ok {
				return fmt.Errorf("%w: %T", ErrUnsupportedKind, rec)
			}
			return engine.UpdateCampaignIndexes(ctx, nil, c)
		},
		core.KindUser: func(ctx context.Context, engine *index.Engine, rec core.Record) error {
			u, ok := rec.(*core.User)
			if !ok {
				return fmt.Errorf("%w: %T", ErrUnsupportedKind, rec)
			}
			return engine.UpdateUserIndexes(ctx, nil, u)
		},
	}
}

// BatchProcessor indexes batches of records on a worker pool.
type BatchProcessor struct {
	engine         *index.Engine
	indexers       map[string]Indexer
	pool           *ants.Pool
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

func NewBatchProcessor(engine *index.Engine, indexers map[string]Indexer, pool *ants.Pool, maxRetries int, retryBaseDelay time.Duration, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		engine:         engine,
		indexers:       indexers,
		pool:           pool,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		logger:         logger,
	}
}

// Process indexes records and waits for all of them. It returns the number
// of records that failed after every retry. An error is returned only when
// work could not be scheduled or ctx ended.
func (bp *BatchProcessor) Process(ctx context.Context, records []core.Record) (failed int, err error) {
	if len(records) == 0 {
		return 0, nil
	}

	var (
		wg       sync.WaitGroup
		failures atomic.Int64
	)
	for _, rec := range records {
		indexer, ok := bp.indexers[rec.RecordKind()]
		if !ok {
			bp.logger.Warn("no indexer for record", "kind", rec.RecordKind(), "id", rec.Metadata().ID)
			failures.Add(1)
			continue
		}

		wg.Add(1)
		submitErr := bp.pool.Submit(func() {
			defer wg.Done()
			err := RetryWithBackoff(ctx, func(ctx context.Context) error {
				return indexer(ctx, bp.engine, rec)
			}, bp.maxRetries, bp.retryBaseDelay)
			if err != nil {
				bp.logger.Error("failed to index record", "kind", rec.RecordKind(), "id", rec.Metadata().ID, "err", err)
				failures.Add(1)
			}
		})
		if submitErr != nil {
			wg.Done()
			wg.Wait()
			return int(failures.Load()), fmt.Errorf("failed to schedule indexing: %w", submitErr)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return int(failures.Load()), err
	}
	return int(failures.Load()), nil
}
