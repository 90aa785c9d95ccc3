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
	"errors"
	"log/slog"

	"github.com/poiesic/strata/core"
	"github.com/poiesic/strata/objects"
)

const (
	// DefaultBatchSize is the default number of records handed over per batch
	DefaultBatchSize = 100
)

// RecordIterator walks the records of one kind. Records live at
// Kind/<shard2>/<shard3>/<id>/data.json, so ids are found three directory
// levels below the kind.
type RecordIterator struct {
	store     *objects.Store
	kind      string
	batchSize int
	logger    *slog.Logger
}

func NewRecordIterator(store *objects.Store, kind string, batchSize int, logger *slog.Logger) *RecordIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RecordIterator{
		store:     store,
		kind:      kind,
		batchSize: batchSize,
		logger:    logger,
	}
}

// IDs returns the ids of every stored record of the iterator's kind.
func (it *RecordIterator) IDs(ctx context.Context) ([]string, error) {
	if !it.store.Exists(ctx, it.kind) {
		return []string{}, nil
	}

	ids := []string{}
	shards2, err := it.store.List(ctx, it.kind)
	if err != nil {
		return nil, err
	}
	for _, s2 := range shards2 {
		shards3, err := it.store.List(ctx, it.store.Join(it.kind, s2))
		if err != nil {
			return nil, err
		}
		for _, s3 := range shards3 {
			children, err := it.store.List(ctx, it.store.Join(it.kind, s2, s3))
			if err != nil {
				return nil, err
			}
			ids = append(ids, children...)
		}
	}
	return ids, nil
}

// ForEach loads the records in batches and calls fn with each batch.
// Records that cannot be loaded are logged and skipped; skipped reports
// how many.
func (it *RecordIterator) ForEach(ctx context.Context, fn func([]core.Record) error) (skipped int, err error) {
	ids, err := it.IDs(ctx)
	if err != nil {
		return 0, err
	}

	batch := make([]core.Record, 0, it.batchSize)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return skipped, err
		}

		rec, err := it.store.LoadByID(ctx, it.kind, id)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return skipped, err
			}
			it.logger.Warn("skipping unreadable record", "kind", it.kind, "id", id, "err", err)
			skipped++
			continue
		}
		batch = append(batch, rec)

		if len(batch) == it.batchSize {
			if err := fn(batch); err != nil {
				return skipped, err
			}
			batch = make([]core.Record, 0, it.batchSize)
		}
	}

	if len(batch) > 0 {
		if err := fn(batch); err != nil {
			return skipped, err
		}
	}
	return skipped, nil
}
