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

package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/poiesic/strata/core"
	"github.com/poiesic/strata/index"
	"github.com/poiesic/strata/objects"
	"github.com/poiesic/strata/storage"
)

// DefaultMaxIDs caps the number of campaign ids a search loads.
const DefaultMaxIDs = 100

// Searcher finds campaigns through the word index.
type Searcher struct {
	engine     *index.Engine
	objects    *objects.Store
	maxIDs     int
	requireAll bool
	logger     *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMaxIDs caps the number of ids loaded per search.
// Default is DefaultMaxIDs.
func WithMaxIDs(n int) Option {
	return func(s *Searcher) error {
		if n < 1 {
			return errors.New("max ids must be positive")
		}
		s.maxIDs = n
		return nil
	}
}

// WithRequireAllWords keeps only campaigns whose text holds every query word.
func WithRequireAllWords() Option {
	return func(s *Searcher) error {
		s.requireAll = true
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(engine *index.Engine, store *objects.Store, opts ...Option) (*Searcher, error) {
	if engine == nil {
		return nil, ErrEngineRequired
	}
	if store == nil {
		return nil, ErrObjectStoreRequired
	}

	s := &Searcher{
		engine:  engine,
		objects: store,
		maxIDs:  DefaultMaxIDs,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search returns the campaigns matching query, most recently contributed to
// first.
func (s *Searcher) Search(ctx context.Context, query string) ([]*core.Campaign, error) {
	return s.SearchWithMonitor(ctx, query, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, monitor SearchMonitor) ([]*core.Campaign, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	// 1. Look up each cleaned word
	words := s.engine.CleanWords(query)
	seen := make(map[string]bool)
	var ids []string
	for _, word := range words {
		wordIDs, err := s.engine.IDsFor(ctx, index.WordCampaigns, word, nil)
		if err != nil {
			s.logger.Error("error reading word index", "word", word, "err", err)
			return nil, err
		}
		monitor.AfterWordLookup(word, wordIDs)
		for _, id := range wordIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) > s.maxIDs {
		ids = ids[:s.maxIDs]
	}
	monitor.AfterUnion(ids)

	if len(ids) == 0 {
		monitor.Finish([]*core.Campaign{})
		return []*core.Campaign{}, nil
	}

	// 2. Load the campaigns, skipping ids whose record is gone
	campaigns := make([]*core.Campaign, 0, len(ids))
	for _, id := range ids {
		c := &core.Campaign{}
		p, err := core.RecordPath(s.objects.Separator(), core.KindCampaign, id)
		if err != nil {
			s.logger.Warn("skipping malformed campaign id", "id", id, "err", err)
			continue
		}
		if err := s.objects.LoadAs(ctx, p, c); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.logger.Debug("indexed campaign not found", "id", id)
				continue
			}
			s.logger.Error("error loading campaign", "id", id, "err", err)
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	monitor.AfterRecordRetrieval(campaigns)

	// 3. Filter and order
	results := campaigns
	if s.requireAll {
		results = make([]*core.Campaign, 0, len(campaigns))
		for _, c := range campaigns {
			if containsAllWords(s.engine.CleanWords(c.Text()), words) {
				results = append(results, c)
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].LastContributionDatetime > results[j].LastContributionDatetime
	})
	monitor.Finish(results)

	return results, nil
}
