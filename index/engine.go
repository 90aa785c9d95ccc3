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

package index

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// DefaultMaxLatest is the default cap of a latest index.
const DefaultMaxLatest = 100

// Engine adds, removes and resolves index entries.
type Engine struct {
	store     Store
	stopWords map[string]bool
	maxLatest int
	logger    *slog.Logger
}

type engineConfig struct {
	language  string
	stopWords []string
	maxLatest int
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineConfig)

// WithLanguage selects the bundled stop-word list.
func WithLanguage(language string) EngineOption {
	return func(c *engineConfig) {
		c.language = language
	}
}

// WithStopWords replaces the stop-word list.
func WithStopWords(words ...string) EngineOption {
	return func(c *engineConfig) {
		c.stopWords = words
	}
}

// WithMaxLatest caps the latest index.
func WithMaxLatest(n int) EngineOption {
	return func(c *engineConfig) {
		if n > 0 {
			c.maxLatest = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(c *engineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewEngine creates an Engine over store.
func NewEngine(store Store, opts ...EngineOption) (*Engine, error) {
	cfg := engineConfig{
		language:  DefaultLanguage,
		maxLatest: DefaultMaxLatest,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	stop := NewStopWords(cfg.stopWords...)
	if cfg.stopWords == nil {
		var err error
		if stop, err = StopWords(cfg.language); err != nil {
			return nil, err
		}
	}
	return &Engine{
		store:     store,
		stopWords: stop,
		maxLatest: cfg.maxLatest,
		logger:    cfg.logger,
	}, nil
}

// Store returns the backing store.
func (e *Engine) Store() Store { return e.store }

// MaxLatest returns the latest index cap.
func (e *Engine) MaxLatest() int { return e.maxLatest }

// Container returns the listing path for ref.
func (e *Engine) Container(d Definition, ref string, qualifiers map[string]string) (string, error) {
	return BuildPath(d, e.store.Separator(), ref, "", qualifiers)
}

func (e *Engine) container(d Definition, ref, target string, qualifiers map[string]string) (string, error) {
	if target == "" {
		return "", fmt.Errorf("%w: %s empty target", ErrInvalidArgument, d.Name)
	}
	if _, err := BuildPath(d, e.store.Separator(), ref, target, qualifiers); err != nil {
		return "", err
	}
	return e.Container(d, ref, qualifiers)
}

// Add records that ref relates to target.
func (e *Engine) Add(ctx context.Context, d Definition, ref, target string, qualifiers map[string]string) error {
	c, err := e.container(d, ref, target, qualifiers)
	if err != nil {
		return err
	}
	return e.store.Add(ctx, c, target)
}

// Remove deletes the relation between ref and target if present.
func (e *Engine) Remove(ctx context.Context, d Definition, ref, target string, qualifiers map[string]string) error {
	c, err := e.container(d, ref, target, qualifiers)
	if err != nil {
		return err
	}
	return e.store.Remove(ctx, c, target)
}

// IDsFor returns the targets related to ref, oldest first.
func (e *Engine) IDsFor(ctx context.Context, d Definition, ref string, qualifiers map[string]string) ([]string, error) {
	c, err := e.Container(d, ref, qualifiers)
	if err != nil {
		return nil, err
	}
	return e.store.Members(ctx, c)
}

// Clear removes every target related to ref.
func (e *Engine) Clear(ctx context.Context, d Definition, ref string, qualifiers map[string]string) error {
	c, err := e.Container(d, ref, qualifiers)
	if err != nil {
		return err
	}
	members, err := e.store.Members(ctx, c)
	if err != nil {
		return err
	}
	for _, m := range members {
		if err := e.store.Remove(ctx, c, m); err != nil {
			return err
		}
	}
	return nil
}

// CleanWords tokenizes text with the engine's stop words.
func (e *Engine) CleanWords(text string) []string {
	return CleanWords(text, e.stopWords)
}

// IndexWords relates every word of text to target.
func (e *Engine) IndexWords(ctx context.Context, d Definition, text, target string) error {
	for _, w := range e.CleanWords(text) {
		if err := e.Add(ctx, d, w, target, nil); err != nil {
			return fmt.Errorf("index word %q: %w", w, err)
		}
	}
	return nil
}

// UpdateWords removes entries for words of oldText missing from newText,
// then adds entries for every word of newText.
func (e *Engine) UpdateWords(ctx context.Context, d Definition, oldText, newText, target string) error {
	current := e.CleanWords(newText)
	for _, w := range e.CleanWords(oldText) {
		if slices.Contains(current, w) {
			continue
		}
		if err := e.Remove(ctx, d, w, target, nil); err != nil {
			return fmt.Errorf("unindex word %q: %w", w, err)
		}
	}
	for _, w := range current {
		if err := e.Add(ctx, d, w, target, nil); err != nil {
			return fmt.Errorf("index word %q: %w", w, err)
		}
	}
	return nil
}

// RemoveWords removes the entries of every word of text for target.
func (e *Engine) RemoveWords(ctx context.Context, d Definition, text, target string) error {
	for _, w := range e.CleanWords(text) {
		if err := e.Remove(ctx, d, w, target, nil); err != nil {
			return fmt.Errorf("unindex word %q: %w", w, err)
		}
	}
	return nil
}

// WordIDs returns the targets indexed under word. A word removed by
// cleaning yields no ids.
func (e *Engine) WordIDs(ctx context.Context, d Definition, word string) ([]string, error) {
	words := e.CleanWords(word)
	if len(words) == 0 {
		return []string{}, nil
	}
	return e.IDsFor(ctx, d, words[0], nil)
}

// AddLatest appends target to a bounded FIFO container. While the container
// holds max or more members the oldest is evicted, so at most max survive.
// A target already present keeps its position.
func (e *Engine) AddLatest(ctx context.Context, d Definition, ref, target string, max int) error {
	if max <= 0 {
		max = e.maxLatest
	}
	c, err := e.container(d, ref, target, nil)
	if err != nil {
		return err
	}
	return e.store.WithLock(ctx, c, func(ctx context.Context) error {
		members, err := e.store.Members(ctx, c)
		if err != nil {
			return err
		}
		if slices.Contains(members, target) {
			return nil
		}
		for len(members) >= max {
			oldest := members[0]
			if err := e.store.Remove(ctx, c, oldest); err != nil {
				return err
			}
			e.logger.Debug("evicted from latest index", "index", d.Name, "id", oldest)
			members = members[1:]
		}
		return e.store.Add(ctx, c, target)
	})
}

// RemoveLatest removes target from a latest container.
func (e *Engine) RemoveLatest(ctx context.Context, d Definition, ref, target string) error {
	return e.Remove(ctx, d, ref, target, nil)
}

// LatestIDs returns the members of a latest container, oldest first.
func (e *Engine) LatestIDs(ctx context.Context, d Definition, ref string) ([]string, error) {
	return e.IDsFor(ctx, d, ref, nil)
}
