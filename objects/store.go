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

// Package objects maps typed records onto sharded paths in a storage.Backend.
//
// Every record lives at Kind/<last 2 of id>/<last 3 of id>/<id>/data.json
// below the store root, serialized as indented JSON carrying a "kind" tag.
// The store never caches: each call goes to the backend.
package objects

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/poiesic/strata/core"
	"github.com/poiesic/strata/lease"
	"github.com/poiesic/strata/storage"
	"github.com/poiesic/strata/vacuum"
)

// Store is the object store.
type Store struct {
	backend  storage.Backend
	root     string
	sep      string
	registry *core.Registry
	legacy   bool
	lockOpts []lease.Option
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithRegistry sets the kinds the store can load. Defaults to
// core.DefaultRegistry().
func WithRegistry(r *core.Registry) Option {
	return func(s *Store) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithLegacyLoad enables loading data written without a kind tag, by
// probing the registered kinds in order.
func WithLegacyLoad(enabled bool) Option {
	return func(s *Store) {
		s.legacy = enabled
	}
}

// WithLockOptions sets the lease options used by locked writes.
func WithLockOptions(opts ...lease.Option) Option {
	return func(s *Store) {
		s.lockOpts = append(s.lockOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a store rooted at root on backend and makes sure the root
// directory exists. An empty root uses the backend's top level.
func New(ctx context.Context, backend storage.Backend, root string, opts ...Option) (*Store, error) {
	s := &Store{
		backend:  backend,
		root:     strings.TrimSuffix(root, backend.Separator()),
		sep:      backend.Separator(),
		registry: core.DefaultRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lockOpts = append([]lease.Option{lease.WithLogger(s.logger)}, s.lockOpts...)
	if s.root != "" {
		if err := backend.MakeDirectory(ctx, s.root); err != nil {
			return nil, fmt.Errorf("create root %s: %w", s.root, err)
		}
	}
	return s, nil
}

// Backend returns the underlying backend.
func (s *Store) Backend() storage.Backend { return s.backend }

// Root returns the root path.
func (s *Store) Root() string { return s.root }

// Separator returns the path separator.
func (s *Store) Separator() string { return s.sep }

// Registry returns the kinds the store can load.
func (s *Store) Registry() *core.Registry { return s.registry }

// Join joins path elements with the store's separator.
func (s *Store) Join(parts ...string) string {
	return strings.Join(parts, s.sep)
}

// FullPath prefixes p with the root unless it is already there.
func (s *Store) FullPath(p string) string {
	if s.root == "" || p == s.root || strings.HasPrefix(p, s.root+s.sep) {
		return p
	}
	return s.root + s.sep + strings.TrimPrefix(p, s.sep)
}

// Save stamps rec (id on first save, created once, modified always, kind)
// and writes it to its record path.
func (s *Store) Save(ctx context.Context, rec core.Record, opts ...PutOption) error {
	rec.Metadata().Stamp(rec.RecordKind())
	if err := core.ValidateID(rec.Metadata().ID); err != nil {
		return err
	}
	parent, err := core.ParentOf(s.sep, rec)
	if err != nil {
		return err
	}
	if !s.Exists(ctx, parent) {
		if err := s.MakeDirectory(ctx, parent); err != nil {
			return fmt.Errorf("%w: %s: %w", storage.ErrNotWritten, parent, err)
		}
	}
	data, err := storage.MarshalRecord(rec)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrNotWritten, err)
	}
	if err := s.Put(ctx, s.Join(parent, core.DataFile), bytes.NewReader(data), opts...); err != nil {
		return err
	}
	s.logger.Debug("saved record", "kind", rec.RecordKind(), "id", rec.Metadata().ID)
	return nil
}

func (s *Store) read(ctx context.Context, p string) ([]byte, error) {
	rc, err := s.backend.Get(ctx, s.FullPath(p))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Load reads the record at p and builds it from its stored kind tag. With
// legacy loading enabled, untagged data is matched against the registered
// kinds in order and the first kind whose required fields are present wins.
func (s *Store) Load(ctx context.Context, p string) (core.Record, error) {
	data, err := s.read(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", storage.ErrLoad, p, err)
	}
	raw, err := storage.UnmarshalRaw(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", storage.ErrLoad, p, err)
	}

	kind := storage.RawString(raw, "kind")
	if !s.registry.Has(kind) && s.legacy {
		kind = s.probe(raw)
	}
	rec, err := s.registry.New(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", storage.ErrLoad, p, err)
	}
	if err := decode(data, raw, rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", storage.ErrLoad, p, err)
	}
	return rec, nil
}

// probe finds a kind for untagged data, or returns "".
func (s *Store) probe(raw map[string]json.RawMessage) string {
	if name := storage.RawString(raw, "model_name"); s.registry.Has(name) {
		return name
	}
	for _, kind := range s.registry.Kinds() {
		rec, err := s.registry.New(kind)
		if err != nil {
			continue
		}
		if core.CheckRequired(raw, rec) == nil {
			s.logger.Debug("legacy record matched", "kind", kind)
			return kind
		}
	}
	return ""
}

// LoadAs reads the record at p into rec. Data tagged with a different kind
// is rejected.
func (s *Store) LoadAs(ctx context.Context, p string, rec core.Record) error {
	data, err := s.read(ctx, p)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", storage.ErrLoad, p, err)
	}
	raw, err := storage.UnmarshalRaw(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", storage.ErrLoad, p, err)
	}
	if kind := storage.RawString(raw, "kind"); kind != "" && kind != rec.RecordKind() {
		return fmt.Errorf("%w: %s: kind mismatch: stored %q, want %q", storage.ErrLoad, p, kind, rec.RecordKind())
	}
	if err := decode(data, raw, rec); err != nil {
		return fmt.Errorf("%w: %s: %w", storage.ErrLoad, p, err)
	}
	return nil
}

// LoadByID reads the record of the given kind and id.
func (s *Store) LoadByID(ctx context.Context, kind, id string) (core.Record, error) {
	if err := core.ValidateID(id); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrLoad, err)
	}
	p, err := core.RecordPath(s.sep, kind, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrLoad, err)
	}
	return s.Load(ctx, p)
}

func decode(data []byte, raw map[string]json.RawMessage, rec core.Record) error {
	if err := core.CheckRequired(raw, rec); err != nil {
		return err
	}
	if err := storage.UnmarshalRecord(data, rec); err != nil {
		return err
	}
	m := rec.Metadata()
	if v := storage.RawString(raw, "created"); v != "" {
		m.Created = v
	}
	if v := storage.RawString(raw, "modified"); v != "" {
		m.Modified = v
	}
	m.Kind = rec.RecordKind()
	return nil
}

// Get opens the raw content at p.
func (s *Store) Get(ctx context.Context, p string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, s.FullPath(p))
}

// Put stores arbitrary content at p.
func (s *Store) Put(ctx context.Context, p string, r io.Reader, opts ...PutOption) error {
	o := applyPutOptions(opts)
	full := s.FullPath(p)
	var popts []storage.PutOption
	if o.ttl > 0 {
		popts = append(popts, storage.WithTTL(o.ttl))
	}
	put := func(ctx context.Context) error {
		return s.backend.Put(ctx, full, r, popts...)
	}
	if !o.lock {
		return put(ctx)
	}
	if err := lease.Do(ctx, s.backend, full, put, s.lockOpts...); err != nil {
		return fmt.Errorf("%w: %s: %w", storage.ErrNotWritten, p, err)
	}
	return nil
}

// WithLock runs fn while holding the lease on p.
func (s *Store) WithLock(ctx context.Context, p string, fn func(ctx context.Context) error) error {
	return lease.Do(ctx, s.backend, s.FullPath(p), fn, s.lockOpts...)
}

// Stat returns the metadata of p.
func (s *Store) Stat(ctx context.Context, p string) (storage.Metadata, error) {
	return s.backend.Stat(ctx, s.FullPath(p))
}

// List returns the child names of p, oldest first.
func (s *Store) List(ctx context.Context, p string) ([]string, error) {
	return s.backend.List(ctx, s.FullPath(p))
}

// ListRecords loads <p>/<child>/data.json for every child of p. An empty
// kind loads each record by its stored tag.
func (s *Store) ListRecords(ctx context.Context, p, kind string) ([]core.Record, error) {
	children, err := s.List(ctx, p)
	if err != nil {
		return nil, err
	}
	out := make([]core.Record, 0, len(children))
	for _, child := range children {
		recPath := s.Join(strings.TrimSuffix(p, s.sep), child, core.DataFile)
		if kind == "" {
			rec, err := s.Load(ctx, recPath)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
			continue
		}
		rec, err := s.registry.New(kind)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrLoad, err)
		}
		if err := s.LoadAs(ctx, recPath, rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Remove deletes p. Removing an absent path succeeds.
func (s *Store) Remove(ctx context.Context, p string, recursive bool) error {
	return s.backend.Remove(ctx, s.FullPath(p), recursive)
}

// Move renames src to dst, creating the destination's parent.
func (s *Store) Move(ctx context.Context, src, dst string) error {
	to := s.FullPath(dst)
	if i := strings.LastIndex(to, s.sep); i > 0 {
		if err := s.backend.MakeDirectory(ctx, to[:i]); err != nil {
			return fmt.Errorf("move %s: %w", src, err)
		}
	}
	return s.backend.Move(ctx, s.FullPath(src), to)
}

// DirectoryKeyValueMap reads a two-level directory as a map: each child of
// p is a key and the name of its (last listed) child is the value.
func (s *Store) DirectoryKeyValueMap(ctx context.Context, p string) (map[string]string, error) {
	keys, err := s.List(ctx, p)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		vals, err := s.List(ctx, s.Join(strings.TrimSuffix(p, s.sep), key))
		if err != nil {
			return nil, err
		}
		for _, v := range vals {
			out[key] = v
		}
	}
	return out, nil
}

// Exists reports whether p exists. Backend errors count as absent.
func (s *Store) Exists(ctx context.Context, p string) bool {
	ok, err := s.backend.Exists(ctx, s.FullPath(p))
	if err != nil {
		s.logger.Debug("exists check failed", "path", p, "err", err)
		return false
	}
	return ok
}

// IsDirectory reports whether p is a directory.
func (s *Store) IsDirectory(ctx context.Context, p string) (bool, error) {
	return s.backend.IsDirectory(ctx, s.FullPath(p))
}

// MakeDirectory creates p and its parents.
func (s *Store) MakeDirectory(ctx context.Context, p string) error {
	return s.backend.MakeDirectory(ctx, s.FullPath(p))
}

// Vacuum removes empty subtrees below p. See package vacuum.
func (s *Store) Vacuum(ctx context.Context, p string, opts ...vacuum.Option) (bool, error) {
	opts = append([]vacuum.Option{vacuum.WithLogger(s.logger)}, opts...)
	return vacuum.Run(ctx, s.backend, s.FullPath(p), opts...)
}
