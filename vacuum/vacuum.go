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

// Package vacuum removes empty directory subtrees left behind by deleted
// records and index entries.
package vacuum

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/strata/storage"
)

type options struct {
	skip   map[string]bool
	logger *slog.Logger
}

// Option configures Run.
type Option func(*options)

// Skip leaves the named direct children of the starting path untouched.
// A skipped child counts as not removable.
func Skip(names ...string) Option {
	return func(o *options) {
		for _, n := range names {
			o.skip[n] = true
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Run deletes path if it is a directory containing, recursively, nothing but
// empty directories. Any file found aborts removal of every ancestor of that
// file. Run reports whether path no longer exists afterwards; a path that
// did not exist to begin with counts as removed.
func Run(ctx context.Context, b storage.Backend, path string, opts ...Option) (bool, error) {
	o := options{skip: make(map[string]bool), logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return run(ctx, b, path, &o, true)
}

func run(ctx context.Context, b storage.Backend, path string, o *options, top bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	exists, err := b.Exists(ctx, path)
	if err != nil {
		return false, fmt.Errorf("vacuum %s: %w", path, err)
	}
	if !exists {
		return true, nil
	}
	isDir, err := b.IsDirectory(ctx, path)
	if err != nil {
		return false, fmt.Errorf("vacuum %s: %w", path, err)
	}
	if !isDir {
		o.logger.Debug("vacuum found a file", "path", path)
		return false, nil
	}

	children, err := b.List(ctx, path)
	if err != nil {
		return false, fmt.Errorf("vacuum %s: %w", path, err)
	}

	removable := true
	base := strings.TrimSuffix(path, b.Separator())
	for _, child := range children {
		if top && o.skip[child] {
			removable = false
			continue
		}
		gone, err := run(ctx, b, base+b.Separator()+child, o, false)
		if err != nil {
			return false, err
		}
		if !gone {
			removable = false
		}
	}
	if !removable {
		return false, nil
	}

	if err := b.Remove(ctx, path, false); err != nil {
		return false, fmt.Errorf("vacuum %s: %w", path, err)
	}
	o.logger.Debug("vacuum removed", "path", path)

	exists, err = b.Exists(ctx, path)
	if err != nil {
		return false, fmt.Errorf("vacuum %s: %w", path, err)
	}
	return !exists, nil
}
