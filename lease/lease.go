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

// Package lease implements a best-effort mutual-exclusion lease on top of a
// storage.Backend that has no locking of its own.
//
// A lease on path P is the marker file P+".lock". A holder creates the marker,
// does its work and deletes it. A marker older than the lease timeout, or one
// whose age cannot be determined, is considered abandoned and is taken over.
// Markers are written with a TTL so that a backend with expiry support cleans
// up after holders that never release.
//
// Acquisition is bounded: after MaxAttempts probes Acquire gives up with
// ErrTimeout. It also returns as soon as its context is done.
package lease

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/strata/storage"
)

// Suffix is appended to a path to form its marker path.
const Suffix = ".lock"

const (
	// DefaultTimeout is the age after which a marker is considered stale.
	DefaultTimeout = time.Second

	// DefaultPollInterval is the wait between probes of a held marker.
	DefaultPollInterval = time.Second

	// MinTTL is the shortest expiry the remote store accepts.
	MinTTL = time.Minute

	// DefaultMaxAttempts bounds the number of probes made by Acquire.
	DefaultMaxAttempts = 30
)

// ErrTimeout is returned when a lease could not be acquired within the
// configured number of attempts.
var ErrTimeout = errors.New("lease acquisition timed out")

// State is the lifecycle state of a Lock.
type State int

const (
	Unlocked State = iota
	Acquiring
	Held
)

func (s State) String() string {
	switch s {
	case Unlocked:
		return "unlocked"
	case Acquiring:
		return "acquiring"
	case Held:
		return "held"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Lock is a lease on a single path. A Lock is not reentrant.
type Lock struct {
	backend storage.Backend
	marker  string

	timeout     time.Duration
	poll        time.Duration
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
	logger      *slog.Logger

	mu    sync.Mutex
	state State
}

// Option configures a Lock.
type Option func(*Lock)

// WithTimeout sets the age after which a marker is considered stale.
func WithTimeout(d time.Duration) Option {
	return func(l *Lock) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithPollInterval sets the wait between probes.
func WithPollInterval(d time.Duration) Option {
	return func(l *Lock) {
		if d > 0 {
			l.poll = d
		}
	}
}

// WithTTL sets the expiry requested for the marker. Values below MinTTL are
// raised to MinTTL.
func WithTTL(d time.Duration) Option {
	return func(l *Lock) {
		if d < MinTTL {
			d = MinTTL
		}
		l.ttl = d
	}
}

// WithMaxAttempts bounds the number of probes made by Acquire.
func WithMaxAttempts(n int) Option {
	return func(l *Lock) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

// WithClock sets the time source used to judge marker age.
func WithClock(now func() time.Time) Option {
	return func(l *Lock) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lock) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Lock for path on backend. Nothing is written until Acquire.
func New(backend storage.Backend, path string, opts ...Option) *Lock {
	l := &Lock{
		backend:     backend,
		marker:      path + Suffix,
		timeout:     DefaultTimeout,
		poll:        DefaultPollInterval,
		ttl:         MinTTL,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Marker returns the path of the marker file.
func (l *Lock) Marker() string {
	return l.marker
}

// State returns the current state.
func (l *Lock) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Lock) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Acquire blocks until the lease is held, the attempts are exhausted or ctx
// is done.
func (l *Lock) Acquire(ctx context.Context) error {
	l.mu.Lock()
	if l.state != Unlocked {
		l.mu.Unlock()
		return fmt.Errorf("lease %s: already %s", l.marker, l.state)
	}
	l.state = Acquiring
	l.mu.Unlock()

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			l.setState(Unlocked)
			return err
		}

		free, err := l.probe(ctx)
		if err != nil {
			l.setState(Unlocked)
			return err
		}
		if free {
			if err := l.backend.Put(ctx, l.marker, strings.NewReader(""), storage.WithTTL(l.ttl)); err != nil {
				l.setState(Unlocked)
				return fmt.Errorf("lease %s: %w", l.marker, err)
			}
			l.setState(Held)
			l.logger.Debug("lease acquired", "marker", l.marker, "attempt", attempt)
			return nil
		}

		if attempt == l.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			l.setState(Unlocked)
			return ctx.Err()
		case <-time.After(l.poll):
		}
	}

	l.setState(Unlocked)
	return fmt.Errorf("%w: %s after %d attempts", ErrTimeout, l.marker, l.maxAttempts)
}

// probe reports whether the marker is absent, removing it first when stale.
func (l *Lock) probe(ctx context.Context) (bool, error) {
	md, err := l.backend.Stat(ctx, l.marker)
	if errors.Is(err, storage.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("lease %s: %w", l.marker, err)
	}

	// Last-Modified has whole-second precision, so the marker may be up to
	// a second younger than it looks.
	modified, err := md.LastModified()
	if err == nil && l.now().Sub(modified) <= l.timeout+time.Second {
		return false, nil
	}

	l.logger.Info("taking over stale lease", "marker", l.marker, "last_modified", md[storage.MetaLastModified])
	if err := l.backend.Remove(ctx, l.marker, false); err != nil {
		return false, fmt.Errorf("lease %s: remove stale marker: %w", l.marker, err)
	}
	return true, nil
}

// Release deletes the marker if it exists.
func (l *Lock) Release(ctx context.Context) error {
	defer l.setState(Unlocked)
	if err := l.backend.Remove(ctx, l.marker, false); err != nil {
		return fmt.Errorf("lease %s: release: %w", l.marker, err)
	}
	l.logger.Debug("lease released", "marker", l.marker)
	return nil
}

// Do holds a lease on path for the duration of fn. The lease is released
// even when fn fails.
func Do(ctx context.Context, backend storage.Backend, path string, fn func(ctx context.Context) error, opts ...Option) (err error) {
	l := New(backend, path, opts...)
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer func() {
		// Release with a fresh context so a cancelled caller still cleans up.
		if rerr := l.Release(context.WithoutCancel(ctx)); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	return fn(ctx)
}
