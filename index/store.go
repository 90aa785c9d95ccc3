package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/strata/objects"
)

// Store persists index relations. A container is the path built for a
// reference id without a target; its members are target ids.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Add records member in container. Adding an existing member is a no-op
	// and does not change its position.
	Add(ctx context.Context, container, member string) error

	// Remove deletes member from container. Removing an absent member is a
	// no-op.
	Remove(ctx context.Context, container, member string) error

	// Members returns the members of container in insertion order, or an
	// empty slice if the container does not exist.
	Members(ctx context.Context, container string) ([]string, error)

	// WithLock runs fn while holding exclusive access to container.
	WithLock(ctx context.Context, container string, fn func(ctx context.Context) error) error

	// Separator returns the path separator containers are built with.
	Separator() string
}

// PathStore keeps each relation as a zero-byte marker file in the object
// store, so that a directory listing answers a lookup.
type PathStore struct {
	objects *objects.Store
}

var _ Store = (*PathStore)(nil)

// NewPathStore creates a Store over s.
func NewPathStore(s *objects.Store) *PathStore {
	return &PathStore{objects: s}
}

// Separator implements Store.
func (p *PathStore) Separator() string {
	return p.objects.Separator()
}

func (p *PathStore) marker(container, member string) string {
	return p.objects.Join(container, member+MarkerSuffix)
}

// Add implements Store.
func (p *PathStore) Add(ctx context.Context, container, member string) error {
	m := p.marker(container, member)
	if p.objects.Exists(ctx, m) {
		return nil
	}
	if err := p.objects.Put(ctx, m, strings.NewReader("")); err != nil {
		return fmt.Errorf("add index entry %s: %w", m, err)
	}
	return nil
}

// Remove implements Store.
func (p *PathStore) Remove(ctx context.Context, container, member string) error {
	m := p.marker(container, member)
	if !p.objects.Exists(ctx, m) {
		return nil
	}
	if err := p.objects.Remove(ctx, m, false); err != nil {
		return fmt.Errorf("remove index entry %s: %w", m, err)
	}
	return nil
}

// Members implements Store. The marker suffix is stripped from the listed names.
func (p *PathStore) Members(ctx context.Context, container string) ([]string, error) {
	if !p.objects.Exists(ctx, container) {
		return []string{}, nil
	}
	names, err := p.objects.List(ctx, container)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSuffix(n, MarkerSuffix)
		if n != "" {
			out = append(out, n)
		}
	}
	return out, nil
}

// WithLock implements Store using a lease on the container path.
func (p *PathStore) WithLock(ctx context.Context, container string, fn func(ctx context.Context) error) error {
	return p.objects.WithLock(ctx, container, fn)
}
