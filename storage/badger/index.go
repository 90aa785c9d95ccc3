package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/strata/index"
	"github.com/poiesic/strata/storage"
)

// IndexStore implements index.Store in BadgerDB. Each member is a key under
// its container's prefix whose value is the insertion sequence number, so
// members list in insertion order.
type IndexStore struct {
	backend *Backend
	seq     *badger.Sequence
	sep     string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ index.Store = (*IndexStore)(nil)

// IndexStoreOption configures an IndexStore.
type IndexStoreOption func(*IndexStore)

// WithSeparator sets the separator containers are built with.
func WithSeparator(sep string) IndexStoreOption {
	return func(s *IndexStore) {
		if sep != "" {
			s.sep = sep
		}
	}
}

// NewIndexStore creates an IndexStore on backend.
func NewIndexStore(backend *Backend, opts ...IndexStoreOption) (*IndexStore, error) {
	seq, err := backend.GetSequence(indexEntrySeq)
	if err != nil {
		return nil, err
	}
	s := &IndexStore{
		backend: backend,
		seq:     seq,
		sep:     "/",
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the insertion sequence.
func (s *IndexStore) Close() error {
	return s.seq.Release()
}

// Separator implements index.Store.
func (s *IndexStore) Separator() string {
	return s.sep
}

func (s *IndexStore) nextSeq() (uint64, error) {
	next, err := s.seq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if next == 0 {
		return s.seq.Next()
	}
	return next, nil
}

// Add implements index.Store.
func (s *IndexStore) Add(ctx context.Context, container, member string) error {
	key := makeIndexEntryKey(container, member)
	err := s.backend.WithTransaction(ctx, func(ctx context.Context, tx *badger.Txn) error {
		_, err := tx.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		next, err := s.nextSeq()
		if err != nil {
			return err
		}
		return tx.Set(key, storage.MarshalSeq(next))
	})
	if err != nil {
		return fmt.Errorf("add index entry %s/%s: %w", container, member, err)
	}
	return nil
}

// Remove implements index.Store.
func (s *IndexStore) Remove(ctx context.Context, container, member string) error {
	key := makeIndexEntryKey(container, member)
	err := s.backend.WithTransaction(ctx, func(ctx context.Context, tx *badger.Txn) error {
		return tx.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("remove index entry %s/%s: %w", container, member, err)
	}
	return nil
}

// Members implements index.Store.
func (s *IndexStore) Members(ctx context.Context, container string) ([]string, error) {
	type entry struct {
		member string
		seq    uint64
	}
	var entries []entry

	prefix := makeIndexContainerPrefix(container)
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			member := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				seq, err := storage.UnmarshalSeq(val)
				if err != nil {
					return err
				}
				entries = append(entries, entry{member: member, seq: seq})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(entries, func(a, b entry) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		default:
			return 0
		}
	})
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.member
	}
	return out, nil
}

// WithLock implements index.Store. Locks are held in process.
func (s *IndexStore) WithLock(ctx context.Context, container string, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	l, ok := s.locks[container]
	if !ok {
		l = &sync.Mutex{}
		s.locks[container] = l
	}
	s.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
