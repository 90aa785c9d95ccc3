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

// Package strata stores JSON records on a local or SeaweedFS file tree and
// keeps secondary indexes for them as directory paths.
package strata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/poiesic/strata/config"
	"github.com/poiesic/strata/core"
	"github.com/poiesic/strata/index"
	"github.com/poiesic/strata/objects"
	"github.com/poiesic/strata/reindex"
	"github.com/poiesic/strata/search"
	"github.com/poiesic/strata/storage"
	"github.com/poiesic/strata/storage/badger"
	"github.com/poiesic/strata/storage/local"
	"github.com/poiesic/strata/storage/remote"
	"github.com/poiesic/strata/vacuum"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultLatestCount is the number of campaigns LatestCampaigns returns
// when no count is given.
const DefaultLatestCount = 25

// ImageExt is the extension of stored campaign images.
const ImageExt = ".png"

// VacuumSkip names the top-level folders VacuumAll leaves alone.
var VacuumSkip = []string{"admin", "LatLonIndex", core.KindUser, "EmailUserIndex"}

type Database struct {
	cfg          *config.Config
	backend      storage.Backend
	objects      *objects.Store
	engine       *index.Engine
	indexBackend *badger.Backend
	indexStore   *badger.IndexStore
	metrics      *storage.Metrics
	logger       *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	backend  storage.Backend
	registry prometheus.Registerer
	logger   *slog.Logger
}

// WithBackend uses b instead of the backend the configuration describes.
func WithBackend(b storage.Backend) DatabaseOption {
	return func(o *databaseOptions) {
		o.backend = b
	}
}

// WithRegisterer sets where backend metrics are registered when metrics
// are enabled. Default is prometheus.DefaultRegisterer.
func WithRegisterer(r prometheus.Registerer) DatabaseOption {
	return func(o *databaseOptions) {
		o.registry = r
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewDatabase opens the store cfg describes. A nil cfg means
// config.DefaultConfig().
func NewDatabase(ctx context.Context, cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger

	// Open backend
	backend, root, err := openBackend(cfg, options)
	if err != nil {
		return nil, err
	}

	db := &Database{
		cfg:    cfg,
		logger: logger,
	}
	if cfg.Metrics {
		db.metrics = storage.NewMetrics(options.registry)
		backend = storage.Instrument(backend, db.metrics)
	}
	db.backend = backend

	// Create object store
	db.objects, err = objects.New(ctx, backend, root,
		objects.WithLegacyLoad(cfg.LegacyLoad),
		objects.WithLockOptions(cfg.LeaseOptions()...),
		objects.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	// Create index store
	var store index.Store
	switch cfg.IndexBackend {
	case config.IndexBadger:
		db.indexBackend, err = badger.OpenBackend(cfg.IndexDir, cfg.IndexDir == "", badger.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		db.indexStore, err = badger.NewIndexStore(db.indexBackend, badger.WithSeparator(backend.Separator()))
		if err != nil {
			db.indexBackend.Close()
			return nil, err
		}
		store = db.indexStore
	default:
		store = index.NewPathStore(db.objects)
	}

	db.engine, err = index.NewEngine(store,
		index.WithLanguage(cfg.Language),
		index.WithMaxLatest(cfg.MaxLatest),
		index.WithLogger(logger),
	)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("database opened", "storage", cfg.StorageType, "index", cfg.IndexBackend)
	return db, nil
}

func openBackend(cfg *config.Config, options *databaseOptions) (storage.Backend, string, error) {
	if options.backend != nil {
		return options.backend, "", nil
	}
	switch cfg.StorageType {
	case config.StorageRemote:
		b, err := remote.New(cfg.FilerURL, remote.WithLogger(options.logger))
		if err != nil {
			return nil, "", err
		}
		return b, cfg.RemoteBaseFolder, nil
	default:
		if err := os.MkdirAll(cfg.LocalBaseFolder, 0o755); err != nil {
			return nil, "", fmt.Errorf("create %s: %w", cfg.LocalBaseFolder, err)
		}
		b := local.NewOS(cfg.LocalBaseFolder, local.WithSeparator(cfg.Separator), local.WithLogger(options.logger))
		return b, "", nil
	}
}

func (db *Database) Close() error {
	if db.indexStore != nil {
		if err := db.indexStore.Close(); err != nil {
			db.logger.Error("error closing index store", "err", err)
			return err
		}
	}
	if db.indexBackend != nil {
		if err := db.indexBackend.Close(); err != nil {
			db.logger.Error("error closing index backend", "err", err)
			return err
		}
	}
	return nil
}

func (db *Database) Config() *config.Config {
	return db.cfg
}

func (db *Database) Objects() *objects.Store {
	return db.objects
}

func (db *Database) Engine() *index.Engine {
	return db.engine
}

// Metrics returns the backend metrics, or nil when metrics are disabled.
func (db *Database) Metrics() *storage.Metrics {
	return db.metrics
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.engine, db.objects, opts...)
}

func (db *Database) NewReindexer(cfg *reindex.Config, progress io.Writer, opts ...reindex.Option) (*reindex.Reindexer, error) {
	opts = append([]reindex.Option{reindex.WithLogger(db.logger)}, opts...)
	return reindex.NewReindexer(db.objects, db.engine, cfg, progress, opts...)
}

// ######
// users
// ######

// SaveUser stores u and brings its email index up to date.
func (db *Database) SaveUser(ctx context.Context, u *core.User) error {
	previous, err := db.existingUser(ctx, u.ID)
	if err != nil {
		return err
	}
	if err := db.objects.Save(ctx, u); err != nil {
		return err
	}
	return db.engine.UpdateUserIndexes(ctx, previous, u)
}

func (db *Database) existingUser(ctx context.Context, id string) (*core.User, error) {
	if id == "" {
		return nil, nil
	}
	u, err := db.LoadUser(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

// LoadUser reads the user with the given id. A missing user yields an
// error matching storage.ErrNotFound.
func (db *Database) LoadUser(ctx context.Context, id string) (*core.User, error) {
	p, err := core.RecordPath(db.objects.Separator(), core.KindUser, id)
	if err != nil {
		return nil, err
	}
	u := &core.User{}
	if err := db.objects.LoadAs(ctx, p, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UserByEmail returns the first user indexed under email.
func (db *Database) UserByEmail(ctx context.Context, email string) (*core.User, error) {
	ids, err := db.engine.UserIDsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: user with email %s", storage.ErrNotFound, email)
	}
	return db.LoadUser(ctx, ids[0])
}

// DeleteUser removes the user's index entries and its record directory.
func (db *Database) DeleteUser(ctx context.Context, id string) error {
	u, err := db.LoadUser(ctx, id)
	if err != nil {
		return err
	}
	if err := db.engine.DeleteUserIndexes(ctx, u); err != nil {
		return err
	}
	parent, err := core.ParentOf(db.objects.Separator(), u)
	if err != nil {
		return err
	}
	return db.objects.Remove(ctx, parent, true)
}

// ########
// campaigns
// ########

// SaveCampaign stores c and brings its indexes up to date. An existing
// campaign keeps its creation time and loses the word entries its new text
// no longer contains. A non-nil image is stored next to the record and
// c.ImagePath is set to it.
func (db *Database) SaveCampaign(ctx context.Context, c *core.Campaign, image io.Reader) error {
	var previous *core.Campaign
	if c.ID != "" {
		old, err := db.LoadCampaign(ctx, c.ID)
		switch {
		case err == nil:
			previous = old
			c.Created = old.Created
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}
	} else {
		c.Stamp(core.KindCampaign)
	}

	if image != nil {
		parent, err := core.ParentOf(db.objects.Separator(), c)
		if err != nil {
			return err
		}
		imgPath := db.objects.Join(parent, core.NewID()+ImageExt)
		if err := db.objects.Put(ctx, imgPath, image); err != nil {
			return err
		}
		c.ImagePath = imgPath
	}

	if err := db.objects.Save(ctx, c); err != nil {
		return err
	}
	return db.engine.UpdateCampaignIndexes(ctx, previous, c)
}

// LoadCampaign reads the campaign with the given id. A missing campaign
// yields an error matching storage.ErrNotFound.
func (db *Database) LoadCampaign(ctx context.Context, id string) (*core.Campaign, error) {
	p, err := core.RecordPath(db.objects.Separator(), core.KindCampaign, id)
	if err != nil {
		return nil, err
	}
	c := &core.Campaign{}
	if err := db.objects.LoadAs(ctx, p, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCampaign removes the campaign's index entries, then its record
// directory with any stored images.
func (db *Database) DeleteCampaign(ctx context.Context, id string) error {
	c, err := db.LoadCampaign(ctx, id)
	if err != nil {
		return err
	}
	if err := db.engine.DeleteCampaignIndexes(ctx, c); err != nil {
		return err
	}
	parent, err := core.ParentOf(db.objects.Separator(), c)
	if err != nil {
		return err
	}
	return db.objects.Remove(ctx, parent, true)
}

// LoadImage opens a stored campaign image. The caller closes it.
func (db *Database) LoadImage(ctx context.Context, p string) (io.ReadCloser, error) {
	return db.objects.Get(ctx, p)
}

// CampaignsByUser returns the campaigns owned by userID.
func (db *Database) CampaignsByUser(ctx context.Context, userID string) ([]*core.Campaign, error) {
	ids, err := db.engine.CampaignIDsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return db.loadCampaigns(ctx, ids)
}

// LatestCampaigns returns up to n of the most recently indexed campaigns,
// newest first. n <= 0 means DefaultLatestCount.
func (db *Database) LatestCampaigns(ctx context.Context, n int) ([]*core.Campaign, error) {
	if n <= 0 {
		n = DefaultLatestCount
	}
	ids, err := db.engine.LatestCampaignIDs(ctx)
	if err != nil {
		return nil, err
	}
	slices.Reverse(ids)
	if len(ids) > n {
		ids = ids[:n]
	}
	return db.loadCampaigns(ctx, ids)
}

// loadCampaigns loads ids in order, skipping ids whose record is gone.
func (db *Database) loadCampaigns(ctx context.Context, ids []string) ([]*core.Campaign, error) {
	out := make([]*core.Campaign, 0, len(ids))
	for _, id := range ids {
		c, err := db.LoadCampaign(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				db.logger.Debug("indexed campaign not found", "id", id)
				continue
			}
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Search finds campaigns by the words of query.
func (db *Database) Search(ctx context.Context, query string) ([]*core.Campaign, error) {
	s, err := db.NewSearcher(search.WithLogger(db.logger))
	if err != nil {
		return nil, err
	}
	return s.Search(ctx, query)
}

// ########
// housekeeping
// ########

// Vacuum removes empty subtrees below p.
func (db *Database) Vacuum(ctx context.Context, p string) (bool, error) {
	return db.objects.Vacuum(ctx, p)
}

// VacuumAll vacuums every top-level folder except those in VacuumSkip and
// returns the folders that were removed.
func (db *Database) VacuumAll(ctx context.Context) ([]string, error) {
	top, err := db.objects.List(ctx, db.objects.Root())
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, name := range top {
		if slices.Contains(VacuumSkip, name) {
			continue
		}
		gone, err := db.objects.Vacuum(ctx, name, vacuum.WithLogger(db.logger))
		if err != nil {
			return removed, err
		}
		if gone {
			removed = append(removed, name)
		}
	}
	return removed, nil
}
