package strata

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/poiesic/strata/config"
	"github.com/poiesic/strata/core"
	"github.com/poiesic/strata/storage"
	"github.com/poiesic/strata/storage/local"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T, opts ...config.ConfigOption) *Database {
	t.Helper()
	db, err := NewDatabase(context.Background(), config.NewConfig(opts...),
		WithBackend(local.New(memfs.New(), local.WithSeparator("/"))))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newCampaign(title, description string) *core.Campaign {
	return &core.Campaign{
		Title:          title,
		Description:    description,
		UserID:         "user0001",
		CategoryID:     "health",
		Goal:           1000,
		CountryID:      1,
		CurrencyCode:   "USD",
		CurrencySymbol: "$",
	}
}

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data")
		db, err := NewDatabase(context.Background(), config.NewConfig(config.WithLocalStorage(dir)))
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		assert.NotNil(t, db.Objects())
		assert.NotNil(t, db.Engine())
		assert.NotNil(t, db.logger)
		assert.Nil(t, db.Metrics())
		assert.DirExists(t, dir)
	})

	t.Run("badger index", func(t *testing.T) {
		db, err := NewDatabase(context.Background(),
			config.NewConfig(config.WithBadgerIndex(filepath.Join(t.TempDir(), "index"))),
			WithBackend(local.New(memfs.New(), local.WithSeparator("/"))))
		require.NoError(t, err)
		assert.NotNil(t, db.indexStore)
		require.NoError(t, db.Close())
	})

	t.Run("error with invalid config", func(t *testing.T) {
		db, err := NewDatabase(context.Background(), config.NewConfig(config.WithRemoteStorage("", "/x")))
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("error with file as base folder", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0o644))

		db, err := NewDatabase(context.Background(), config.NewConfig(config.WithLocalStorage(filepath.Join(tmpFile, "data"))))
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDatabase_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	db, err := NewDatabase(context.Background(), config.NewConfig(config.WithMetrics(true)),
		WithBackend(local.New(memfs.New(), local.WithSeparator("/"))), WithRegisterer(reg))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.SaveCampaign(context.Background(), newCampaign("Clinic", "New roof"), nil))

	require.NotNil(t, db.Metrics())
	assert.Greater(t, testutil.ToFloat64(db.Metrics().OperationsTotal.WithLabelValues("put", "ok")), 0.0)
}

func TestDatabase_Users(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	u := &core.User{FirstName: "Ada", LastName: "Lovelace", PasswordHash: "x", Email: "ada@example.com"}
	require.NoError(t, db.SaveUser(ctx, u))
	require.NotEmpty(t, u.ID)

	loaded, err := db.LoadUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", loaded.FirstName)

	byEmail, err := db.UserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	u.Email = "ada@lovelace.org"
	require.NoError(t, db.SaveUser(ctx, u))
	_, err = db.UserByEmail(ctx, "ada@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, db.DeleteUser(ctx, u.ID))
	_, err = db.LoadUser(ctx, u.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = db.UserByEmail(ctx, "ada@lovelace.org")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDatabase_SaveCampaign(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	c := newCampaign("Village clinic", "A clinic roof")
	require.NoError(t, db.SaveCampaign(ctx, c, nil))
	created := c.Created

	loaded, err := db.LoadCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Village clinic", loaded.Title)

	found, err := db.Search(ctx, "roof")
	require.NoError(t, err)
	require.Len(t, found, 1)

	t.Run("update keeps created and drops old words", func(t *testing.T) {
		update := newCampaign("Village clinic", "Medical supplies")
		update.ID = c.ID
		update.Created = "19700101T000000"
		require.NoError(t, db.SaveCampaign(ctx, update, nil))
		assert.Equal(t, created, update.Created)

		found, err := db.Search(ctx, "roof")
		require.NoError(t, err)
		assert.Empty(t, found)

		found, err = db.Search(ctx, "medical")
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})

	t.Run("with image", func(t *testing.T) {
		img := []byte("\x89PNG fake")
		require.NoError(t, db.SaveCampaign(ctx, c, bytes.NewReader(img)))
		require.NotEmpty(t, c.ImagePath)
		assert.Equal(t, ImageExt, filepath.Ext(c.ImagePath))

		rc, err := db.LoadImage(ctx, c.ImagePath)
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, img, data)
	})
}

func TestDatabase_CampaignListings(t *testing.T) {
	db := newTestDatabase(t, config.WithMaxLatest(3))
	ctx := context.Background()

	for _, title := range []string{"One", "Two", "Three", "Four"} {
		require.NoError(t, db.SaveCampaign(ctx, newCampaign(title, "water"), nil))
	}

	mine, err := db.CampaignsByUser(ctx, "user0001")
	require.NoError(t, err)
	assert.Len(t, mine, 4)

	latest, err := db.LatestCampaigns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, latest, 3)

	latest, err = db.LatestCampaigns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, latest, 1)
}

func TestDatabase_DeleteCampaign(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	c := newCampaign("Library books", "Books for children")
	require.NoError(t, db.SaveCampaign(ctx, c, bytes.NewReader([]byte("img"))))

	require.NoError(t, db.DeleteCampaign(ctx, c.ID))

	_, err := db.LoadCampaign(ctx, c.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	found, err := db.Search(ctx, "books")
	require.NoError(t, err)
	assert.Empty(t, found)

	mine, err := db.CampaignsByUser(ctx, "user0001")
	require.NoError(t, err)
	assert.Empty(t, mine)

	assert.ErrorIs(t, db.DeleteCampaign(ctx, c.ID), storage.ErrNotFound)
}

func TestDatabase_VacuumAll(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	c := newCampaign("Library books", "Books for children")
	require.NoError(t, db.SaveCampaign(ctx, c, nil))
	u := &core.User{FirstName: "A", LastName: "B", PasswordHash: "x", Email: "a@b.co"}
	require.NoError(t, db.SaveUser(ctx, u))
	require.NoError(t, db.DeleteCampaign(ctx, c.ID))
	require.NoError(t, db.Objects().MakeDirectory(ctx, "admin/empty"))

	removed, err := db.VacuumAll(ctx)
	require.NoError(t, err)
	assert.Contains(t, removed, core.KindCampaign)
	assert.Contains(t, removed, "WordCampaignIndex")
	assert.NotContains(t, removed, "admin")

	assert.False(t, db.Objects().Exists(ctx, core.KindCampaign))
	assert.True(t, db.Objects().Exists(ctx, "admin/empty"))
	assert.True(t, db.Objects().Exists(ctx, "EmailUserIndex"))
}
