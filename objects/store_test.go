package objects

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/poiesic/strata/core"
	"github.com/poiesic/strata/lease"
	"github.com/poiesic/strata/storage"
	"github.com/poiesic/strata/storage/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	b := local.New(memfs.New(), local.WithSeparator("/"))
	s, err := New(context.Background(), b, "data", opts...)
	require.NoError(t, err)
	return s
}

func readString(t *testing.T, s *Store, p string) string {
	t.Helper()
	rc, err := s.Get(context.Background(), p)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func sampleCampaign(id string) *core.Campaign {
	return &core.Campaign{
		Meta:           core.Meta{ID: id},
		Title:          "Save the bees",
		Description:    "Hives for the neighbourhood",
		UserID:         "user0001",
		Goal:           1000,
		CategoryID:     "nature",
		CountryID:      44,
		CurrencyCode:   "GBP",
		CurrencySymbol: "£",
		CampaignTypeID: 1,
		Contributions:  []core.Contribution{{"amount": float64(5)}},
	}
}

func TestNew_CreatesRoot(t *testing.T) {
	s := newStore(t)
	isDir, err := s.Backend().IsDirectory(context.Background(), "data")
	require.NoError(t, err)
	assert.True(t, isDir)
	assert.Equal(t, "data", s.Root())
	assert.Equal(t, "/", s.Separator())
}

func TestFullPath(t *testing.T) {
	s := newStore(t)
	assert.Equal(t, "data/x/y", s.FullPath("x/y"))
	assert.Equal(t, "data/x/y", s.FullPath("data/x/y"))
	assert.Equal(t, "data", s.FullPath("data"))
	assert.Equal(t, "data/database/x", s.FullPath("database/x"))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	c := sampleCampaign("")
	require.NoError(t, s.Save(ctx, c))
	assert.Len(t, c.ID, 32)
	assert.NotEmpty(t, c.Created)
	assert.Equal(t, core.KindCampaign, c.Kind)

	p, err := core.RecordPath("/", core.KindCampaign, c.ID)
	require.NoError(t, err)

	stored := readString(t, s, p)
	assert.Contains(t, stored, "\n    \"kind\": \"Campaign\"")

	rec, err := s.Load(ctx, p)
	require.NoError(t, err)
	got, ok := rec.(*core.Campaign)
	require.True(t, ok, "loaded %T", rec)
	assert.Equal(t, c, got)

	byID, err := s.LoadByID(ctx, core.KindCampaign, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, byID)
}

func TestSave_PreservesCreated(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	c := sampleCampaign("camp001")
	c.Created = "20200101T000000"
	require.NoError(t, s.Save(ctx, c))

	c.Title = "Save more bees"
	require.NoError(t, s.Save(ctx, c))

	var back core.Campaign
	require.NoError(t, s.LoadAs(ctx, "Campaign/01/001/camp001/data.json", &back))
	assert.Equal(t, "20200101T000000", back.Created)
	assert.Equal(t, "Save more bees", back.Title)
	assert.Equal(t, "camp001", back.ID)
}

func TestSave_OverwritesKind(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	u := &core.User{Meta: core.Meta{ID: "user001", Kind: "Campaign"}, FirstName: "A", LastName: "B", PasswordHash: "h", Email: "a@b.c"}
	require.NoError(t, s.Save(ctx, u))

	assert.Contains(t, readString(t, s, "User/01/001/user001/data.json"), `"kind": "User"`)

	rec, err := s.LoadByID(ctx, core.KindUser, "user001")
	require.NoError(t, err)
	assert.IsType(t, &core.User{}, rec)
}

func TestSave_ShortID(t *testing.T) {
	s := newStore(t)
	err := s.Save(context.Background(), &core.User{Meta: core.Meta{ID: "ab"}})
	assert.ErrorIs(t, err, core.ErrIDTooShort)
}

func TestLoadByID_InvalidID(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.LoadByID(ctx, core.KindUser, "")
	assert.ErrorIs(t, err, storage.ErrLoad)
	assert.ErrorIs(t, err, core.ErrEmptyID)

	_, err = s.LoadByID(ctx, core.KindUser, "ab")
	assert.ErrorIs(t, err, core.ErrIDTooShort)
}

func TestLoad_Errors(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx, "User/zz/zzz/zzz/data.json")
	assert.ErrorIs(t, err, storage.ErrLoad)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Put(ctx, "bad/data.json", strings.NewReader("not json")))
	_, err = s.Load(ctx, "bad/data.json")
	assert.ErrorIs(t, err, storage.ErrLoad)

	require.NoError(t, s.Put(ctx, "partial/data.json", strings.NewReader(`{"kind":"User","first_name":"A"}`)))
	_, err = s.Load(ctx, "partial/data.json")
	assert.ErrorIs(t, err, storage.ErrLoad)
	assert.ErrorIs(t, err, core.ErrMissingField)
}

func TestLoad_Legacy(t *testing.T) {
	user := `{"id":"u00001","created":"20190101T000000","modified":"20190102T000000",
		"first_name":"Ada","last_name":"L","password_hash":"x","email":"ada@example.com"}`
	campaign, err := json.Marshal(map[string]any{
		"id": "c00001", "title": "t", "description": "d", "user_id": "u00001", "goal": 10,
		"category_id": "c", "country_id": 1, "currency_code": "EUR", "currency_symbol": "€",
		"campaign_type_id": 2,
	})
	require.NoError(t, err)
	tagged := `{"model_name":"Campaign","id":"c00002","title":"t","description":"d","user_id":"u","goal":1,
		"category_id":"c","country_id":1,"currency_code":"EUR","currency_symbol":"€","campaign_type_id":2}`

	t.Run("disabled", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, "legacy/data.json", strings.NewReader(user)))

		_, err := s.Load(ctx, "legacy/data.json")
		assert.ErrorIs(t, err, storage.ErrLoad)
		assert.ErrorIs(t, err, core.ErrUnknownKind)
	})

	t.Run("enabled", func(t *testing.T) {
		s := newStore(t, WithLegacyLoad(true))
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, "u/data.json", strings.NewReader(user)))
		require.NoError(t, s.Put(ctx, "c/data.json", strings.NewReader(string(campaign))))
		require.NoError(t, s.Put(ctx, "t/data.json", strings.NewReader(tagged)))

		rec, err := s.Load(ctx, "u/data.json")
		require.NoError(t, err)
		u, ok := rec.(*core.User)
		require.True(t, ok, "got %T", rec)
		assert.Equal(t, "20190101T000000", u.Created)
		assert.Equal(t, "20190102T000000", u.Modified)
		assert.Equal(t, core.KindUser, u.Kind)

		rec, err = s.Load(ctx, "c/data.json")
		require.NoError(t, err)
		assert.IsType(t, &core.Campaign{}, rec)

		rec, err = s.Load(ctx, "t/data.json")
		require.NoError(t, err)
		assert.IsType(t, &core.Campaign{}, rec)
	})

	t.Run("nothing matches", func(t *testing.T) {
		s := newStore(t, WithLegacyLoad(true))
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, "x/data.json", strings.NewReader(`{"id":"abc"}`)))
		_, err := s.Load(ctx, "x/data.json")
		assert.ErrorIs(t, err, storage.ErrLoad)
	})
}

func TestLoadAs_KindMismatch(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sampleCampaign("camp002")))

	var u core.User
	err := s.LoadAs(ctx, "Campaign/02/002/camp002/data.json", &u)
	assert.ErrorIs(t, err, storage.ErrLoad)
	assert.Contains(t, err.Error(), "kind mismatch")
}

func TestPut_WithLock(t *testing.T) {
	s := newStore(t, WithLockOptions(lease.WithPollInterval(time.Millisecond)))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "locked/file.txt", strings.NewReader("v1"), WithLock(), WithTTL(time.Minute)))
	assert.Equal(t, "v1", readString(t, s, "locked/file.txt"))
	assert.False(t, s.Exists(ctx, "locked/file.txt.lock"), "marker released")
}

func TestWithLock(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	err := s.WithLock(ctx, "latest", func(ctx context.Context) error {
		assert.True(t, s.Exists(ctx, "latest.lock"))
		return nil
	})
	require.NoError(t, err)
	assert.False(t, s.Exists(ctx, "latest.lock"))
}

func TestListRecords(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleCampaign("a00111")))
	require.NoError(t, s.Save(ctx, sampleCampaign("b00111")))

	names, err := s.List(ctx, "Campaign/11/111")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a00111", "b00111"}, names)

	recs, err := s.ListRecords(ctx, "Campaign/11/111", core.KindCampaign)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	tagged, err := s.ListRecords(ctx, "Campaign/11/111", "")
	require.NoError(t, err)
	require.Len(t, tagged, 2)
	assert.IsType(t, &core.Campaign{}, tagged[0])

	_, err = s.ListRecords(ctx, "Campaign/11/111", core.KindUser)
	assert.ErrorIs(t, err, storage.ErrLoad)

	_, err = s.List(ctx, "Campaign/99")
	assert.ErrorIs(t, err, storage.ErrListPath)
}

func TestDirectoryKeyValueMap(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.MakeDirectory(ctx, "kv/alpha/one"))
	require.NoError(t, s.MakeDirectory(ctx, "kv/beta/two"))
	require.NoError(t, s.MakeDirectory(ctx, "kv/gamma"))

	m, err := s.DirectoryKeyValueMap(ctx, "kv")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alpha": "one", "beta": "two"}, m)
}

type failingExists struct {
	storage.Backend
}

func (failingExists) Exists(context.Context, string) (bool, error) {
	return false, errors.New("transport down")
}

func TestExists_SwallowsErrors(t *testing.T) {
	b := local.New(memfs.New(), local.WithSeparator("/"))
	s, err := New(context.Background(), failingExists{b}, "data")
	require.NoError(t, err)
	assert.False(t, s.Exists(context.Background(), "anything"))
}

func TestMoveRemove(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "m/src.txt", strings.NewReader("moved")))
	require.NoError(t, s.Move(ctx, "m/src.txt", "n/deep/dst.txt"))
	assert.Equal(t, "moved", readString(t, s, "n/deep/dst.txt"))
	assert.False(t, s.Exists(ctx, "m/src.txt"))

	require.NoError(t, s.Remove(ctx, "n", true))
	assert.False(t, s.Exists(ctx, "n"))
	require.NoError(t, s.Remove(ctx, "n", true))
}

func TestVacuum(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.MakeDirectory(ctx, "A/B"))
	require.NoError(t, s.Put(ctx, "A/C/file.txt", strings.NewReader("x")))

	gone, err := s.Vacuum(ctx, "A")
	require.NoError(t, err)
	assert.False(t, gone)
	assert.False(t, s.Exists(ctx, "A/B"))
	assert.True(t, s.Exists(ctx, "A/C/file.txt"))
}
