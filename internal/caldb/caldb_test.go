package caldb_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-spectro-pipeline/internal/caldb"
)

func openDatabase(t *testing.T) *caldb.Database {
	t.Helper()

	db, err := caldb.Open(filepath.Join(t.TempDir(), "calibrations.db"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return db
}

func paths(records []caldb.Record) []string {
	got := make([]string, len(records))
	for i, rec := range records {
		got[i] = rec.Path
	}

	return got
}

func TestDatabaseInit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openDatabase(t)

	require.NoError(t, db.Init(ctx))
	require.NoError(t, db.Add(ctx, "/night/S001_bias.fits"))

	err := db.Init(ctx)
	assert.ErrorIs(t, err, caldb.ErrAlreadyInitialized)

	records, err := db.ListFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/night/S001_bias.fits"}, paths(records))
}

func TestDatabaseNotInitialized(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openDatabase(t)

	assert.ErrorIs(t, db.Add(ctx, "/a_bias.fits"), caldb.ErrNotInitialized)
	assert.ErrorIs(t, db.Remove(ctx, "/a_bias.fits"), caldb.ErrNotInitialized)

	_, err := db.ListFiles(ctx)
	assert.ErrorIs(t, err, caldb.ErrNotInitialized)
}

func TestDatabaseAddListRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openDatabase(t)
	require.NoError(t, db.Init(ctx))

	for _, path := range []string{"/n/S3_flat.fits", "/n/S1_bias.fits", "/n/bpm_gmos.fits", "/n/S1_bias.fits"} {
		require.NoError(t, db.Add(ctx, path))
	}

	records, err := db.ListFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/n/S1_bias.fits", "/n/S3_flat.fits", "/n/bpm_gmos.fits"}, paths(records))
	assert.Equal(t, caldb.KindBias, records[0].Kind)
	assert.Equal(t, caldb.KindFlat, records[1].Kind)
	assert.Equal(t, caldb.KindBPM, records[2].Kind)

	for _, rec := range records {
		assert.NotEmpty(t, rec.ID)
		assert.False(t, rec.RegisteredAt.IsZero())
	}

	require.NoError(t, db.Remove(ctx, "/n/S3_flat.fits"))
	assert.ErrorIs(t, db.Remove(ctx, "/n/S3_flat.fits"), caldb.ErrNotRegistered)

	records, err = db.ListFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/n/S1_bias.fits", "/n/bpm_gmos.fits"}, paths(records))
}

func TestDatabaseStoresAbsolutePaths(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openDatabase(t)
	require.NoError(t, db.Init(ctx))
	require.NoError(t, db.Add(ctx, "S1_arc.fits"))

	records, err := db.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	want, err := filepath.Abs("S1_arc.fits")
	require.NoError(t, err)
	assert.Equal(t, want, records[0].Path)
	assert.Equal(t, caldb.KindArc, records[0].Kind)
}

func TestDatabasePersists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "calibrations.db")

	db, err := caldb.Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Init(ctx))
	require.NoError(t, db.Add(ctx, "/n/S1_bias.fits"))
	require.NoError(t, db.Close())

	db, err = caldb.Open(path)
	require.NoError(t, err)

	defer db.Close()

	assert.Equal(t, path, db.Path())
	assert.ErrorIs(t, db.Init(ctx), caldb.ErrAlreadyInitialized)

	records, err := db.ListFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/n/S1_bias.fits"}, paths(records))
}

func TestKindFromPath(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		path string
		want string
	}{
		"bias":           {path: "/n/S20240101S0001_bias.fits", want: caldb.KindBias},
		"flat":           {path: "S20240101S0010_flat.fits", want: caldb.KindFlat},
		"arc":            {path: "S20240101S0020_arc.FITS", want: caldb.KindArc},
		"standard":       {path: "S20240101S0030_standard.fits", want: caldb.KindStandard},
		"bpm prefix":     {path: "bpm_20240101_gmos-s_Ham_22_full_12amp.fits", want: caldb.KindBPM},
		"bpm suffix":     {path: "S20240101_bpm.fits", want: caldb.KindBPM},
		"raw frame":      {path: "S20240101S0040.fits", want: caldb.KindUnknown},
		"bias elsewhere": {path: "bias_frames/S1.fits", want: caldb.KindUnknown},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, caldb.KindFromPath(tc.path))
		})
	}
}
