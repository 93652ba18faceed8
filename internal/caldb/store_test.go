package caldb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/askiada/go-spectro-pipeline/internal/caldb"
)

type failingService struct {
	caldb.Service
	initErr error
	addErr  error
}

func (s *failingService) Init(context.Context) error { return s.initErr }

func (s *failingService) Add(context.Context, string) error { return s.addErr }

func TestStoreEnsureInitialized(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	core, logs := observer.New(zapcore.InfoLevel)
	db := openDatabase(t)
	store := caldb.NewStore(db, caldb.StoreLogger(zap.New(core)))

	created, err := store.EnsureInitialized(ctx)
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, store.Register(ctx, "/n/S1_bias.fits"))
	require.NoError(t, store.Register(ctx, "/n/S2_arc.fits"))

	before, err := store.List(ctx)
	require.NoError(t, err)

	created, err = store.EnsureInitialized(ctx)
	require.NoError(t, err)
	assert.False(t, created)

	after, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	assert.Equal(t, 1, logs.FilterMessage("calibration database already exists").Len())
	assert.Equal(t, 2, logs.FilterMessage("calibration").Len())
}

func TestStoreErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	errLocked := errors.New("database is locked")

	_, err := caldb.NewStore(&failingService{initErr: errLocked}).EnsureInitialized(ctx)
	assert.ErrorIs(t, err, errLocked)

	err = caldb.NewStore(&failingService{addErr: errLocked}).Register(ctx, "/n/S1_bias.fits")
	assert.ErrorIs(t, err, errLocked)

	store := caldb.NewStore(openDatabase(t))
	_, err = store.EnsureInitialized(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, store.Remove(ctx, "/n/never.fits"), caldb.ErrNotRegistered)
}
