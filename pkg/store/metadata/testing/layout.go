package testing

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/marmos91/dittopnfs/pkg/store/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *StoreTestSuite) testDefaultPolicy(test *testing.T) {
	for _, def := range []bool{true, false} {
		test.Run(fmt.Sprintf("default=%v", def), func(t *testing.T) {
			store := suite.store(t, def)

			has, err := store.HasIOLayout(context.Background(), metadata.FileHandle("unknown"))
			require.NoError(t, err)
			assert.Equal(t, def, has)
		})
	}
}

func (suite *StoreTestSuite) testExplicitDecision(t *testing.T) {
	ctx := context.Background()
	store := suite.store(t, true)

	mdsOnly := metadata.FileHandle("/export:/.pnfs-control")
	require.NoError(t, store.SetIOLayout(ctx, mdsOnly, false))

	has, err := store.HasIOLayout(ctx, mdsOnly)
	require.NoError(t, err)
	assert.False(t, has)

	// other files keep the default
	has, err = store.HasIOLayout(ctx, metadata.FileHandle("/export:/data.bin"))
	require.NoError(t, err)
	assert.True(t, has)

	// decisions can be flipped
	require.NoError(t, store.SetIOLayout(ctx, mdsOnly, true))
	has, err = store.HasIOLayout(ctx, mdsOnly)
	require.NoError(t, err)
	assert.True(t, has)
}

func (suite *StoreTestSuite) testClearRestoresDefault(t *testing.T) {
	ctx := context.Background()
	store := suite.store(t, false)
	handle := metadata.FileHandle{0x00, 0x01, 0xff}

	require.NoError(t, store.SetIOLayout(ctx, handle, true))
	require.NoError(t, store.ClearIOLayout(ctx, handle))

	has, err := store.HasIOLayout(ctx, handle)
	require.NoError(t, err)
	assert.False(t, has)

	// clearing an absent entry is not an error
	require.NoError(t, store.ClearIOLayout(ctx, handle))
}

func (suite *StoreTestSuite) testInvalidHandle(t *testing.T) {
	ctx := context.Background()
	store := suite.store(t, true)

	_, err := store.HasIOLayout(ctx, nil)
	assert.True(t, metadata.IsStoreError(err, metadata.ErrInvalidHandle))

	err = store.SetIOLayout(ctx, make(metadata.FileHandle, metadata.MaxHandleSize+1), true)
	assert.True(t, metadata.IsStoreError(err, metadata.ErrInvalidHandle))
}

func (suite *StoreTestSuite) testCancelledContext(t *testing.T) {
	store := suite.store(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.HasIOLayout(ctx, metadata.FileHandle("f"))
	assert.ErrorIs(t, err, context.Canceled)
}

func (suite *StoreTestSuite) testClosed(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t, true)
	require.NoError(t, store.Healthcheck(ctx))
	require.NoError(t, store.Close())

	_, err := store.HasIOLayout(ctx, metadata.FileHandle("f"))
	assert.True(t, metadata.IsStoreError(err, metadata.ErrClosed))
	assert.Error(t, store.Healthcheck(ctx))
}

func (suite *StoreTestSuite) testConcurrent(t *testing.T) {
	ctx := context.Background()
	store := suite.store(t, true)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				handle := metadata.FileHandle(fmt.Sprintf("w%d-f%d", w, i))
				assert.NoError(t, store.SetIOLayout(ctx, handle, i%2 == 0))
				has, err := store.HasIOLayout(ctx, handle)
				assert.NoError(t, err)
				assert.Equal(t, i%2 == 0, has)
			}
		}(w)
	}
	wg.Wait()
}
