package memory

import (
	"testing"

	"github.com/marmos91/dittopnfs/pkg/store/metadata"
	storetesting "github.com/marmos91/dittopnfs/pkg/store/metadata/testing"
)

func TestMemoryLayoutStore(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T, defaultIOLayout bool) metadata.LayoutStore {
			return NewMemoryLayoutStore(MemoryLayoutStoreConfig{DefaultIOLayout: defaultIOLayout})
		},
	}
	suite.Run(t)
}
