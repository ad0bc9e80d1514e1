// Package testing provides a conformance suite shared by every
// metadata.LayoutStore implementation.
package testing

import (
	"testing"

	"github.com/marmos91/dittopnfs/pkg/store/metadata"
)

// StoreTestSuite runs the layout store conformance tests.
type StoreTestSuite struct {
	// NewStore returns a fresh, empty store using the given default policy.
	// The suite closes every store it creates.
	NewStore func(t *testing.T, defaultIOLayout bool) metadata.LayoutStore
}

// Run executes all tests of the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("DefaultPolicy", suite.testDefaultPolicy)
	t.Run("ExplicitDecision", suite.testExplicitDecision)
	t.Run("ClearRestoresDefault", suite.testClearRestoresDefault)
	t.Run("InvalidHandle", suite.testInvalidHandle)
	t.Run("CancelledContext", suite.testCancelledContext)
	t.Run("Closed", suite.testClosed)
	t.Run("Concurrent", suite.testConcurrent)
}

func (suite *StoreTestSuite) store(t *testing.T, defaultIOLayout bool) metadata.LayoutStore {
	t.Helper()
	store := suite.NewStore(t, defaultIOLayout)
	t.Cleanup(func() { _ = store.Close() })
	return store
}
