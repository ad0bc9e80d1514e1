package memory

import (
	"context"
	"sync"

	"github.com/marmos91/dittopnfs/pkg/store/metadata"
)

// MemoryLayoutStore implements metadata.LayoutStore with an in-memory map.
//
// Suitable for tests and for deployments where routing decisions are pushed
// by an external controller after each restart.
//
// Thread Safety:
// Reads take the shared lock, writes the exclusive one.
type MemoryLayoutStore struct {
	mu sync.RWMutex

	// layouts holds explicit decisions keyed by string(handle)
	layouts map[string]bool

	// defaultIOLayout applies to files without an explicit decision
	defaultIOLayout bool

	closed bool
}

// MemoryLayoutStoreConfig configures a MemoryLayoutStore.
type MemoryLayoutStoreConfig struct {
	// DefaultIOLayout is the answer for files without an explicit decision
	DefaultIOLayout bool `mapstructure:"default_io_layout"`
}

// NewMemoryLayoutStore creates an empty in-memory layout store.
func NewMemoryLayoutStore(config MemoryLayoutStoreConfig) *MemoryLayoutStore {
	return &MemoryLayoutStore{
		layouts:         make(map[string]bool),
		defaultIOLayout: config.DefaultIOLayout,
	}
}

// HasIOLayout implements metadata.LayoutStore.
func (s *MemoryLayoutStore) HasIOLayout(ctx context.Context, handle metadata.FileHandle) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := metadata.ValidateHandle(handle); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, errClosed
	}
	if enabled, ok := s.layouts[string(handle)]; ok {
		return enabled, nil
	}
	return s.defaultIOLayout, nil
}

// SetIOLayout implements metadata.LayoutStore.
func (s *MemoryLayoutStore) SetIOLayout(ctx context.Context, handle metadata.FileHandle, enabled bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := metadata.ValidateHandle(handle); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errClosed
	}
	s.layouts[string(handle)] = enabled
	return nil
}

// ClearIOLayout implements metadata.LayoutStore.
func (s *MemoryLayoutStore) ClearIOLayout(ctx context.Context, handle metadata.FileHandle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := metadata.ValidateHandle(handle); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errClosed
	}
	delete(s.layouts, string(handle))
	return nil
}

// Healthcheck implements metadata.LayoutStore.
func (s *MemoryLayoutStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errClosed
	}
	return nil
}

// Close implements metadata.LayoutStore.
func (s *MemoryLayoutStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.layouts = nil
	return nil
}

var errClosed = &metadata.StoreError{Code: metadata.ErrClosed, Message: "memory layout store is closed"}
