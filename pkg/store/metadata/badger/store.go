package badger

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/dittopnfs/internal/logger"
	"github.com/marmos91/dittopnfs/pkg/store/metadata"
)

// BadgerLayoutStore implements metadata.LayoutStore on top of BadgerDB so
// routing decisions survive restarts.
//
// Thread Safety:
// BadgerDB transactions provide the isolation; the store keeps no other
// mutable state apart from the closed flag.
type BadgerLayoutStore struct {
	db              *badger.DB
	defaultIOLayout bool
	closed          atomic.Bool
}

// BadgerLayoutStoreConfig configures a BadgerLayoutStore.
type BadgerLayoutStoreConfig struct {
	// DBPath is the BadgerDB directory. Ignored when InMemory is set.
	DBPath string `mapstructure:"db_path"`

	// InMemory runs BadgerDB without touching disk (tests)
	InMemory bool `mapstructure:"in_memory"`

	// DefaultIOLayout is the answer for files without an explicit decision
	DefaultIOLayout bool `mapstructure:"default_io_layout"`

	// BlockCacheSizeMB and IndexCacheSizeMB tune BadgerDB caches (0 = badger defaults)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`
}

// NewBadgerLayoutStore opens (or creates) the BadgerDB database.
func NewBadgerLayoutStore(ctx context.Context, config BadgerLayoutStoreConfig) (*BadgerLayoutStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if config.DBPath == "" {
			return nil, fmt.Errorf("badger layout store: db_path is required")
		}
		opts = badger.DefaultOptions(config.DBPath)
	}

	opts = opts.WithLoggingLevel(badger.WARNING) // Reduce log noise
	opts = opts.WithCompression(options.None)    // one-byte values

	if config.BlockCacheSizeMB > 0 {
		opts = opts.WithBlockCacheSize(config.BlockCacheSizeMB << 20)
	}
	if config.IndexCacheSizeMB > 0 {
		opts = opts.WithIndexCacheSize(config.IndexCacheSizeMB << 20)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Info("Badger layout store opened: path=%s, in_memory=%v, default_io_layout=%v",
		config.DBPath, config.InMemory, config.DefaultIOLayout)

	return &BadgerLayoutStore{
		db:              db,
		defaultIOLayout: config.DefaultIOLayout,
	}, nil
}

// HasIOLayout implements metadata.LayoutStore.
func (s *BadgerLayoutStore) HasIOLayout(ctx context.Context, handle metadata.FileHandle) (bool, error) {
	if err := s.check(ctx, handle); err != nil {
		return false, err
	}

	enabled := s.defaultIOLayout
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyIOLayout(handle))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			enabled = decodeFlag(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return s.defaultIOLayout, nil
	}
	if err != nil {
		return false, ioError("read io layout", err)
	}
	return enabled, nil
}

// SetIOLayout implements metadata.LayoutStore.
func (s *BadgerLayoutStore) SetIOLayout(ctx context.Context, handle metadata.FileHandle, enabled bool) error {
	if err := s.check(ctx, handle); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyIOLayout(handle), encodeFlag(enabled))
	})
	if err != nil {
		return ioError("write io layout", err)
	}
	return nil
}

// ClearIOLayout implements metadata.LayoutStore.
func (s *BadgerLayoutStore) ClearIOLayout(ctx context.Context, handle metadata.FileHandle) error {
	if err := s.check(ctx, handle); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(keyIOLayout(handle))
	})
	if err != nil {
		return ioError("delete io layout", err)
	}
	return nil
}

// Healthcheck implements metadata.LayoutStore.
func (s *BadgerLayoutStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return errClosed
	}
	if s.db.IsClosed() {
		return &metadata.StoreError{Code: metadata.ErrIOError, Message: "badger database closed unexpectedly"}
	}
	return nil
}

// Close implements metadata.LayoutStore.
func (s *BadgerLayoutStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}
	return nil
}

func (s *BadgerLayoutStore) check(ctx context.Context, handle metadata.FileHandle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return errClosed
	}
	return metadata.ValidateHandle(handle)
}

func ioError(op string, err error) error {
	return &metadata.StoreError{Code: metadata.ErrIOError, Message: op, Err: err}
}

var errClosed = &metadata.StoreError{Code: metadata.ErrClosed, Message: "badger layout store is closed"}
