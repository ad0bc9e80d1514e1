package device

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrReservedID is returned when trying to register the MDS device.
var ErrReservedID = errors.New("device id is reserved for metadata server I/O")

// Registry maps device ids to device addresses.
//
// Entries live for the lifetime of the registry: there is no eviction.
//
// Thread safety:
// Backed by sync.Map so that lookups never wait behind concurrent inserts of
// unrelated devices. All methods are safe for concurrent use.
type Registry struct {
	devices sync.Map // ID -> Address
	size    atomic.Int64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Put inserts or overwrites the address registered under id.
//
// Returns:
//   - replaced: true if an entry for id already existed and was overwritten
//   - error: ErrReservedID if id is the MDS device
func (r *Registry) Put(id ID, addr Address) (replaced bool, err error) {
	if id.IsMDS() {
		return false, ErrReservedID
	}

	_, loaded := r.devices.Swap(id, addr)
	if !loaded {
		r.size.Add(1)
	}
	return loaded, nil
}

// Get returns the address registered under id. The boolean is false when
// no entry exists, which is distinct from an entry with an empty body.
func (r *Registry) Get(id ID) (Address, bool) {
	v, ok := r.devices.Load(id)
	if !ok {
		return Address{}, false
	}
	return v.(Address), true
}

// ListIDs returns a point-in-time snapshot of the registered ids in no
// particular order. Entries added or replaced concurrently may or may not be
// included.
func (r *Registry) ListIDs() []ID {
	ids := make([]ID, 0, r.Len())
	r.devices.Range(func(key, _ any) bool {
		ids = append(ids, key.(ID))
		return true
	})
	return ids
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	return int(r.size.Load())
}
