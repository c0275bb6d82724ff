package chainbase

import (
	"errors"
	"strconv"
)

// kvAdapter is the external ordered key/value store boundary Database
// wraps (spec.md §4.4, §6). Two implementations exist in this package:
// boltAdapter (adapter_bolt.go, backed by go.etcd.io/bbolt) and
// memAdapter (adapter_mem.go, a transient in-memory map used by tests
// and by callers who don't need persistence).
type kvAdapter interface {
	Get(id RecordID) ([]byte, error)
	Put(id RecordID, value []byte) error
	Delete(id RecordID) error
	Merge(id RecordID, value []byte) error
	Close() error
}

// ErrAdapterClosed is returned by adapter operations invoked after Close.
var ErrAdapterClosed = errors.New("chainbase: adapter closed")

// MergeOperator defines the semantics of Database.Merge: given the
// existing value under a key (nil if absent) and the value passed to
// Merge, it returns the value to store. Neither bbolt nor a plain map has
// a native merge primitive, so both adapters implement Merge as an
// explicit read-modify-write guarded by the adapter's own write lock,
// calling the registered operator.
type MergeOperator func(existing, value []byte) []byte

// encodeKey renders id as its decimal ASCII representation, per spec.md
// §6's "key is the decimal ASCII of the 64-bit id". The returned slice is
// borrowed from keyBytesPool; callers that need to retain it must copy.
func encodeKey(id RecordID) []byte {
	buf := keyBytesPool.Get().([]byte)
	return strconv.AppendUint(buf, uint64(id), 10)
}

