package chainbase

import "sync"

// memAdapter is a transient kvAdapter backed by a plain Go map, guarded
// by a mutex for the same reason edb's memStorage is: it's meant for
// tests and for callers who want the undo engine without on-disk
// persistence, not for concurrent multi-writer use (spec.md §5 still
// assumes a single logical writer).
//
// Grounded on edb's storage_mem.go (memStorage/memTx/memBucket), narrowed
// to a flat RecordID-keyed map since this package's adapter boundary has
// no buckets.
type memAdapter struct {
	mu     sync.Mutex
	data   map[RecordID][]byte
	merge  MergeOperator
	closed bool
}

func newMemAdapter(opt Options) *memAdapter {
	return &memAdapter{
		data:  make(map[RecordID][]byte),
		merge: opt.MergeOperator,
	}
}

func (a *memAdapter) Get(id RecordID) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, ErrAdapterClosed
	}
	v := a.data[id]
	if v == nil {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (a *memAdapter) Put(id RecordID, value []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrAdapterClosed
	}
	a.data[id] = append([]byte(nil), value...)
	return nil
}

func (a *memAdapter) Delete(id RecordID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrAdapterClosed
	}
	delete(a.data, id)
	return nil
}

func (a *memAdapter) Merge(id RecordID, value []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrAdapterClosed
	}
	existing := a.data[id]
	merged := value
	if a.merge != nil {
		merged = a.merge(existing, value)
	}
	a.data[id] = append([]byte(nil), merged...)
	return nil
}

func (a *memAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.data = nil
	return nil
}
