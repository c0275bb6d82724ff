package chainbase

import "sync"

// keyBytesPool holds buffers used to render a RecordID as its decimal
// ASCII key encoding (see adapter.go's encodeKey). 20 bytes comfortably
// fits the longest possible uint64 decimal representation.
var keyBytesPool = &sync.Pool{
	New: func() any {
		return make([]byte, 0, 20)
	},
}

func releaseKeyBytes(b []byte) {
	keyBytesPool.Put(b[:0]) //nolint:staticcheck // pool element, not escaping
}
