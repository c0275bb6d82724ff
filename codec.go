package chainbase

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeRecord renders rec as msgpack, for callers storing an Index's
// payload type in a Database's underlying key/value store via Put/Merge.
// The Database itself only ever sees opaque bytes (spec.md §4.4); the
// codec boundary is the caller's, not Index's, exactly as chainrocks.hpp
// leaves value encoding to whatever sits above class index.
//
// Grounded on edb's encoding.go, narrowed from its reflect-driven,
// multi-format (MsgPack/JSON) row codec down to a single format since
// this package has no schema layer choosing between them.
func EncodeRecord[T any](rec T) []byte {
	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)

	var buf bytes.Buffer
	enc.ResetDict(&buf, nil)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(rec); err != nil {
		panic(fmt.Errorf("chainbase: failed to encode %T: %w", rec, err))
	}
	return buf.Bytes()
}

// DecodeRecord decodes data previously produced by EncodeRecord into a T.
func DecodeRecord[T any](data []byte) (T, error) {
	var rec T
	dec := msgpack.GetDecoder()
	defer msgpack.PutDecoder(dec)

	r := bytes.NewReader(data)
	dec.ResetDict(r, nil)
	if err := dec.Decode(&rec); err != nil {
		var zero T
		return zero, &CorruptedStateError{Msg: fmt.Sprintf("failed to decode %T: %v", rec, err)}
	}
	return rec, nil
}
