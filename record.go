package chainbase

// RecordID is the internal identifier assigned to a record at insertion
// time. It is immutable for the lifetime of the record and is not reused
// after the record is removed; undoing the level that created a record
// rolls the id counter back, so that id can be assigned again.
type RecordID uint64

// Record is the constraint an Index's payload type must satisfy: it must
// be able to report the id it was constructed with. T is otherwise an
// ordinary value type chosen by the caller (a struct with an embedded
// RecordID field, typically) — the core has no opinion on its shape or
// on how it is eventually serialized to bytes for storage.
type Record interface {
	RecordID() RecordID
}
