package chainbase

// sessionHandle is the type-erased counterpart of *Session[T], used by
// Database to fan a composite session out across indexes of different
// record types. Session[T] satisfies this interface directly, since none
// of its methods mention T.
type sessionHandle interface {
	Push()
	Squash()
	Undo()
	Revision() int64
}

// level is the type-erased counterpart of *Index[T], used by Database to
// fan level operations out across indexes of different record types.
// Index[T] satisfies every method except StartUndoSession (whose return
// type mentions T) via the unexported startSession/setRevision adapters
// defined alongside their exported counterparts in index.go.
//
// Grounded on chainrocks.hpp's abstract_session/abstract_index dynamic
// dispatch seam; spec.md §9 notes "a closed variant works equally well",
// which this package-private interface is.
type level interface {
	startSession(enabled bool) sessionHandle
	Undo()
	Squash()
	Commit(revision int64)
	UndoAll()
	setRevision(r uint64) error
	setLogger(logf func(format string, args ...any), verbose bool)
	Revision() int64
	UndoStackRevisionRange() (begin, end int64)
}

// idCarrier exists only to let the compiler check that *Index[T]
// satisfies level for some concrete T.
type idCarrier struct{ id RecordID }

func (r idCarrier) RecordID() RecordID { return r.id }

var _ level = (*Index[idCarrier])(nil)
