package chainbase

// Session is a scoped handle representing one open undo level on a
// single Index. It must be movable but not copyable: pass it by pointer
// (StartUndoSession already returns *Session[T]), never dereference it
// into a new variable.
//
// If a Session's action method (Push/Squash/Undo) is never called and
// Close is, its Close reverts the level — the same "drop reverts unless
// actioned" contract as the source's C++ destructor. Go has no
// destructors, so the caller is responsible for `defer session.Close()`
// immediately after opening a session; forgetting to do so leaves the
// level open indefinitely (Database tracks this for diagnostics, see
// debug.go).
//
// Multiple calls to Push/Squash/Undo/Close are idempotent after the
// first: the first call wins, later calls are no-ops.
//
// Grounded on chainrocks.hpp's index::session.
type Session[T Record] struct {
	idx  *Index[T]
	rev  int64
	done bool
}

// Revision returns the revision number captured when this session's
// level was opened. For an inert session (opened with enabled=false) it
// returns -1.
func (s *Session[T]) Revision() int64 {
	if s.idx == nil {
		return -1
	}
	return s.rev
}

// Push detaches this session from its level: the level remains on the
// stack when the session is later closed or discarded.
func (s *Session[T]) Push() {
	s.done = true
}

// Squash collapses this session's level into the level beneath it, then
// detaches.
func (s *Session[T]) Squash() {
	if s.done {
		return
	}
	s.done = true
	if s.idx != nil {
		s.idx.Squash()
	}
}

// Undo reverts this session's level, then detaches.
func (s *Session[T]) Undo() {
	if s.done {
		return
	}
	s.done = true
	if s.idx != nil {
		s.idx.Undo()
	}
}

// Close is the defer-style finalizer the scoped-resource pattern calls
// for: if the session hasn't been actioned yet (Push/Squash/Undo), it
// undoes the level. Safe to call multiple times.
func (s *Session[T]) Close() {
	s.Undo()
}
