package chainbase

import (
	"math"
	"reflect"
)

// Index is an ordered collection of records keyed by a monotone id, plus
// a stack of undo levels. Mutating operations (Emplace/Modify/Remove)
// both update the live collection and, if a level is open, append to the
// top undo level. Level operations (StartUndoSession/Undo/Squash/Commit)
// manipulate the stack.
//
// An Index performs no internal locking: exactly one logical writer is
// assumed at any time (spec.md §5). Grounded on chainrocks.hpp's
// class index.
type Index[T Record] struct {
	live   map[RecordID]*T
	nextID RecordID

	revision int64
	levels   []*undoState[T]

	// uniqueKey, if set, derives an optional secondary uniqueness key for
	// a record. Emplace and Modify use it only to detect collisions; it
	// is not exposed as a query index (spec.md's non-goals exclude
	// secondary indexes / query planning as a feature).
	uniqueKey   func(T) (key string, ok bool)
	uniqueIndex map[string]RecordID

	name    string
	logf    func(format string, args ...any)
	verbose bool
}

// NewIndex returns an empty Index. uniqueKey may be nil if the record
// type has no secondary uniqueness constraint beyond its assigned id.
func NewIndex[T Record](uniqueKey func(T) (string, bool)) *Index[T] {
	idx := &Index[T]{
		live:      make(map[RecordID]*T),
		uniqueKey: uniqueKey,
		name:      reflect.TypeOf((*T)(nil)).Elem().Name(),
	}
	if uniqueKey != nil {
		idx.uniqueIndex = make(map[string]RecordID)
	}
	return idx
}

// setLogger wires db's diagnostic logger into idx, so that Emplace/Modify/
// Remove log at the same verbose level as the Database they were added to
// (spec.md Options.Verbose). Called by Database.AddIndex; a standalone
// Index not registered with a Database stays silent.
func (idx *Index[T]) setLogger(logf func(format string, args ...any), verbose bool) {
	idx.logf = logf
	idx.verbose = verbose
}

func (idx *Index[T]) logVerbose(format string, args ...any) {
	if idx.verbose && idx.logf != nil {
		idx.logf(format, args...)
	}
}

// logFatal reports a corruption condition regardless of Verbose: a fatal
// abort is worth logging even when routine operation logging is off.
func (idx *Index[T]) logFatal(format string, args ...any) {
	if idx.logf != nil {
		idx.logf(format, args...)
	}
}

// Revision returns the index's current revision number.
func (idx *Index[T]) Revision() int64 {
	return idx.revision
}

// Len returns the number of live records.
func (idx *Index[T]) Len() int {
	return len(idx.live)
}

func (idx *Index[T]) stuffToUndo() bool {
	return len(idx.levels) > 0
}

func (idx *Index[T]) top() *undoState[T] {
	return idx.levels[len(idx.levels)-1]
}

// --- mutating operations (spec.md §4.1) ---

// Emplace assigns a fresh id, invokes build to populate the payload (the
// builder sees the assigned id), and inserts the result into the live
// collection. It fails with *UniquenessViolationError if the built record's
// derived uniqueness key collides with an existing record.
func (idx *Index[T]) Emplace(build func(id RecordID) T) (*T, error) {
	id := idx.nextID
	rec := build(id)

	var key string
	var hasKey bool
	if idx.uniqueKey != nil {
		key, hasKey = idx.uniqueKey(rec)
		if hasKey {
			if _, exists := idx.uniqueIndex[key]; exists {
				return nil, &UniquenessViolationError{Key: key}
			}
		}
	}

	ptr := new(T)
	*ptr = rec
	idx.live[id] = ptr
	if hasKey {
		idx.uniqueIndex[key] = id
	}
	idx.nextID++
	idx.onCreate(id)
	idx.logVerbose("chainbase: EMPLACE %s/%d", idx.name, uint64(id))
	return ptr, nil
}

// Modify applies mutate to rec in place, first recording its pre-image
// for undo. A uniqueness violation induced by the mutation is fatal: it
// panics rather than returning an error, matching the source's
// "this must never propagate" semantics for corrupted state.
func (idx *Index[T]) Modify(rec *T, mutate func(*T)) {
	id := (*rec).RecordID()
	idx.onModify(id, *rec)

	var oldKey string
	var hadOldKey bool
	if idx.uniqueKey != nil {
		oldKey, hadOldKey = idx.uniqueKey(*rec)
	}

	mutate(rec)

	if idx.uniqueKey != nil {
		newKey, hasNewKey := idx.uniqueKey(*rec)
		if hasNewKey {
			if owner, exists := idx.uniqueIndex[newKey]; exists && owner != id {
				idx.logFatal("chainbase: MODIFY.FATAL %s/%d: uniqueness collision on key %q (owned by id %d)", idx.name, uint64(id), newKey, uint64(owner))
				abortCorruption("modify produced a uniqueness collision on key %q (owned by id %d, record id %d)", newKey, uint64(owner), uint64(id))
			}
			idx.uniqueIndex[newKey] = id
		}
		if hadOldKey && (!hasNewKey || oldKey != newKey) {
			delete(idx.uniqueIndex, oldKey)
		}
	}
	idx.logVerbose("chainbase: MODIFY %s/%d", idx.name, uint64(id))
}

// Remove erases rec from the live collection, first recording its
// pre-image for undo.
func (idx *Index[T]) Remove(rec *T) {
	id := (*rec).RecordID()
	idx.onRemove(id, *rec)
	if idx.uniqueKey != nil {
		if key, ok := idx.uniqueKey(*rec); ok {
			delete(idx.uniqueIndex, key)
		}
	}
	delete(idx.live, id)
	idx.logVerbose("chainbase: REMOVE %s/%d", idx.name, uint64(id))
}

// Find returns the record with the given id, or nil if absent. The
// returned pointer is borrowed from the live collection and becomes
// invalid after any mutation of this Index.
func (idx *Index[T]) Find(id RecordID) *T {
	return idx.live[id]
}

// Get returns the record with the given id, or *NotFoundError if absent.
func (idx *Index[T]) Get(id RecordID) (*T, error) {
	rec := idx.live[id]
	if rec == nil {
		return nil, &NotFoundError{ID: id}
	}
	return rec, nil
}

func (idx *Index[T]) onModify(id RecordID, cur T) {
	if !idx.stuffToUndo() {
		return
	}
	idx.top().onModify(id, cur)
}

func (idx *Index[T]) onRemove(id RecordID, cur T) {
	if !idx.stuffToUndo() {
		return
	}
	idx.top().onRemove(id, cur)
}

func (idx *Index[T]) onCreate(id RecordID) {
	if !idx.stuffToUndo() {
		return
	}
	idx.top().onCreate(id)
}

// --- stack operations (spec.md §4.2) ---

// StartUndoSession opens a new level if enabled, and returns a Session
// bound to this Index at the resulting revision. If enabled is false, the
// returned Session is inert: every method is a no-op.
func (idx *Index[T]) StartUndoSession(enabled bool) *Session[T] {
	if !enabled {
		return &Session[T]{done: true}
	}
	idx.revision++
	st := newUndoState[T](idx.nextID, idx.revision)
	idx.levels = append(idx.levels, st)
	return &Session[T]{idx: idx, rev: idx.revision}
}

func (idx *Index[T]) startSession(enabled bool) sessionHandle {
	return idx.StartUndoSession(enabled)
}

// Undo reverts the top level: erases records created at that level,
// restores next_id, restores modified records to their pre-images, and
// re-inserts removed records. It is a no-op if the stack is empty. A
// uniqueness violation while restoring or re-inserting records is fatal.
func (idx *Index[T]) Undo() {
	if !idx.stuffToUndo() {
		return
	}
	top := idx.top()

	for id := range top.newIDs {
		if rec, ok := idx.live[id]; ok {
			idx.forgetUniqueKey(*rec)
		}
		delete(idx.live, id)
	}
	idx.nextID = top.oldNextID

	// Release every modified record's current key before restoring any
	// pre-image, so records that exchanged keys within this level do not
	// collide with each other midway through the restore.
	for id := range top.oldValues {
		existing, ok := idx.live[id]
		if !ok {
			idx.logFatal("chainbase: UNDO.FATAL %s/%d: recorded old value but record is missing from the live collection", idx.name, uint64(id))
			abortCorruption("undo: id %d has a recorded old value but is missing from the live collection", uint64(id))
		}
		idx.forgetUniqueKey(*existing)
	}
	for id, val := range top.oldValues {
		*idx.live[id] = val
		idx.rememberUniqueKeyOrAbort(id, val)
	}

	for id, val := range top.removedValues {
		if _, exists := idx.live[id]; exists {
			idx.logFatal("chainbase: UNDO.FATAL %s/%d: removed at this level but currently live", idx.name, uint64(id))
			abortCorruption("undo: id %d is both removed-at-this-level and currently live", uint64(id))
		}
		ptr := new(T)
		*ptr = val
		idx.live[id] = ptr
		idx.rememberUniqueKeyOrAbort(id, val)
	}

	idx.levels = idx.levels[:len(idx.levels)-1]
	idx.revision--
}

func (idx *Index[T]) forgetUniqueKey(rec T) {
	if idx.uniqueKey == nil {
		return
	}
	if key, ok := idx.uniqueKey(rec); ok {
		delete(idx.uniqueIndex, key)
	}
}

func (idx *Index[T]) rememberUniqueKeyOrAbort(id RecordID, rec T) {
	if idx.uniqueKey == nil {
		return
	}
	key, ok := idx.uniqueKey(rec)
	if !ok {
		return
	}
	if owner, exists := idx.uniqueIndex[key]; exists && owner != id {
		idx.logFatal("chainbase: UNDO.FATAL %s/%d: restoring produced a uniqueness collision on key %q (owned by id %d)", idx.name, uint64(id), key, uint64(owner))
		abortCorruption("undo: restoring id %d produced a uniqueness collision on key %q (owned by id %d)", uint64(id), key, uint64(owner))
	}
	idx.uniqueIndex[key] = id
}

// Squash collapses the top level into the level beneath it. If the stack
// has at most one level, this is equivalent to discarding the top level.
// Otherwise it folds old_values, new_ids and removed_values per the table
// in spec.md §4.2.
func (idx *Index[T]) Squash() {
	if !idx.stuffToUndo() {
		return
	}
	if len(idx.levels) == 1 {
		idx.levels = idx.levels[:0]
		idx.revision--
		return
	}

	top := idx.levels[len(idx.levels)-1]
	prev := idx.levels[len(idx.levels)-2]

	for id, v := range top.oldValues {
		if _, ok := prev.newIDs[id]; ok {
			// new+upd -> new: drop.
			continue
		}
		if _, ok := prev.oldValues[id]; ok {
			// upd(was=X)+upd(was=Y) -> upd(was=X): drop, first-write-wins.
			continue
		}
		// del+upd is not reachable under invariant I1.
		prev.oldValues[id] = v
	}

	for id := range top.newIDs {
		prev.newIDs[id] = struct{}{}
	}

	for id, v := range top.removedValues {
		if _, ok := prev.newIDs[id]; ok {
			// new+del -> nop.
			delete(prev.newIDs, id)
			continue
		}
		if ov, ok := prev.oldValues[id]; ok {
			// upd(was=X)+del(was=Y) -> del(was=X).
			prev.removedValues[id] = ov
			delete(prev.oldValues, id)
			continue
		}
		// del+del is not reachable under invariant I1.
		prev.removedValues[id] = v
	}

	idx.levels = idx.levels[:len(idx.levels)-1]
	idx.revision--
}

// Commit irrevocably drops every level with revision <= revision, from
// the front of the stack. self.revision is left unchanged: it is a
// monotone clock, not a stack depth.
func (idx *Index[T]) Commit(revision int64) {
	n := 0
	for n < len(idx.levels) && idx.levels[n].revision <= revision {
		n++
	}
	idx.levels = idx.levels[n:]
}

// UndoAll repeatedly undoes levels until the stack is empty.
func (idx *Index[T]) UndoAll() {
	for idx.stuffToUndo() {
		idx.Undo()
	}
}

// SetRevision sets the revision counter directly. Only legal when the
// undo stack is empty; returns *InvalidStateError otherwise. Returns
// *OutOfRangeError if r exceeds the positive range of the signed revision
// counter.
func (idx *Index[T]) SetRevision(r uint64) error {
	if idx.stuffToUndo() {
		return &InvalidStateError{Msg: "cannot set revision while the undo stack is non-empty"}
	}
	if r > uint64(math.MaxInt64) {
		return &OutOfRangeError{Value: r}
	}
	idx.revision = int64(r)
	return nil
}

func (idx *Index[T]) setRevision(r uint64) error {
	return idx.SetRevision(r)
}

// UndoStackRevisionRange returns (begin, end): the revision that would be
// observed after UndoAll, and the current revision. If the stack is
// empty, both equal Revision().
func (idx *Index[T]) UndoStackRevisionRange() (begin, end int64) {
	if !idx.stuffToUndo() {
		return idx.revision, idx.revision
	}
	return idx.levels[0].revision - 1, idx.levels[len(idx.levels)-1].revision
}
