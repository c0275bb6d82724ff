package chainbase

// undoState is the changelog record for a single open level of a single
// Index — the minimum information required to revert that level to the
// state that existed just before it was opened.
//
// Grounded on chainrocks.hpp's undo_state<value_type>; the map/set algebra
// below (onModify/onRemove/onCreate, and the squash fold in index.go) is a
// direct translation of index::on_modify/on_remove/on_create and
// index::squash from that source.
type undoState[T Record] struct {
	// oldValues holds the pre-image of records that existed before this
	// level and were subsequently modified or removed at this level.
	// First write wins: once an id has an entry here, later modifications
	// of the same id within this level do not overwrite it.
	oldValues map[RecordID]T

	// removedValues holds the pre-image of records that existed before
	// this level and were removed at this level, captured at removal
	// time.
	removedValues map[RecordID]T

	// newIDs holds the ids of records created at this level (i.e. not
	// present before the level opened).
	newIDs map[RecordID]struct{}

	// oldNextID is the value of Index.nextID at the moment this level
	// opened.
	oldNextID RecordID

	// revision is the revision number assigned when this level opened.
	revision int64
}

func newUndoState[T Record](oldNextID RecordID, revision int64) *undoState[T] {
	return &undoState[T]{
		oldValues:     make(map[RecordID]T),
		removedValues: make(map[RecordID]T),
		newIDs:        make(map[RecordID]struct{}),
		oldNextID:     oldNextID,
		revision:      revision,
	}
}

// onModify records the pre-image of a record about to be modified, per
// spec.md §4.1's on_modify rule. Called before the mutator
// is applied to the live record.
func (st *undoState[T]) onModify(id RecordID, cur T) {
	if _, ok := st.newIDs[id]; ok {
		// Created within this level: "does not exist" is already the
		// correct post-undo state, recoverable from newIDs alone.
		return
	}
	if _, ok := st.oldValues[id]; ok {
		// First-write-wins: we already hold the level-entry pre-image.
		return
	}
	st.oldValues[id] = cur
}

// onRemove records the pre-image of a record about to be erased from the
// live collection, per spec.md §4.1's on_remove rule. Called before the
// record is deleted from Index.live.
func (st *undoState[T]) onRemove(id RecordID, cur T) {
	if _, ok := st.newIDs[id]; ok {
		delete(st.newIDs, id)
		return
	}
	if old, ok := st.oldValues[id]; ok {
		st.removedValues[id] = old
		delete(st.oldValues, id)
		return
	}
	if _, ok := st.removedValues[id]; ok {
		// Should not occur under invariant I1 (pairwise-disjoint key
		// sets); defensive no-op rather than a panic, matching the
		// source's plain "don't need id_type" comment at this spot.
		return
	}
	st.removedValues[id] = cur
}

// onCreate records that id was created within this level, per spec.md
// §4.1's on_create rule.
func (st *undoState[T]) onCreate(id RecordID) {
	st.newIDs[id] = struct{}{}
}
