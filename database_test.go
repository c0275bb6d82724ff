package chainbase

import (
	"fmt"
	"strings"
	"testing"
)

type gadget struct {
	id  RecordID
	tag string
}

func (g gadget) RecordID() RecordID { return g.id }

func newMemDatabase(t *testing.T) *Database {
	t.Helper()
	db := OpenMem(Options{})
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDatabaseAddIndexAligns(t *testing.T) {
	db := newMemDatabase(t)

	idxA := NewIndex[widget](byName)
	if err := db.AddIndex(idxA); err != nil {
		t.Fatalf("AddIndex(first index): %v", err)
	}

	for i := 0; i < 3; i++ {
		s := db.StartUndoSession(true)
		s.Push()
	}
	if db.Revision() != 3 {
		t.Fatalf("Revision() = %d, want 3", db.Revision())
	}

	idxB := NewIndex[gadget](nil)
	if err := db.AddIndex(idxB); err != nil {
		t.Fatalf("AddIndex(second, freshly-empty index): %v", err)
	}
	if idxB.Revision() != 3 {
		t.Fatalf("aligned index revision = %d, want 3", idxB.Revision())
	}

	beginA, endA := idxA.UndoStackRevisionRange()
	beginB, endB := idxB.UndoStackRevisionRange()
	if beginA != beginB || endA != endB {
		t.Fatalf("revision ranges diverged: A=[%d,%d] B=[%d,%d]", beginA, endA, beginB, endB)
	}
}

func TestDatabaseAddIndexRejectsInconsistentRange(t *testing.T) {
	db := newMemDatabase(t)

	idxA := NewIndex[widget](byName)
	if err := db.AddIndex(idxA); err != nil {
		t.Fatalf("AddIndex(first index): %v", err)
	}
	s := db.StartUndoSession(true)
	s.Push()

	idxB := NewIndex[gadget](nil)
	// Give idxB a non-empty, mismatched undo stack of its own, so it can't
	// be auto-aligned.
	bs := idxB.StartUndoSession(true)
	idxB.Emplace(func(id RecordID) gadget { return gadget{id: id, tag: "x"} })
	bs.Push()
	idxB.StartUndoSession(true).Push()

	err := db.AddIndex(idxB)
	if _, ok := err.(*CorruptedStateError); !ok {
		t.Fatalf("AddIndex(mismatched index): got %v, want *CorruptedStateError", err)
	}
}

func TestDatabaseCompositeSessionFansOut(t *testing.T) {
	db := newMemDatabase(t)
	idxA := NewIndex[widget](byName)
	idxB := NewIndex[gadget](nil)
	if err := db.AddIndex(idxA); err != nil {
		t.Fatalf("AddIndex(A): %v", err)
	}
	if err := db.AddIndex(idxB); err != nil {
		t.Fatalf("AddIndex(B): %v", err)
	}

	s := db.StartUndoSession(true)
	recA, err := idxA.Emplace(func(id RecordID) widget { return widget{id: id, name: "a"} })
	if err != nil {
		t.Fatalf("Emplace(A): %v", err)
	}
	_, err = idxB.Emplace(func(id RecordID) gadget { return gadget{id: id, tag: "b"} })
	if err != nil {
		t.Fatalf("Emplace(B): %v", err)
	}
	s.Undo()

	if idxA.Find(recA.id) != nil {
		t.Fatalf("index A record survived composite undo")
	}
	if idxB.Len() != 0 {
		t.Fatalf("index B length = %d, want 0 after composite undo", idxB.Len())
	}
}

func TestDatabaseCommitDiscardsOldLevels(t *testing.T) {
	db := newMemDatabase(t)
	idx := NewIndex[widget](byName)
	if err := db.AddIndex(idx); err != nil {
		t.Fatalf("AddIndex: %v", err)
	}

	s1 := db.StartUndoSession(true)
	rev1 := s1.Revision()
	s1.Push()

	s2 := db.StartUndoSession(true)
	s2.Push()

	db.Commit(rev1)
	begin, _ := db.UndoStackRevisionRange()
	if begin != rev1 {
		t.Fatalf("UndoStackRevisionRange begin = %d, want %d", begin, rev1)
	}
}

func TestDatabasePutGetDeleteRoundtrip(t *testing.T) {
	db := newMemDatabase(t)
	id := RecordID(7)

	if v, err := db.Get(id); err != nil || v != nil {
		t.Fatalf("Get(missing) = %v, %v, want nil, nil", v, err)
	}

	if err := db.Put(id, []byte("hello")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, err := db.Get(id)
	if err != nil || string(v) != "hello" {
		t.Fatalf("Get = %q, %v, want %q, nil", v, err, "hello")
	}

	if err := db.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if v, err := db.Get(id); err != nil || v != nil {
		t.Fatalf("Get(after delete) = %v, %v, want nil, nil", v, err)
	}
}

func TestDatabaseReadOnlyRejectsWrites(t *testing.T) {
	db := OpenMem(Options{Mode: ModeReadOnly})
	defer db.Close()

	err := db.Put(RecordID(1), []byte("x"))
	if _, ok := err.(*ReadOnlyViolationError); !ok {
		t.Fatalf("Put on read-only db: got %v, want *ReadOnlyViolationError", err)
	}
	err = db.Delete(RecordID(1))
	if _, ok := err.(*ReadOnlyViolationError); !ok {
		t.Fatalf("Delete on read-only db: got %v, want *ReadOnlyViolationError", err)
	}
	err = db.Merge(RecordID(1), []byte("x"))
	if _, ok := err.(*ReadOnlyViolationError); !ok {
		t.Fatalf("Merge on read-only db: got %v, want *ReadOnlyViolationError", err)
	}
}

func TestDatabaseMergeAppliesOperator(t *testing.T) {
	concat := func(existing, value []byte) []byte {
		return append(append([]byte(nil), existing...), value...)
	}
	db := OpenMem(Options{MergeOperator: concat})
	defer db.Close()

	id := RecordID(1)
	if err := db.Merge(id, []byte("a")); err != nil {
		t.Fatalf("Merge(1): %v", err)
	}
	if err := db.Merge(id, []byte("b")); err != nil {
		t.Fatalf("Merge(2): %v", err)
	}
	v, err := db.Get(id)
	if err != nil || string(v) != "ab" {
		t.Fatalf("Get after two merges = %q, %v, want %q, nil", v, err, "ab")
	}
}

func TestDatabaseDescribeOpenSessions(t *testing.T) {
	db := newMemDatabase(t)
	idx := NewIndex[widget](byName)
	if err := db.AddIndex(idx); err != nil {
		t.Fatalf("AddIndex: %v", err)
	}

	if got := db.DescribeOpenSessions(); got != "(no open sessions)" {
		t.Fatalf("DescribeOpenSessions() with none open = %q", got)
	}

	s := db.StartUndoSession(true)
	defer s.Close()

	got := db.DescribeOpenSessions()
	if got == "(no open sessions)" {
		t.Fatalf("DescribeOpenSessions() did not report the open session")
	}
}

func TestDatabaseStats(t *testing.T) {
	db := newMemDatabase(t)
	idx := NewIndex[widget](byName)
	if err := db.AddIndex(idx); err != nil {
		t.Fatalf("AddIndex: %v", err)
	}

	s := db.StartUndoSession(true)
	s.Undo()
	db.Commit(db.Revision())
	db.Squash()

	stats := db.Stats()
	if stats.SessionsOpened != 1 {
		t.Fatalf("SessionsOpened = %d, want 1", stats.SessionsOpened)
	}
	if stats.Undos != 1 {
		t.Fatalf("Undos = %d, want 1", stats.Undos)
	}
	if stats.Commits != 1 {
		t.Fatalf("Commits = %d, want 1", stats.Commits)
	}
	if stats.Squashes != 1 {
		t.Fatalf("Squashes = %d, want 1", stats.Squashes)
	}
	if stats.OpenSessions != 0 {
		t.Fatalf("OpenSessions = %d, want 0", stats.OpenSessions)
	}
}

func TestVerboseLoggingFiresOnMutatingOpsAndSessionLifecycle(t *testing.T) {
	var lines []string
	logf := func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	db := OpenMem(Options{Logf: logf, Verbose: true})
	defer db.Close()

	idx := NewIndex[widget](byName)
	if err := db.AddIndex(idx); err != nil {
		t.Fatalf("AddIndex: %v", err)
	}

	emplaceWidget(t, idx, "a", 1)
	if !containsSubstring(lines, "EMPLACE") {
		t.Fatalf("Emplace did not log under Verbose: %v", lines)
	}

	s := db.StartUndoSession(true)
	if !containsSubstring(lines, "SESSION.START") {
		t.Fatalf("StartUndoSession did not log under Verbose: %v", lines)
	}
	s.Push()
	if !containsSubstring(lines, "SESSION.PUSH") {
		t.Fatalf("Session.Push did not log under Verbose: %v", lines)
	}
}

func TestLogfFiresOnCloseWithDanglingSession(t *testing.T) {
	var lines []string
	logf := func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	db := OpenMem(Options{Logf: logf})
	idx := NewIndex[widget](byName)
	if err := db.AddIndex(idx); err != nil {
		t.Fatalf("AddIndex: %v", err)
	}

	db.StartUndoSession(true) // left open on purpose

	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !containsSubstring(lines, "dangling") {
		t.Fatalf("Close with a dangling session did not log, even without Verbose: %v", lines)
	}
}

func containsSubstring(lines []string, substr string) bool {
	for _, l := range lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}
