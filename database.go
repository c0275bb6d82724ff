package chainbase

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// DatabaseMode selects whether a Database's adapter is opened read-only
// or read-write. Mirrors spec.md §6's database_mode.
type DatabaseMode int

const (
	ModeReadWrite DatabaseMode = iota
	ModeReadOnly
)

// Database is a coordinator owning an ordered list of Index handles plus
// a handle to an external ordered key/value store. Level operations
// (Undo/Squash/Commit/UndoAll/SetRevision) are fanned out to every index
// in order, so that all indexes progress through sessions in lockstep by
// revision number.
//
// Grounded on chainrocks.hpp's class rocksdb_database.
type Database struct {
	levels  []level
	adapter kvAdapter
	mode    DatabaseMode
	logf    func(format string, args ...any)
	verbose bool

	sessionCount atomic.Uint64
	commitCount  atomic.Uint64
	undoCount    atomic.Uint64
	squashCount  atomic.Uint64

	openSessions []*DatabaseSession
	sessionsLock sync.Mutex
}

func newDatabase(adapter kvAdapter, opt Options) *Database {
	return &Database{
		adapter: adapter,
		mode:    opt.Mode,
		logf:    opt.Logf,
		verbose: opt.Verbose,
	}
}

// IsReadOnly reports whether this database's adapter rejects writes.
func (db *Database) IsReadOnly() bool {
	return db.mode == ModeReadOnly
}

// Close closes the underlying adapter. A non-OK status from the adapter
// is reported but does not prevent teardown, per spec.md §7.
func (db *Database) Close() error {
	db.sessionsLock.Lock()
	dangling := len(db.openSessions)
	db.sessionsLock.Unlock()
	if dangling > 0 {
		db.log("chainbase: CLOSE: %d session(s) left dangling:\n%s", dangling, db.DescribeOpenSessions())
	}

	err := db.adapter.Close()
	if err != nil {
		db.log("chainbase: CLOSE: adapter.Close failed: %v", err)
	}
	return err
}

func (db *Database) log(format string, args ...any) {
	if db.logf != nil {
		db.logf(format, args...)
	}
}

func (db *Database) logVerbose(format string, args ...any) {
	if db.verbose && db.logf != nil {
		db.logf(format, args...)
	}
}

// AddIndex registers lvl with the Database. If the Database already has
// at least one index, lvl's undo-stack revision range must equal the
// shared range of the existing indexes. If lvl is freshly added with an
// empty stack (its own range collapses to a point, i.e. begin == end),
// the coordinator aligns it: SetRevision to the common begin, then
// repeatedly opens and pushes empty sessions until its revision matches
// end. If the ranges disagree and lvl is not freshly empty, AddIndex
// fails with *CorruptedStateError.
func (db *Database) AddIndex(lvl level) error {
	if len(db.levels) > 0 {
		wantBegin, wantEnd := db.levels[0].UndoStackRevisionRange()
		gotBegin, gotEnd := lvl.UndoStackRevisionRange()
		if gotBegin != wantBegin || gotEnd != wantEnd {
			if gotBegin != gotEnd {
				return &CorruptedStateError{Msg: fmt.Sprintf(
					"index has undo stack revision range [%d, %d] inconsistent with the database's range [%d, %d]",
					gotBegin, gotEnd, wantBegin, wantEnd)}
			}
			if err := lvl.setRevision(uint64(wantBegin)); err != nil {
				return err
			}
			for lvl.Revision() < wantEnd {
				lvl.startSession(true).Push()
			}
		}
	}
	lvl.setLogger(db.logf, db.verbose)
	db.levels = append(db.levels, lvl)
	return nil
}

// Revision reports the revision shared by every contained index, or -1
// if the database has no indexes.
func (db *Database) Revision() int64 {
	if len(db.levels) == 0 {
		return -1
	}
	return db.levels[0].Revision()
}

// SetRevision fans out to every contained index.
func (db *Database) SetRevision(r uint64) error {
	for _, lvl := range db.levels {
		if err := lvl.setRevision(r); err != nil {
			return err
		}
	}
	return nil
}

// UndoStackRevisionRange reports the range shared by every contained
// index, or (-1, -1) if the database has no indexes.
func (db *Database) UndoStackRevisionRange() (begin, end int64) {
	if len(db.levels) == 0 {
		return -1, -1
	}
	return db.levels[0].UndoStackRevisionRange()
}

// Undo fans out to every contained index.
func (db *Database) Undo() {
	for _, lvl := range db.levels {
		lvl.Undo()
	}
	db.undoCount.Add(1)
}

// Squash fans out to every contained index.
func (db *Database) Squash() {
	for _, lvl := range db.levels {
		lvl.Squash()
	}
	db.squashCount.Add(1)
}

// Commit fans out to every contained index.
func (db *Database) Commit(revision int64) {
	for _, lvl := range db.levels {
		lvl.Commit(revision)
	}
	db.commitCount.Add(1)
}

// UndoAll fans out to every contained index.
func (db *Database) UndoAll() {
	for _, lvl := range db.levels {
		lvl.UndoAll()
	}
}

// StartUndoSession returns a composite Session holding one child session
// per contained index. Push/Squash/Undo/Close on the composite fan out
// identically, and the composite then clears its child list so
// subsequent actions are no-ops.
func (db *Database) StartUndoSession(enabled bool) *DatabaseSession {
	children := make([]sessionHandle, 0, len(db.levels))
	rev := int64(-1)
	for _, lvl := range db.levels {
		sh := lvl.startSession(enabled)
		children = append(children, sh)
		rev = sh.Revision()
	}
	s := &DatabaseSession{
		db:        db,
		children:  children,
		rev:       rev,
		startTime: time.Now(),
	}
	if enabled && trackSessions {
		s.stack = debug.Stack()
		db.addSession(s)
	}
	db.sessionCount.Add(1)
	db.logVerbose("chainbase: SESSION.START rev=%d enabled=%v", rev, enabled)
	return s
}

// --- key/value adapter boundary (spec.md §4.4, §6) ---

// Get retrieves the opaque value stored under id, or nil if absent.
func (db *Database) Get(id RecordID) ([]byte, error) {
	v, err := db.adapter.Get(id)
	return v, wrapAdapterErr("get", err)
}

// Put stores value under id. Fails with *ReadOnlyViolationError if the
// database was opened read-only.
func (db *Database) Put(id RecordID, value []byte) error {
	if db.IsReadOnly() {
		return &ReadOnlyViolationError{}
	}
	return wrapAdapterErr("put", db.adapter.Put(id, value))
}

// Delete removes the value stored under id, if any. Fails with
// *ReadOnlyViolationError if the database was opened read-only.
func (db *Database) Delete(id RecordID) error {
	if db.IsReadOnly() {
		return &ReadOnlyViolationError{}
	}
	return wrapAdapterErr("delete", db.adapter.Delete(id))
}

// Merge applies the adapter's registered MergeOperator to the value
// stored under id (treating it as a zero-length existing value if
// absent) and value, storing the result. Fails with
// *ReadOnlyViolationError if the database was opened read-only.
func (db *Database) Merge(id RecordID, value []byte) error {
	if db.IsReadOnly() {
		return &ReadOnlyViolationError{}
	}
	return wrapAdapterErr("merge", db.adapter.Merge(id, value))
}

// DatabaseSession is the Database-level composite of per-index Sessions.
// See Session for the scoped-resource contract it follows.
type DatabaseSession struct {
	db       *Database
	children []sessionHandle
	rev      int64

	startTime time.Time
	stack     []byte
}

// Revision returns the revision number captured when this session was
// opened, or -1 for an inert session.
func (s *DatabaseSession) Revision() int64 {
	return s.rev
}

// Push detaches every child session, leaving their levels on their
// respective stacks.
func (s *DatabaseSession) Push() {
	for _, c := range s.children {
		c.Push()
	}
	if s.db != nil {
		s.db.logVerbose("chainbase: SESSION.PUSH rev=%d", s.rev)
	}
	s.clear()
}

// Squash collapses every child session's level into the one beneath it.
func (s *DatabaseSession) Squash() {
	if s.children != nil && s.db != nil {
		s.db.squashCount.Add(1)
	}
	for _, c := range s.children {
		c.Squash()
	}
	if s.db != nil {
		s.db.logVerbose("chainbase: SESSION.SQUASH rev=%d", s.rev)
	}
	s.clear()
}

// Undo reverts every child session's level.
func (s *DatabaseSession) Undo() {
	if s.children != nil && s.db != nil {
		s.db.undoCount.Add(1)
	}
	for _, c := range s.children {
		c.Undo()
	}
	if s.db != nil {
		s.db.logVerbose("chainbase: SESSION.UNDO rev=%d", s.rev)
	}
	s.clear()
}

// Close is the defer-style finalizer: if the session hasn't been
// actioned, it undoes every child's level.
func (s *DatabaseSession) Close() {
	s.Undo()
}

func (s *DatabaseSession) clear() {
	if s.children == nil {
		return
	}
	s.children = nil
	if s.db != nil {
		s.db.removeSession(s)
	}
}

const trackSessions = true

func (db *Database) addSession(s *DatabaseSession) {
	db.sessionsLock.Lock()
	defer db.sessionsLock.Unlock()
	db.openSessions = append(db.openSessions, s)
}

func (db *Database) removeSession(s *DatabaseSession) {
	db.sessionsLock.Lock()
	defer db.sessionsLock.Unlock()
	found := -1
	for i, o := range db.openSessions {
		if o == s {
			found = i
			break
		}
	}
	if found < 0 {
		return // already removed, or tracking was disabled when it opened
	}
	n := len(db.openSessions)
	db.openSessions[found] = db.openSessions[n-1]
	db.openSessions[n-1] = nil
	db.openSessions = db.openSessions[:n-1]
}
