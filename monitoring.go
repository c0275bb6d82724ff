package chainbase

// Stats reports counters accumulated since the Database was opened.
// Grounded on edb's TableStats and the atomic counter fields on edb.DB
// (ReaderCount/WriterCount/ReadCount/WriteCount), repurposed to this
// package's own events.
type Stats struct {
	SessionsOpened uint64
	Undos          uint64
	Squashes       uint64
	Commits        uint64
	OpenSessions   int
}

// Stats returns a snapshot of the Database's activity counters.
func (db *Database) Stats() Stats {
	db.sessionsLock.Lock()
	open := len(db.openSessions)
	db.sessionsLock.Unlock()

	return Stats{
		SessionsOpened: db.sessionCount.Load(),
		Undos:          db.undoCount.Load(),
		Squashes:       db.squashCount.Load(),
		Commits:        db.commitCount.Load(),
		OpenSessions:   open,
	}
}
