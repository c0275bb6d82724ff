package chainbase

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DescribeOpenSessions reports every undo session currently open on db,
// sorted oldest-first, with the stack trace captured at StartUndoSession
// time. Intended for diagnosing a caller that forgot to Close a session.
//
// Grounded on edb's DescribeOpenTxns (db.go), which reports open
// transactions the same way.
func (db *Database) DescribeOpenSessions() string {
	db.sessionsLock.Lock()
	sessions := append([]*DatabaseSession(nil), db.openSessions...)
	db.sessionsLock.Unlock()

	if len(sessions) == 0 {
		return "(no open sessions)"
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].startTime.Before(sessions[j].startTime)
	})

	var buf strings.Builder
	now := time.Now()
	for i, s := range sessions {
		fmt.Fprintf(&buf, "%d. session at revision %d, open for %s\n", i+1, s.rev, now.Sub(s.startTime).Round(time.Millisecond))
		if len(s.stack) > 0 {
			buf.WriteString(indentLines(string(s.stack)))
		}
	}
	return buf.String()
}

func indentLines(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	var buf strings.Builder
	for _, l := range lines {
		buf.WriteString("    ")
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	return buf.String()
}
