package chainbase

// Options configures a Database at construction time. Shaped and named
// after edb.Options.
type Options struct {
	// Logf, if set, receives diagnostic log lines (open sessions left
	// dangling, adapter errors on Close, etc).
	Logf func(format string, args ...any)
	// Verbose enables extra logging of individual operations.
	Verbose bool
	// Mode selects read-only or read-write access to the adapter.
	Mode DatabaseMode
	// MmapSize overrides the bolt adapter's initial mmap size, in bytes.
	// Ignored by the in-memory adapter.
	MmapSize int
	// MergeOperator defines Database.Merge's semantics. If nil, Merge
	// behaves like Put (the "merged" value is just the incoming value).
	MergeOperator MergeOperator
}

// Open opens (creating if necessary) a Database backed by a bbolt file
// at path.
func Open(path string, opt Options) (*Database, error) {
	adapter, err := openBoltAdapter(path, opt.Mode, opt)
	if err != nil {
		return nil, err
	}
	return newDatabase(adapter, opt), nil
}

// OpenMem returns a Database backed by a transient in-memory map,
// intended for tests and for embedding the undo engine without on-disk
// persistence.
func OpenMem(opt Options) *Database {
	return newDatabase(newMemAdapter(opt), opt)
}
