package kvslite

// Options contains configuration for opening a database.
//
// The logger is not an option; it is passed to db.Open alongside Options.
type Options struct {
	// SyncOnWrite fsyncs the log after every appended record. When false,
	// appends are left to the OS page cache and the most recent writes may
	// be lost on power failure, but never corrupted.
	SyncOnWrite bool
}

// DefaultOptions returns the options used by db.OpenDefault.
func DefaultOptions() Options {
	return Options{SyncOnWrite: true}
}
