package kvslite

// Storage defaults
const (
	WalFileName = "wal.log"
)

// Log file defaults
const (
	DefaultLogFileName   = "kvslite.log"
	DefaultLogMaxSize    = 100
	DefaultLogMaxBackups = 3
	DefaultLogLevel      = "info"
)

// Config defaults
const (
	ConfigFileName = "kvslite.json"
	ConfigVersion  = 1
)

// Application directory defaults, relative to the user's home.
const (
	DefaultAppDir = ".kvslite"
	DefaultLogDir = "logs"
)
