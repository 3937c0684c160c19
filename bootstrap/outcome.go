package bootstrap

// Outcome is the terminal state of a bootstrap run.
type Outcome int

const (
	// NotApplicable: the application database is not a SQLite file.
	NotApplicable Outcome = iota
	// AlreadyPresent: the database file exists and overwriting was not forced.
	AlreadyPresent
	// Downloaded: the database was fetched from INITIAL_DB_URL.
	Downloaded
	// Copied: the database was copied from INITIAL_DB_PATH.
	Copied
	// MissingSource: INITIAL_DB_PATH names a file that does not exist.
	MissingSource
	// NoSourceConfigured: no database file and nothing to seed it from.
	NoSourceConfigured
)

func (o Outcome) String() string {
	switch o {
	case NotApplicable:
		return "not-applicable"
	case AlreadyPresent:
		return "already-present"
	case Downloaded:
		return "downloaded"
	case Copied:
		return "copied"
	case MissingSource:
		return "missing-source"
	case NoSourceConfigured:
		return "no-source-configured"
	}
	return "unknown"
}

// ExitCode is the process exit status for the outcome.
func (o Outcome) ExitCode() int {
	if o == MissingSource {
		return 1
	}
	return 0
}
