package db

import "strings"

const (
	// DefaultDatabaseURL is used when neither DATABASE_URL nor RENDER_DATABASE_URL is set.
	DefaultDatabaseURL = "sqlite:///./unintend.db"

	// DefaultPostgresDriver is the driver qualifier appended to bare postgresql:// URLs.
	DefaultPostgresDriver = "pgx"

	legacyPostgresScheme = "postgres://"
	postgresScheme       = "postgresql://"
	sqliteScheme         = "sqlite:"
	sqliteFilePrefix     = "sqlite:///"
)

// NormalizeDatabaseURL rewrites a raw connection string into its canonical form.
//
// Hosting providers hand out postgres://... which is rewritten to postgresql://, and a
// postgresql:// URL without an explicit driver gets the default one. Everything else
// passes through untouched; validation is left to the driver.
func NormalizeDatabaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, legacyPostgresScheme) {
		raw = postgresScheme + strings.TrimPrefix(raw, legacyPostgresScheme)
	}

	if strings.HasPrefix(raw, postgresScheme) {
		raw = "postgresql+" + DefaultPostgresDriver + "://" + strings.TrimPrefix(raw, postgresScheme)
	}
	return raw
}

// ResolveDatabaseURL picks the first non-empty of the given candidates, falls back to
// DefaultDatabaseURL and returns the normalized result.
func ResolveDatabaseURL(candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return NormalizeDatabaseURL(c)
		}
	}
	return NormalizeDatabaseURL(DefaultDatabaseURL)
}

// SQLitePathFromURL extracts the file path from a sqlite:/// URL.
// sqlite:///./unintend.db yields ./unintend.db and sqlite:////var/data/unintend.db
// yields /var/data/unintend.db. ok is false for any other scheme or an empty path.
func SQLitePathFromURL(databaseURL string) (path string, ok bool) {
	databaseURL = strings.TrimSpace(databaseURL)
	if !strings.HasPrefix(databaseURL, sqliteScheme) {
		return "", false
	}
	_, rest, found := strings.Cut(databaseURL, sqliteFilePrefix)
	if !found || rest == "" {
		return "", false
	}
	return rest, true
}

// IsSQLiteURL reports whether databaseURL uses the sqlite scheme.
func IsSQLiteURL(databaseURL string) bool {
	return strings.HasPrefix(strings.TrimSpace(databaseURL), sqliteScheme)
}

// postgresDSN strips the driver qualifier from a postgresql+driver:// URL so that it
// can be handed to pgx, which only understands postgres:// and postgresql://.
func postgresDSN(databaseURL string) (string, bool) {
	scheme, rest, found := strings.Cut(databaseURL, "://")
	if !found {
		return "", false
	}
	base, _, _ := strings.Cut(scheme, "+")
	if base != "postgresql" && base != "postgres" {
		return "", false
	}
	return "postgresql://" + rest, true
}
