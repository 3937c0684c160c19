package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

var _ Store = (*SQLStore)(nil)

type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Ping verifies the underlying database connection is healthy.
func (s *SQLStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sql store is not initialized")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// IntegrityCheck runs PRAGMA integrity_check against a SQLite database. A file that is
// not a SQLite database fails here rather than when the application first queries it.
func (s *SQLStore) IntegrityCheck(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sql store is not initialized")
	}
	if name := s.db.Name(); name != "sqlite" {
		return fmt.Errorf("integrity check is not supported for %s", name)
	}

	rows, err := s.db.WithContext(ctx).Raw("PRAGMA integrity_check").Rows()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIntegrityCheckFailed, err)
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return fmt.Errorf("%w: %v", ErrIntegrityCheckFailed, err)
		}
		results = append(results, line)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrIntegrityCheckFailed, err)
	}
	if len(results) != 1 || results[0] != "ok" {
		return fmt.Errorf("%w: %s", ErrIntegrityCheckFailed, strings.Join(results, "; "))
	}
	return nil
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}
