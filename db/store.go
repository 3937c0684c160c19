package db

import (
	"context"
	"errors"
)

var ErrIntegrityCheckFailed = errors.New("database integrity check failed")

// Store is the narrow view of the database the bootstrap and health commands need.
type Store interface {
	Ping(ctx context.Context) error
	IntegrityCheck(ctx context.Context) error
	Close() error
}
