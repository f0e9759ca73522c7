// Package archive tracks the pre-materialized encrypted bundles available
// in archived delivery mode. Each record maps a canonical bucket key to the
// object filename and the transport-encoded encryption metadata captured
// when the bundle was written.
package archive

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("archive record not found")
	ErrExists   = errors.New("archive record already exists")
)

// Record describes one archived encrypted bundle. EncryptedKey and IV are
// base64-encoded at materialization time and served verbatim in headers.
type Record struct {
	RequestedTime string
	Filename      string
	EncryptedKey  string
	IV            string
	CreatedAt     time.Time
}

type Repository interface {
	FindByBucket(ctx context.Context, bucketKey string) (*Record, error)
	Create(ctx context.Context, rec *Record) error
	Close()
}
