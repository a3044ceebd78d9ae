// Package upload persists submitted binaries and resolves draft placeholders
// into stable references.
package upload

import (
	"context"

	"github.com/rs/zerolog"
)

// BlobStore writes uploaded binaries under server-chosen names and returns
// a stable, client-resolvable reference for each.
type BlobStore interface {
	Save(ctx context.Context, name string, data []byte) (ref string, err error)

	// Remove undoes a Save during all-or-nothing rollback. Best effort.
	Remove(ctx context.Context, name string) error
}

var uploadLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	uploadLogger = l
}
