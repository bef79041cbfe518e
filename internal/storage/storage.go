// Package storage provides the output sinks for sliced clips.
// It defines the Storage interface (port) and implementations for a local
// directory and an S3 bucket.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrInvalidName is returned when a clip name is not a plain file name.
var ErrInvalidName = errors.New("storage: invalid object name")

// Storage defines where encoded clips are written.
// Prepare must be called once before any concurrent Save.
type Storage interface {
	// Prepare makes sure the output location exists and is reachable.
	Prepare(ctx context.Context) error

	// Save stores data under name and returns its location
	// (a file path or an object URL).
	Save(ctx context.Context, name string, data io.Reader) (location string, err error)

	// Delete removes the named objects. It continues even if some fail,
	// returning the first error encountered. Missing objects are ignored.
	Delete(ctx context.Context, names []string) error
}
