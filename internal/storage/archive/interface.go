// internal/storage/archive/interface.go

// Package archive stores analysis reports on local disk or S3.
package archive

import "context"

// Storage is a flat key/value object store. Paths use forward slashes.
// Read and Delete of a missing path return an error matching
// core.ErrNotFound.
type Storage interface {
	Write(ctx context.Context, path string, data []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	// List returns every path under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
}
