// Package storage provides object storage backends for snapshot archival.
package storage

import (
	"context"
	"errors"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
	ErrDeleteFailed   = errors.New("delete failed")
)

// ObjectStorage abstracts the archive destination for directory snapshots.
// Implementations cover the local filesystem and S3-compatible stores.
// Snapshots are written once and never modified, so the surface is a plain
// put/get/list without conditional operations.
type ObjectStorage interface {
	// Upload copies a local file to object storage.
	Upload(ctx context.Context, localPath, objectPath string) error

	// Download copies an object to the local filesystem.
	// Returns ErrObjectNotFound when the object does not exist.
	Download(ctx context.Context, objectPath, localPath string) error

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, objectPath string) error

	// Exists reports whether an object is present.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// ListObjects returns all object paths under the given prefix.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}
