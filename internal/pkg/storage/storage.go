package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrInvalidPath  = errors.New("invalid file path")
)

// FileStorage stores screenshot images and other binary objects by a
// slash-separated key.
type FileStorage interface {
	// Upload writes file under path and returns the stored key.
	Upload(ctx context.Context, file io.Reader, path string, contentType string) (string, error)

	// Download opens a stored key; a missing key yields ErrFileNotFound.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes path. Deleting a missing key is not an error.
	Delete(ctx context.Context, path string) error

}
