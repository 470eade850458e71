package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned when deleting a key that does not exist.
var ErrNotFound = errors.New("object not found")

// Storage is the blob store holding product image files.
type Storage interface {
	// Upload stores a file and returns its key and public URL.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Delete removes a file by its key.
	Delete(ctx context.Context, key string) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// UploadInput holds the parameters for uploading a file.
type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
}

// UploadResult holds the result of a successful upload.
type UploadResult struct {
	Key string
	URL string
}

// ImageKey builds the object key of a product image. The extension of the
// original file name is kept, lower-cased.
func ImageKey(productID, objectID, fileName string) string {
	return "products/" + productID + "/" + objectID + strings.ToLower(path.Ext(fileName))
}
