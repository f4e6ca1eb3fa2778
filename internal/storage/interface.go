package storage

import "context"

// Store is a key-value blob store holding the track library and session
// artifacts. Keys are slash-separated, e.g. "library/tracks/techno/abc123.mp3".
type Store interface {
	// List returns the keys under the given prefix, in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Get reads a whole object into memory.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes a whole object.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Download copies an object to a local file.
	Download(ctx context.Context, key, localPath string) error

	// Upload copies a local file to an object.
	Upload(ctx context.Context, localPath, key, contentType string) error

	// Exists reports whether an object is present.
	Exists(ctx context.Context, key string) (bool, error)
}
