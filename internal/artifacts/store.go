// Package artifacts stores generated report files.
package artifacts

import "io"

// Store persists report artifacts under relative slash-separated paths.
type Store interface {
	// Write stores data at path, creating parent directories, and returns
	// the number of bytes written.
	Write(path string, data []byte) (int64, error)

	// Exists reports whether an artifact is present at path.
	Exists(path string) (bool, error)

	// Open returns a reader over the artifact at path.
	Open(path string) (io.ReadCloser, error)
}
