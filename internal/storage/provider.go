// Package storage defines the vault file-system abstraction.
package storage

// Provider is the interface for vault file operations. All paths are
// relative to the vault root and use forward slashes.
type Provider interface {
	// List returns the relative paths of every .md file under dir,
	// sorted lexically.
	List(dir string) ([]string, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent
	// directories as needed.
	Write(path string, content []byte) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) (bool, error)
	// Copy duplicates the file at src to dst, creating parent
	// directories as needed.
	Copy(src, dst string) error
}
