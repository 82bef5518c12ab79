package port

type FileStore interface {
	// Exists reports whether anything is present at path, regardless of permissions.
	Exists(path string) bool
	// Readable reports whether path exists and can be opened for reading.
	Readable(path string) bool
	// Writable reports whether path exists and can be opened for writing.
	Writable(path string) bool
	// Size returns the size of the file at path in bytes.
	Size(path string) (int64, error)
	// Glob returns the files matching pattern in lexical order.
	Glob(pattern string) ([]string, error)
	// MkdirAll creates the directory path and any missing parents.
	MkdirAll(path string) error
	// Rename atomically moves src onto dst.
	Rename(src, dst string) error
	// Remove deletes the file at path.
	Remove(path string) error
	// RemoveQuietly deletes the file at path, logging instead of returning failures.
	RemoveQuietly(path string)
}
