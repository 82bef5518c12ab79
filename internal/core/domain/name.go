package domain

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"unicode"
)

const OutputExtension = ".tif"

// ValidateName rejects identifiers that could resolve outside the input or output prefix.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}

	if strings.HasPrefix(name, "/") {
		return fmt.Errorf("%w: absolute path", ErrInvalidName)
	}

	if strings.ContainsRune(name, '\\') {
		return fmt.Errorf("%w: backslash", ErrInvalidName)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character", ErrInvalidName)
		}
	}

	for _, elem := range strings.Split(name, "/") {
		if elem == ".." {
			return fmt.Errorf("%w: parent directory reference", ErrInvalidName)
		}
	}

	// ./a.jpg and a//b.jpg alias other identifiers.
	if path.Clean(name) != name {
		return fmt.Errorf("%w: not in canonical form", ErrInvalidName)
	}

	return nil
}

// Paths derives filesystem locations for an image identifier.
type Paths struct {
	Input  string
	Output string
}

func (p Paths) Source(name string) string {
	return filepath.Join(p.Input, filepath.FromSlash(name))
}

func (p Paths) Artifact(name string) string {
	return filepath.Join(p.Output, filepath.FromSlash(name)+OutputExtension)
}

// Pattern is the glob matching suffixed variants of an artifact, e.g. foo.v2.tif for foo.
func (p Paths) Pattern(name string) string {
	return filepath.Join(p.Output, filepath.FromSlash(escapeGlob(name))+".*"+OutputExtension)
}

// Relative returns path relative to the output prefix, falling back to path itself.
func (p Paths) Relative(path string) string {
	rel, err := filepath.Rel(p.Output, path)
	if err != nil {
		return path
	}

	return filepath.ToSlash(rel)
}

func escapeGlob(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '*', '?', '[', ']':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}

	return path.Clean(b.String())
}
