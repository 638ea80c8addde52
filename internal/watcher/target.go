package watcher

import (
	"fmt"
	"path/filepath"
)

// Target is the single document being observed. Its parent directory is
// watched rather than the file itself, so editors that save by writing a
// temporary file and renaming it over the original are still observed.
type Target struct {
	// Path is the absolute path of the document.
	Path string
	// Dir is the directory containing Path.
	Dir string
	// Name is the base name used to match events inside Dir.
	Name string
}

// NewTarget resolves path to an absolute Target.
func NewTarget(path string) (Target, error) {
	if path == "" {
		return Target{}, fmt.Errorf("empty document path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Target{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	return Target{
		Path: abs,
		Dir:  filepath.Dir(abs),
		Name: filepath.Base(abs),
	}, nil
}
