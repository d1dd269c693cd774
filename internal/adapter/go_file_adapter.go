package adapter

import (
	"fmt"
	"os"

	m "sunset.dev/pkg/sunset/internal/model"
	"sunset.dev/pkg/sunset/internal/srctree"
)

// GoFileAdapter encapsulates parsing a Go source file into the
// generation-stamped tree the rewrite stages operate on, so the domain
// layer never touches the filesystem or go/parser directly.
type GoFileAdapter interface {
	// Load reads the file from disk and parses it into a fresh tree at
	// generation zero.
	Load(path m.Path) (*srctree.Tree, error)

	// Parse builds a tree from source bytes already in memory.
	Parse(path m.Path, src []byte) (*srctree.Tree, error)
}

// LocalGoFileAdapter provides a concrete GoFileAdapter backed by
// go/parser via the srctree package.
type LocalGoFileAdapter struct{}

// NewLocalGoFileAdapter constructs a LocalGoFileAdapter.
func NewLocalGoFileAdapter() *LocalGoFileAdapter {
	return &LocalGoFileAdapter{}
}

// Load reads and parses the file at path.
func (a *LocalGoFileAdapter) Load(path m.Path) (*srctree.Tree, error) {
	src, err := os.ReadFile(string(path))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return a.Parse(path, src)
}

// Parse builds a tree for the provided path/source pair.
func (a *LocalGoFileAdapter) Parse(path m.Path, src []byte) (*srctree.Tree, error) {
	return srctree.Load(path, src)
}
