// Package adapter contains infrastructure adapters for the sunset CLI.
package adapter

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	gitignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/mod/modfile"

	m "sunset.dev/pkg/sunset/internal/model"
)

// SourceFSAdapter abstracts the filesystem operations the migration
// workflow relies on when scanning and rewriting user projects. It hides
// direct `os` access so the workflow logic can be tested without
// touching the disk.
type SourceFSAdapter interface {
	// Scan walks the given roots and returns every Go source file that
	// survives the .gitignore rules and the include/exclude patterns.
	// Paths come back absolute.
	Scan(ctx context.Context, roots []m.Path, include, exclude []string) ([]m.SourceFile, error)

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(path m.Path) ([]byte, error)

	// WriteFile writes content to a file with the given permissions.
	WriteFile(path m.Path, content []byte, perm os.FileMode) error

	// HashBytes returns a stable fingerprint for file content.
	HashBytes(content []byte) string

	// FindModuleRoot walks up from start to the enclosing go.mod and
	// returns the directory plus the declared module path.
	FindModuleRoot(start m.Path) (m.Path, string, error)
}

// LocalSourceFSAdapter is the concrete SourceFSAdapter backed by the
// local filesystem.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter ready to be
// wired into the workflow.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

var generatedMarker = regexp.MustCompile(`(?m)^// Code generated .* DO NOT EDIT\.$`)

// Scan implements SourceFSAdapter.
func (a *LocalSourceFSAdapter) Scan(ctx context.Context, roots []m.Path, include, exclude []string) ([]m.SourceFile, error) {
	includeGlobs, err := compileGlobs(include)
	if err != nil {
		return nil, fmt.Errorf("include patterns: %w", err)
	}
	excludeGlobs, err := compileGlobs(exclude)
	if err != nil {
		return nil, fmt.Errorf("exclude patterns: %w", err)
	}

	if len(roots) == 0 {
		roots = []m.Path{"."}
	}

	var files []m.SourceFile
	seen := make(map[string]bool)
	for _, root := range roots {
		rootDir := strings.TrimSuffix(string(root), "/...")
		if rootDir == "" {
			rootDir = "."
		}
		absRoot, err := filepath.Abs(rootDir)
		if err != nil {
			return nil, fmt.Errorf("resolving root %s: %w", root, err)
		}
		if _, err := os.Stat(absRoot); err != nil {
			return nil, fmt.Errorf("root path error: %w", err)
		}

		ignore := loadGitignore(absRoot)
		modRoot, modPath, err := a.FindModuleRoot(m.Path(absRoot))
		if err != nil {
			return nil, err
		}

		walkErr := filepath.WalkDir(absRoot, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			rel, relErr := filepath.Rel(absRoot, path)
			if relErr != nil {
				return relErr
			}
			rel = filepath.ToSlash(rel)

			if entry.IsDir() {
				if skipDir(entry.Name()) && path != absRoot {
					return filepath.SkipDir
				}
				if ignore != nil && rel != "." && ignore.MatchesPath(rel+"/") {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) != ".go" || seen[path] {
				return nil
			}
			if ignore != nil && ignore.MatchesPath(rel) {
				return nil
			}
			if !matchesAny(includeGlobs, rel, true) || matchesAny(excludeGlobs, rel, false) {
				return nil
			}

			content, readErr := os.ReadFile(path)
			if readErr != nil {
				return fmt.Errorf("reading %s: %w", path, readErr)
			}
			seen[path] = true
			files = append(files, m.SourceFile{
				Path:      m.Path(path),
				Kind:      fileKind(path),
				PkgPath:   pkgPath(modPath, string(modRoot), path),
				Generated: generatedMarker.Match(content),
				Hash:      a.HashBytes(content),
			})
			return nil
		})
		if walkErr != nil {
			return nil, walkErr
		}
	}
	return files, nil
}

// ReadFile implements SourceFSAdapter.
func (a *LocalSourceFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	return os.ReadFile(string(path))
}

// WriteFile implements SourceFSAdapter.
func (a *LocalSourceFSAdapter) WriteFile(path m.Path, content []byte, perm os.FileMode) error {
	return os.WriteFile(string(path), content, perm)
}

// HashBytes implements SourceFSAdapter.
func (a *LocalSourceFSAdapter) HashBytes(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// FindModuleRoot implements SourceFSAdapter. Files outside any module
// get an empty module path and the start directory as root.
func (a *LocalSourceFSAdapter) FindModuleRoot(start m.Path) (m.Path, string, error) {
	dir := string(start)
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		goModPath := filepath.Join(dir, "go.mod")
		if data, err := os.ReadFile(goModPath); err == nil {
			return m.Path(dir), modfile.ModulePath(data), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start, "", nil
		}
		dir = parent
	}
}

func fileKind(path string) m.FileKind {
	if strings.HasSuffix(path, "_test.go") {
		return m.KindTest
	}
	return m.KindSource
}

// pkgPath derives a file's import path from the enclosing module.
func pkgPath(modPath, modRoot, file string) string {
	rel, err := filepath.Rel(modRoot, filepath.Dir(file))
	if err != nil || rel == "." {
		return modPath
	}
	rel = filepath.ToSlash(rel)
	if modPath == "" {
		return rel
	}
	return modPath + "/" + rel
}

func skipDir(name string) bool {
	if name == "vendor" || name == "node_modules" {
		return true
	}
	return len(name) > 1 && (name[0] == '.' || name[0] == '_')
}

func loadGitignore(root string) *gitignore.GitIgnore {
	ign, err := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return ign
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// matchesAny reports whether any glob matches; empty defaults to the
// given value so an absent include list keeps everything.
func matchesAny(globs []glob.Glob, path string, empty bool) bool {
	if len(globs) == 0 {
		return empty
	}
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}
