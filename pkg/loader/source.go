package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Source supplies .proto file contents keyed by import path
type Source interface {
	// Name identifies the source in logs and errors
	Name() string
	// Snapshot returns the current contents of every .proto file
	Snapshot(ctx context.Context) (map[string]string, error)
}

// MapSource is an in-memory Source
type MapSource map[string]string

func (m MapSource) Name() string {
	return "memory"
}

func (m MapSource) Snapshot(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(m))
	for path, content := range m {
		out[path] = content
	}
	return out, nil
}

// FileSystemSource reads .proto files from one or more root directories.
// Import paths are relative to the root that holds the file; when two roots
// hold the same path the earlier root wins.
type FileSystemSource struct {
	roots []string
}

// NewFileSystemSource creates a source over the given root directories
func NewFileSystemSource(roots ...string) (*FileSystemSource, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("no schema roots configured")
	}

	cleaned := make([]string, 0, len(roots))
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat schema root: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("schema root %q is not a directory", root)
		}
		cleaned = append(cleaned, filepath.Clean(root))
	}
	return &FileSystemSource{roots: cleaned}, nil
}

// Roots returns the configured root directories
func (s *FileSystemSource) Roots() []string {
	return append([]string(nil), s.roots...)
}

func (s *FileSystemSource) Name() string {
	return "filesystem:" + strings.Join(s.roots, ",")
}

func (s *FileSystemSource) Snapshot(ctx context.Context) (map[string]string, error) {
	files := make(map[string]string)
	for _, root := range s.roots {
		root := root
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() || !IsProtoFile(path) {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			importPath := filepath.ToSlash(rel)
			if _, ok := files[importPath]; ok {
				return nil
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			files[importPath] = string(data)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}
	return files, nil
}

// IsProtoFile reports whether path names a .proto file
func IsProtoFile(path string) bool {
	return strings.HasSuffix(path, ".proto")
}
