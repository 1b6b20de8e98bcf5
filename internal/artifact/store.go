// Package artifact reads source artifacts and persists reviewed ones on disk.
package artifact

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jonathan/code-reviewer/internal/types"
)

// DefaultPrefix is prepended to an artifact name to derive its output name.
// Downstream tooling expects FIXED_* files; do not change it casually.
const DefaultPrefix = "FIXED_"

// FileStore manages artifact IO rooted at a directory.
type FileStore struct {
	root   string
	prefix string
	mode   fs.FileMode
}

// StoreOption customizes a FileStore during construction.
type StoreOption func(*FileStore)

// WithPrefix overrides the derived-name prefix.
func WithPrefix(prefix string) StoreOption {
	return func(s *FileStore) {
		s.prefix = prefix
	}
}

// WithFileMode overrides the permissions used for written files.
func WithFileMode(mode fs.FileMode) StoreOption {
	return func(s *FileStore) {
		s.mode = mode
	}
}

// NewFileStore builds a store rooted at root ("" means the working directory).
func NewFileStore(root string, opts ...StoreOption) *FileStore {
	store := &FileStore{
		root:   root,
		prefix: DefaultPrefix,
		mode:   0o644,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// DeriveName returns the output name for an artifact name. It is a pure
// function of name: re-deriving the same name always yields the same result.
func (s *FileStore) DeriveName(name string) string {
	return DeriveName(s.prefix, name)
}

// DeriveName applies prefix to name.
func DeriveName(prefix, name string) string {
	return prefix + name
}

// Path resolves an artifact name against the store root.
func (s *FileStore) Path(name string) string {
	if s.root == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.root, name)
}

// Exists reports whether name resolves to a regular file. It never fails.
func (s *FileStore) Exists(name string) bool {
	if name == "" {
		return false
	}
	info, err := os.Stat(s.Path(name))
	return err == nil && !info.IsDir()
}

// Read loads the artifact body.
func (s *FileStore) Read(name string) (types.Artifact, error) {
	path := s.Path(name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.Artifact{}, &NotFoundError{Name: name}
		}
		return types.Artifact{}, &IOError{Op: "stat", Name: name, Cause: err}
	}
	if info.IsDir() {
		return types.Artifact{}, &NotFoundError{Name: name}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return types.Artifact{}, &IOError{Op: "read", Name: name, Cause: err}
	}
	return types.Artifact{Name: name, Body: string(data)}, nil
}

// Write stores text under name, replacing any existing content, and returns
// the path written.
func (s *FileStore) Write(name, text string) (string, error) {
	path := s.Path(name)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", &IOError{Op: "write", Name: name, Cause: err}
		}
	}
	if err := os.WriteFile(path, []byte(text), s.mode); err != nil {
		return "", &IOError{Op: "write", Name: name, Cause: err}
	}
	return path, nil
}
