package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var allowedExtensions = map[string]bool{
	".csv":  true,
	".json": true,
	".txt":  true,
	".log":  true,
	".gz":   true,
	".zip":  true,
}

// Store writes uploaded performance data files under a per-collector
// directory beneath the configured data root.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &Store{root: root}, nil
}

func AllowedExtension(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Save streams the file to disk and returns its path and size. The stored
// name is prefixed with a fresh uuid so repeated uploads never collide.
func (s *Store) Save(collectorID, filename string, r io.Reader) (string, int64, error) {
	dir := filepath.Join(s.root, "collectors", collectorID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, err
	}

	name := uuid.New().String() + "_" + filepath.Base(filename)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return "", 0, err
	}

	return path, size, nil
}

func (s *Store) Remove(path string) error {
	// Refuse to delete outside the data root
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	root, err := filepath.Abs(s.root)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(abs, root+string(os.PathSeparator)) {
		return fmt.Errorf("path outside data dir: %s", path)
	}
	return os.Remove(abs)
}
