package exportcodec

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/filex"
)

// Store keeps encoded envelopes under a name.
type Store interface {
	// Save writes data and returns where it ended up.
	Save(ctx context.Context, name string, data []byte) (string, error)
	Load(ctx context.Context, name string) ([]byte, error)
}

// FileStore keeps envelopes as files. Relative names resolve under Dir;
// absolute names are used as given.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: export name is empty", common.ErrValidation)
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	return filepath.Join(s.Dir, name), nil
}

func (s *FileStore) Save(_ context.Context, name string, data []byte) (string, error) {
	p, err := s.path(name)
	if err != nil {
		return "", err
	}
	dir, err := filex.EnsureDir(filepath.Dir(p))
	if err != nil {
		return "", err
	}
	p = filepath.Join(dir, filepath.Base(p))
	if err := filex.WriteFileAtomic(p, data); err != nil {
		return "", err
	}
	return p, nil
}

func (s *FileStore) Load(_ context.Context, name string) ([]byte, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", p, common.ErrNotFound)
	}
	return data, err
}
