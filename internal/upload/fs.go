package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/campusboard/bulletin/internal/config"
)

type FSBlobStore struct { // implements BlobStore
	dir string
}

func NewFSBlobStore(dir string) (*FSBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating uploads dir: %w", err)
	}
	return &FSBlobStore{dir: dir}, nil
}

func (s *FSBlobStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	// Names are server-generated, but never trust them as paths.
	name = filepath.Base(name)

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("error writing upload %s: %w", name, err)
	}

	uploadLogger.Debug().Str("name", name).Int("bytes", len(data)).Msg("Upload stored")

	return config.UploadsUrlPath + name, nil
}

func (s *FSBlobStore) Remove(ctx context.Context, name string) error {
	return os.Remove(filepath.Join(s.dir, filepath.Base(name)))
}

// Dir returns the backing directory, used to mount the public file server.
func (s *FSBlobStore) Dir() string {
	return s.dir
}
