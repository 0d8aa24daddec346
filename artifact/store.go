// Package artifact stores the files the trainer produces and the predictor
// service loads: the model, the label encoder and the feature names.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"trackrec/config"
)

// ErrNotFound is returned by Get when no artifact has the name.
var ErrNotFound = errors.New("artifact not found")

// Store reads and writes named artifacts.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	// Location describes where name lives, for logs.
	Location(name string) string
}

// DirStore keeps artifacts as files in one directory.
type DirStore struct {
	Dir string
}

// NewDirStore stores artifacts as files in dir. An empty dir means the
// working directory.
func NewDirStore(dir string) *DirStore {
	if dir == "" {
		dir = "."
	}
	return &DirStore{Dir: dir}
}

func (s *DirStore) Get(_ context.Context, name string) ([]byte, error) {
	payload, err := os.ReadFile(s.Location(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Location(name))
	}
	return payload, err
}

// Put writes through a temporary file so readers never see a partial artifact.
func (s *DirStore) Put(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.Dir, "."+name+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.Location(name))
}

func (s *DirStore) Location(name string) string {
	return filepath.Join(s.Dir, name)
}

// FromConfig returns an S3Store when a bucket is configured, a DirStore otherwise.
func FromConfig(cfg config.ArtifactsConfig) (Store, error) {
	if cfg.S3.Bucket != "" {
		return NewS3Store(cfg.S3)
	}
	return NewDirStore(cfg.Dir), nil
}
