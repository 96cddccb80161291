// Package staging holds uploaded files on local disk until ingestion is done
// with them.
package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Stager interface {
	// Save writes r under a unique name derived from name and returns the
	// staged path and the number of bytes written.
	Save(ctx context.Context, r io.Reader, name string) (string, int64, error)
	// Remove deletes a staged file. A missing file is not an error.
	Remove(path string) error
}

type LocalStager struct {
	dir string
}

var _ Stager = (*LocalStager)(nil)

func NewLocalStager(dir string) (*LocalStager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStager{dir: dir}, nil
}

func (s *LocalStager) Save(ctx context.Context, r io.Reader, name string) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	ext := strings.ToLower(filepath.Ext(name))
	path := filepath.Join(s.dir, uuid.NewString()+ext)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, err
	}
	return path, n, nil
}

func (s *LocalStager) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
