// Package files stores uploads on the local disk, served back by the API under a public URL prefix.
package files

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/innovalab/center/core"
)

type localStorage struct {
	dir     string
	baseURL string
}

var _ core.FileStorage = (*localStorage)(nil) // interface compliance check

// NewLocalStorage stores files in dir, served under baseURL (e.g. "/uploads").
func NewLocalStorage(dir, baseURL string) (*localStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload dir")
	}
	return &localStorage{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (s *localStorage) Save(ctx context.Context, filename string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := uuid.New().String() + strings.ToLower(filepath.Ext(filepath.Base(filename)))

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "creating upload")
	}
	if _, err = io.Copy(f, content); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", errors.Wrap(err, "writing upload")
	}
	if err = f.Close(); err != nil {
		return "", errors.Wrap(err, "closing upload")
	}
	return s.baseURL + "/" + name, nil
}
