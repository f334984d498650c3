package core

import (
	"context"
	"io"
)

// FileStorage stores uploaded files (course covers, resource files).
type FileStorage interface {
	// Save stores content under a fresh name keeping the extension of filename, and returns its public URL.
	Save(ctx context.Context, filename string, content io.Reader) (string, error)
}
