package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmorgan81/wishcard/internal/log"
)

var ErrNotFound = errors.New("not found")

// Reader fetches a stored object by the name it was uploaded under.
type Reader interface {
	Read(ctx context.Context, name string) ([]byte, error)
}

// CardName is the key an archived card is stored under.
func CardName(id string) string {
	return CardPrefix + id + ".jpg"
}

// FileReader reads back what FileUploader wrote under Dir.
type FileReader struct {
	Dir string
}

func (r *FileReader) Read(ctx context.Context, name string) ([]byte, error) {
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	path := filepath.Join(r.Dir, filepath.FromSlash(name))
	log.FromContextOrDiscard(ctx).WithGroup("file").Info("reading", "file", path)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return data, err
}
