package auth

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// LocalAvatarStore implements AvatarStore on the local filesystem,
// standing in for the object storage collaborator. Files are written
// under Dir and addressed as BaseURL/<name>.
type LocalAvatarStore struct {
	Dir     string
	BaseURL string
}

var _ AvatarStore = (*LocalAvatarStore)(nil)

func NewLocalAvatarStore(dir, baseURL string) *LocalAvatarStore {
	return &LocalAvatarStore{
		Dir:     dir,
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Save stores the blob under a random name, preserving the original
// extension, and returns the public URL.
func (s *LocalAvatarStore) Save(ctx context.Context, filename string, blob io.Reader) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "could not create avatar directory")
	}

	name := uuid.NewString() + filepath.Ext(filename)
	path := filepath.Join(s.Dir, name)

	out, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "could not create avatar file")
	}
	defer out.Close()

	if _, err := io.Copy(out, blob); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "could not write avatar file")
	}

	return s.BaseURL + "/" + name, nil
}
