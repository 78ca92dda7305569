package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

const localURLPrefix = "file://"

// LocalStore persists objects on the local filesystem. Intended for
// development and tests, where an S3 bucket is overkill.
type LocalStore struct {
	root string
}

var _ ObjectStore = (*LocalStore)(nil)

// NewLocalStore constructs a disk-backed object store rooted at path.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, eris.New("storage path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, eris.Wrap(err, "creating storage root")
	}

	return &LocalStore{root: root}, nil
}

func (l *LocalStore) Store(_ context.Context, key string, data []byte, _ string) (string, error) {
	if key == "" {
		return "", eris.New("object key is required")
	}
	if len(data) == 0 {
		return "", eris.New("object data is empty")
	}

	path, err := l.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", eris.Wrap(err, "creating object directory")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "writing object %s", key)
	}

	return localURLPrefix + path, nil
}

func (l *LocalStore) Delete(_ context.Context, url string) error {
	path := strings.TrimPrefix(url, localURLPrefix)
	if path == url {
		return eris.Errorf("url %s is not a local object", url)
	}

	relative, err := filepath.Rel(l.root, path)
	if err != nil || strings.HasPrefix(relative, "..") {
		return eris.Errorf("url %s is outside the storage root", url)
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return eris.Wrapf(err, "removing object %s", path)
	}

	return nil
}

// resolve maps a key to an absolute path under the root, rejecting traversal.
func (l *LocalStore) resolve(key string) (string, error) {
	path := filepath.Join(l.root, filepath.FromSlash(key))

	relative, err := filepath.Rel(l.root, path)
	if err != nil || strings.HasPrefix(relative, "..") {
		return "", eris.Errorf("object key %s escapes the storage root", key)
	}

	return path, nil
}
