// Package blobsvc provides core.BlobStore implementations.
package blobsvc

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
)

// FSStore keeps objects as files under a root directory.
type FSStore struct {
	root    string
	baseURL string
}

var _ core.BlobStore = (*FSStore)(nil)

func NewFSStore(root, publicBaseURL string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating blob root")
	}
	return &FSStore{root: root, baseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// path maps a key inside the root, refusing keys that escape it.
func (s *FSStore) path(key string) (string, error) {
	p := filepath.Join(s.root, filepath.FromSlash(key))
	if rel, err := filepath.Rel(s.root, p); err != nil || strings.HasPrefix(rel, "..") {
		return "", errors.Errorf("invalid blob key %q", key)
	}
	return p, nil
}

func (s *FSStore) Put(_ context.Context, key string, r io.Reader, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err = io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

func (s *FSStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, core.ErrBlobNotFound
	}
	return f, err
}

func (s *FSStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	src, err := s.Get(ctx, srcKey)
	if err != nil {
		return err
	}
	defer src.Close()
	return s.Put(ctx, dstKey, src, "")
}

func (s *FSStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if os.IsNotExist(err) {
		return core.ErrBlobNotFound
	}
	return err
}

func (s *FSStore) URL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}
