package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Store abstracts the attachment blob store. Keys are opaque identifiers
// assigned at upload time; blobs are only reachable through signed URLs.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Open(key string) (io.ReadCloser, int64, error)
	SignedURL(key string, ttlSeconds int64) (string, error)
	Verify(key string, expires int64, signature string) error
}

// FileStore keeps blobs as flat files under a root directory.
type FileStore struct {
	root   string
	signer *Signer
	logger *logrus.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the root directory if needed and returns the store.
func NewFileStore(root string, signer *Signer, logger *logrus.Logger) (*FileStore, error) {
	if root == "" {
		return nil, eris.New("storage root directory is required")
	}
	if signer == nil {
		return nil, eris.New("url signer is required")
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, eris.Wrapf(err, "creating storage root: %s", root)
	}

	return &FileStore{root: root, signer: signer, logger: logger}, nil
}

// Put writes the blob under the given key, replacing any previous content.
func (s *FileStore) Put(ctx context.Context, key string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "storing blob")
	}

	path, err := s.blobPath(key)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return eris.Wrap(err, "creating temporary upload file")
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return eris.Wrapf(err, "writing blob: %s", key)
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return eris.Wrapf(err, "closing blob: %s", key)
	}

	if err := os.Rename(f.Name(), path); err != nil {
		os.Remove(f.Name())
		return eris.Wrapf(err, "finalising blob: %s", key)
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"key": key}).Debug("stored attachment blob")
	}

	return nil
}

// Open returns a reader over the blob plus its size.
func (s *FileStore) Open(key string) (io.ReadCloser, int64, error) {
	path, err := s.blobPath(key)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, eris.Wrapf(ErrBlobNotFound, "opening blob: %s", key)
		}
		return nil, 0, eris.Wrapf(err, "opening blob: %s", key)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, eris.Wrapf(err, "stat blob: %s", key)
	}

	return f, info.Size(), nil
}

// SignedURL mints a fresh time-limited URL for the blob. Two calls for the
// same key may produce different URLs; both resolve to the same blob until
// their expiry passes.
func (s *FileStore) SignedURL(key string, ttlSeconds int64) (string, error) {
	if _, err := s.blobPath(key); err != nil {
		return "", err
	}
	return s.signer.Sign(key, ttlSeconds)
}

// Verify checks an expiry/signature pair produced by SignedURL.
func (s *FileStore) Verify(key string, expires int64, signature string) error {
	return s.signer.Verify(key, expires, signature)
}

// ErrBlobNotFound indicates the requested attachment does not exist.
var ErrBlobNotFound = eris.New("attachment blob not found")

func (s *FileStore) blobPath(key string) (string, error) {
	cleaned := strings.TrimSpace(key)
	if cleaned == "" {
		return "", eris.New("blob key is required")
	}

	// Keys are flat; anything that would escape the root is rejected.
	if strings.ContainsAny(cleaned, "/\\") || cleaned != filepath.Base(cleaned) {
		return "", eris.Errorf("invalid blob key: %s", key)
	}

	return filepath.Join(s.root, cleaned), nil
}
