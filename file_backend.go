package keystore

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	log "github.com/sirupsen/logrus"
)

const containerFilePerm = 0600

// FileBackend holds the sealed container in a single file. The default
// persist mode rewrites the file in place, so a crash mid-write can leave a
// corrupt container behind. With atomic persists enabled the container is
// written to a temporary file first and renamed over the old one.
type FileBackend struct {
	path   string
	atomic bool
}

// Ensure FileBackend implements the Backend interface
var _ Backend = (*FileBackend)(nil)

func NewFileBackend(path string, atomicPersist bool) *FileBackend {
	return &FileBackend{
		path:   path,
		atomic: atomicPersist,
	}
}

func (f *FileBackend) Load() ([]byte, error) {
	blob, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, ErrStoreNotExist
	}
	if err != nil {
		return nil, err
	}
	return blob, nil
}

func (f *FileBackend) Persist(blob []byte) error {
	if !f.atomic {
		return os.WriteFile(f.path, blob, containerFilePerm)
	}

	tmp := fmt.Sprintf("%s.%s.tmp", f.path, uuid.NewString())
	if err := os.WriteFile(tmp, blob, containerFilePerm); err != nil {
		return err
	}
	if err := os.Rename(tmp, f.path); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil {
			log.Warnf("failed to clean up temporary container file %s: %v", tmp, rmErr)
		}
		return err
	}
	return nil
}

func (f *FileBackend) Exists() (bool, error) {
	_, err := os.Stat(f.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (f *FileBackend) Close() error { return nil }
