package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var ErrInvalidFilename = errors.New("invalid image filename")

// saveAttempts bounds how many suffixed names Save tries after a collision.
const saveAttempts = 5

// ImageStore keeps uploaded product images in a flat directory. Stored
// names are prefixed with the upload time in milliseconds.
type ImageStore struct {
	fs  afero.Fs
	now func() time.Time
}

// NewImageStore stores images at the root of fs.
func NewImageStore(fs afero.Fs) *ImageStore {
	return &ImageStore{fs: fs, now: time.Now}
}

// NewDiskImageStore stores images under dir on the local disk, creating it
// when missing.
func NewDiskImageStore(dir string) (*ImageStore, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return NewImageStore(afero.NewBasePathFs(osFs, dir)), nil
}

// WithClock overrides the time source used for filename prefixes.
func (s *ImageStore) WithClock(now func() time.Time) *ImageStore {
	s.now = now
	return s
}

// Save writes content under a timestamp-prefixed version of originalName and
// returns the stored filename. When that name is taken a short random
// segment is inserted after the timestamp.
func (s *ImageStore) Save(originalName string, content io.Reader) (string, error) {
	base := sanitize(originalName)
	if base == "" {
		return "", ErrInvalidFilename
	}

	name, f, err := s.create(base)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		_ = s.fs.Remove(name)
		return "", fmt.Errorf("failed to write image %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(name)
		return "", fmt.Errorf("failed to close image %s: %w", name, err)
	}
	return name, nil
}

func (s *ImageStore) create(base string) (string, afero.File, error) {
	prefix := s.now().UnixMilli()
	name := fmt.Sprintf("%d-%s", prefix, base)
	for attempt := 0; ; attempt++ {
		f, err := s.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return name, f, nil
		}
		if !errors.Is(err, os.ErrExist) || attempt+1 >= saveAttempts {
			return "", nil, fmt.Errorf("failed to create image %s: %w", name, err)
		}
		name = fmt.Sprintf("%d-%s-%s", prefix, uuid.NewString()[:8], base)
	}
}

// Remove deletes a stored image.
func (s *ImageStore) Remove(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return ErrInvalidFilename
	}
	if err := s.fs.Remove(name); err != nil {
		return fmt.Errorf("failed to remove image %s: %w", name, err)
	}
	return nil
}

func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return strings.Join(strings.Fields(name), "-")
}
