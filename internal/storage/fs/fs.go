// Package fs implements the local filesystem sink. Files are written to a
// temporary sibling of the target and renamed into place on commit.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Samratsinh-git/YandexDownloader/internal/domain"
	"github.com/Samratsinh-git/YandexDownloader/internal/observability/types"
)

const (
	tempPrefix = ".yadisk-"
	tempSuffix = ".part"

	// newFileMode is narrowed by the process umask, as with os.Create.
	newFileMode os.FileMode = 0o666
)

// Sink writes a single file under a user supplied destination.
type Sink struct {
	destination string
	logger      types.Logger
}

// New creates a filesystem sink for destination. An empty destination
// means the current directory.
func New(destination string, logger types.Logger) *Sink {
	return &Sink{
		destination: destination,
		logger:      logger.WithFields(types.Fields{"component": "fs_sink"}),
	}
}

// ResolvePath returns the final file path for name under destination.
// Existing directories and paths ending in a separator get name appended,
// anything else is the target file itself. The parent directory must
// already exist.
func ResolvePath(destination, name string) (string, error) {
	if destination == "" {
		destination = "."
	}

	target := destination
	if hasTrailingSeparator(destination) {
		target = filepath.Join(destination, name)
	} else if info, err := os.Stat(destination); err == nil && info.IsDir() {
		target = filepath.Join(destination, name)
	}

	dir := filepath.Dir(target)
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", domain.FilesystemError(fmt.Sprintf("directory %s does not exist", dir), err)
		}
		return "", domain.FilesystemError(fmt.Sprintf("cannot access directory %s", dir), err)
	}
	if !info.IsDir() {
		return "", domain.FilesystemError(fmt.Sprintf("%s is not a directory", dir), nil)
	}

	return target, nil
}

func hasTrailingSeparator(p string) bool {
	return strings.HasSuffix(p, string(filepath.Separator)) || strings.HasSuffix(p, "/")
}

// Create implements domain.Sink
func (s *Sink) Create(ctx context.Context, name string) (domain.Object, error) {
	target, err := ResolvePath(s.destination, name)
	if err != nil {
		return nil, err
	}

	mode, err := targetMode(target)
	if err != nil {
		return nil, err
	}

	tmp, err := createTemp(filepath.Dir(target))
	if err != nil {
		return nil, domain.FilesystemError("failed to create temporary file", err)
	}
	if mode != 0 {
		if err := tmp.Chmod(mode); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return nil, domain.FilesystemError("failed to set file mode", err)
		}
	}

	s.logger.Debug(ctx, "Created temporary file", types.Fields{
		"temp_path": tmp.Name(),
		"target":    target,
	})

	return &Object{file: tmp, target: target, logger: s.logger}, nil
}

// targetMode returns the permissions an existing target keeps after it is
// replaced, or zero when there is nothing to replace. Targets without the
// owner write bit are refused even when the process could bypass it.
func targetMode(target string) (os.FileMode, error) {
	info, err := os.Stat(target)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, domain.FilesystemError(fmt.Sprintf("cannot access %s", target), err)
	}
	if info.IsDir() {
		return 0, domain.FilesystemError(fmt.Sprintf("%s is a directory", target), nil)
	}
	if !info.Mode().IsRegular() {
		return 0, domain.FilesystemError(fmt.Sprintf("%s is not a regular file", target), nil)
	}
	if info.Mode().Perm()&0o200 == 0 {
		return 0, domain.FilesystemError(fmt.Sprintf("%s is read-only", target), nil)
	}

	f, err := os.OpenFile(target, os.O_WRONLY, 0)
	if err != nil {
		return 0, domain.FilesystemError(fmt.Sprintf("no permission to write %s", target), err)
	}
	f.Close()

	return info.Mode().Perm(), nil
}

// createTemp opens a new hidden file in dir. Unlike os.CreateTemp the
// file gets the same mode os.Create would give it.
func createTemp(dir string) (*os.File, error) {
	name := filepath.Join(dir, tempPrefix+uuid.NewString()+tempSuffix)
	return os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, newFileMode)
}

// Object is a temp file awaiting rename onto its target.
type Object struct {
	file   *os.File
	target string
	logger types.Logger

	mu        sync.Mutex
	committed bool
	closed    bool
}

// ReadAt implements io.ReaderAt
func (o *Object) ReadAt(p []byte, off int64) (int, error) {
	n, err := o.file.ReadAt(p, off)
	if err != nil && err != io.EOF {
		return n, domain.FilesystemError("failed to read file", err)
	}
	return n, err
}

// Write implements io.Writer
func (o *Object) Write(p []byte) (int, error) {
	n, err := o.file.Write(p)
	if err != nil {
		return n, domain.FilesystemError("failed to write file", err)
	}
	return n, nil
}

// WriteAt implements io.WriterAt
func (o *Object) WriteAt(p []byte, off int64) (int, error) {
	n, err := o.file.WriteAt(p, off)
	if err != nil {
		return n, domain.FilesystemError("failed to write file", err)
	}
	return n, nil
}

// Commit syncs the temp file and renames it over the target.
func (o *Object) Commit(ctx context.Context) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.committed {
		return o.target, nil
	}
	if o.closed {
		return "", domain.FilesystemError("object already aborted", nil)
	}

	if err := o.file.Sync(); err != nil {
		o.discard()
		return "", domain.FilesystemError("failed to sync file", err)
	}
	o.closed = true
	if err := o.file.Close(); err != nil {
		os.Remove(o.file.Name())
		return "", domain.FilesystemError("failed to close file", err)
	}
	if err := os.Rename(o.file.Name(), o.target); err != nil {
		os.Remove(o.file.Name())
		return "", domain.FilesystemError(fmt.Sprintf("failed to move file to %s", o.target), err)
	}

	o.committed = true
	o.logger.Debug(ctx, "File committed", types.Fields{"path": o.target})
	return o.target, nil
}

// Abort implements domain.Object
func (o *Object) Abort() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.committed {
		return nil
	}
	return o.discard()
}

func (o *Object) discard() error {
	if !o.closed {
		o.closed = true
		o.file.Close()
	}
	if err := os.Remove(o.file.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return domain.FilesystemError("failed to remove temporary file", err)
	}
	return nil
}
