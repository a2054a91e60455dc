package media

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"
)

// File is a photo selected for a report. It is backed by an fs.FS so the
// same handle works for plain directories and zip archives.
type File struct {
	Name        string
	Path        string
	Size        int64
	ContentType string
	ModTime     time.Time

	fsys fs.FS
	name string
}

// New stats name inside fsys and returns a handle to it
func New(fsys fs.FS, name string, location string) (File, error) {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return File{}, fmt.Errorf("failed to stat %s: %w", location, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", location)
	}

	return File{
		Name:        path.Base(name),
		Path:        location,
		Size:        info.Size(),
		ContentType: DetectContentType(name),
		ModTime:     info.ModTime(),
		fsys:        fsys,
		name:        name,
	}, nil
}

// FromPath returns a handle to a file on the local filesystem
func FromPath(p string) (File, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return File{}, fmt.Errorf("failed to resolve %s: %w", p, err)
	}
	return New(os.DirFS(filepath.Dir(abs)), filepath.Base(abs), abs)
}

// Open opens the file contents for reading
func (f File) Open() (fs.File, error) {
	if f.fsys == nil {
		return nil, fmt.Errorf("file %s has no backing filesystem", f.Name)
	}
	return f.fsys.Open(f.name)
}

// ReadAll reads the whole file
func (f File) ReadAll() ([]byte, error) {
	if f.fsys == nil {
		return nil, fmt.Errorf("file %s has no backing filesystem", f.Name)
	}
	return fs.ReadFile(f.fsys, f.name)
}
