package media

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bstardust/flood-survey-collector/internal/logger"
)

// Collection is the result of expanding a set of input paths into image
// files. Files inside zip archives stay readable until Close.
type Collection struct {
	Files   []File
	Skipped int

	closers []io.Closer
}

// Close releases any opened archives
func (c *Collection) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// Collect expands paths (files, directories, zip archives and glob patterns)
// into image files, in input order and lexical order within a directory.
func Collect(ctx context.Context, paths []string) (*Collection, error) {
	c := &Collection{}

	for _, p := range paths {
		matches, err := filepath.Glob(p)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("invalid glob pattern %s: %w", p, err)
		}

		if len(matches) == 0 {
			// No matches, try as a direct path
			if _, err := os.Stat(p); err != nil {
				c.Close()
				if os.IsNotExist(err) {
					return nil, fmt.Errorf("path does not exist: %s", p)
				}
				return nil, fmt.Errorf("error accessing path %s: %w", p, err)
			}
			matches = []string{p}
		}

		for _, match := range matches {
			if err := ctx.Err(); err != nil {
				c.Close()
				return nil, err
			}
			if err := c.add(ctx, match); err != nil {
				c.Close()
				return nil, err
			}
		}
	}

	return c, nil
}

func (c *Collection) add(ctx context.Context, p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("error accessing path %s: %w", p, err)
	}

	switch {
	case info.IsDir():
		return c.walk(ctx, os.DirFS(p), p)
	case IsZipFile(p):
		zr, err := openZip(p)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, zr)
		return c.walk(ctx, &zr.Reader, p)
	case IsImageFile(p):
		f, err := FromPath(p)
		if err != nil {
			return err
		}
		c.Files = append(c.Files, f)
		return nil
	default:
		logger.Debug("Skipping non-image file %s", p)
		c.Skipped++
		return nil
	}
}

func (c *Collection) walk(ctx context.Context, fsys fs.FS, root string) error {
	return fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if !IsImageFile(name) {
			logger.Debug("Skipping non-image file %s", name)
			c.Skipped++
			return nil
		}

		f, err := New(fsys, name, filepath.Join(root, filepath.FromSlash(name)))
		if err != nil {
			logger.Warn("Failed to get file info for %s: %v", name, err)
			c.Skipped++
			return nil
		}
		c.Files = append(c.Files, f)
		return nil
	})
}

func openZip(p string) (*zip.ReadCloser, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("error opening zip file %s: %w", p, err)
	}
	return zr, nil
}
