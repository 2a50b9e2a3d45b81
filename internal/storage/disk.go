package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
)

// Disk stores images under a local directory.
type Disk struct {
	root string
}

// NewDisk creates the upload directories below root.
func NewDisk(root string) (*Disk, error) {
	for kind := range kinds {
		if err := os.MkdirAll(filepath.Join(root, kind), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
	}
	return &Disk{root: root}, nil
}

func (d *Disk) Put(_ context.Context, kind, name string, body io.Reader, _ int64, _ string) error {
	if err := CheckName(kind, name); err != nil {
		return err
	}

	file, err := os.Create(filepath.Join(d.root, kind, name))
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	if _, err = io.Copy(file, body); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write image file: %w", err)
	}
	return file.Close()
}

func (d *Disk) Open(_ context.Context, kind, name string) (io.ReadCloser, Info, error) {
	if err := CheckName(kind, name); err != nil {
		return nil, Info{}, err
	}

	file, err := os.Open(filepath.Join(d.root, kind, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, Info{}, ErrNotFound
	}
	if err != nil {
		return nil, Info{}, fmt.Errorf("failed to open image: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, Info{}, fmt.Errorf("failed to stat image: %w", err)
	}

	return file, Info{ContentType: mime.TypeByExtension(filepath.Ext(name)), Size: stat.Size()}, nil
}

func (d *Disk) Delete(_ context.Context, kind, name string) error {
	if err := CheckName(kind, name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(d.root, kind, name))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}
