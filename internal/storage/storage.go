package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	// MaxImageSize is the largest accepted upload.
	MaxImageSize = 5 << 20
	// MaxImages is the number of files accepted per request.
	MaxImages = 5

	sniffLen = 3072
)

var (
	ErrUnsupportedType = errors.New("only image files are allowed")
	ErrTooLarge        = errors.New("image exceeds the 5MB limit")
	ErrNotFound        = errors.New("image not found")
	ErrInvalidName     = errors.New("invalid image name")
)

var (
	allowedTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/gif":  ".gif",
		"image/webp": ".webp",
	}
	kinds     = map[string]string{"offices": "office", "clients": "client", "visits": "visit"}
	validName = regexp.MustCompile(`^[a-z]+-[0-9a-f-]{36}\.(jpg|png|gif|webp)$`)
)

// Info describes a stored image.
type Info struct {
	ContentType string
	Size        int64
}

// Store keeps uploaded images grouped by kind ("offices", "clients", "visits").
type Store interface {
	// Put stores body under kind/name.
	Put(ctx context.Context, kind, name string, body io.Reader, size int64, contentType string) error
	// Open returns the stored image. The caller closes the reader.
	Open(ctx context.Context, kind, name string) (io.ReadCloser, Info, error)
	Delete(ctx context.Context, kind, name string) error
}

// Upload is an accepted image ready to be stored.
type Upload struct {
	Kind        string
	Name        string
	ContentType string
	Data        []byte
}

// URL is the public path of the image, as referenced by records.
func (u Upload) URL() string {
	return URL(u.Kind, u.Name)
}

// URL builds the public path of an image.
func URL(kind, name string) string {
	return path.Join("/uploads", kind, name)
}

// ParseURL splits a public image path produced by URL. It reports false for
// foreign URLs.
func ParseURL(url string) (string, string, bool) {
	rest, ok := strings.CutPrefix(url, "/uploads/")
	if !ok {
		return "", "", false
	}
	kind, name, ok := strings.Cut(rest, "/")
	if !ok || CheckName(kind, name) != nil {
		return "", "", false
	}
	return kind, name, true
}

// Accept reads an uploaded file, checks its size and sniffs its content type.
// The file name is generated, the client's name is never used.
func Accept(kind string, r io.Reader) (Upload, error) {
	prefix, ok := kinds[kind]
	if !ok {
		return Upload{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidName, kind)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return Upload{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > MaxImageSize {
		return Upload{}, ErrTooLarge
	}

	mtype := mimetype.Detect(data[:min(len(data), sniffLen)])
	ext, ok := allowedTypes[mtype.String()]
	if !ok {
		return Upload{}, fmt.Errorf("%w: got %s", ErrUnsupportedType, mtype.String())
	}

	return Upload{
		Kind:        kind,
		Name:        prefix + "-" + uuid.NewString() + ext,
		ContentType: mtype.String(),
		Data:        data,
	}, nil
}

// Save accepts and stores an uploaded file and returns its public URL.
func Save(ctx context.Context, store Store, kind string, r io.Reader) (string, error) {
	upload, err := Accept(kind, r)
	if err != nil {
		return "", err
	}
	err = store.Put(ctx, upload.Kind, upload.Name, bytes.NewReader(upload.Data), int64(len(upload.Data)), upload.ContentType)
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return upload.URL(), nil
}

// CheckName rejects kinds and names that were not produced by Accept.
func CheckName(kind, name string) error {
	if _, ok := kinds[kind]; !ok || !validName.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}
