package api

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/UnknownOlympus/meridian/internal/storage"
	"github.com/gorilla/mux"
)

// storeImages saves the uploaded files of a kind and returns their URLs.
// Nothing is kept when one of the files is rejected.
func (s *Server) storeImages(ctx context.Context, kind string, files []*multipart.FileHeader) ([]string, error) {
	if len(files) > storage.MaxImages {
		return nil, invalid("at most %d images can be uploaded at once", storage.MaxImages)
	}

	urls := make([]string, 0, len(files))
	for _, header := range files {
		url, err := s.storeImage(ctx, kind, header)
		if err != nil {
			s.removeImages(ctx, urls)
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (s *Server) storeImage(ctx context.Context, kind string, header *multipart.FileHeader) (string, error) {
	if header.Size > storage.MaxImageSize {
		return "", storage.ErrTooLarge
	}
	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	url, err := storage.Save(ctx, s.images, kind, file)
	if err != nil {
		return "", err
	}
	s.metrics.ImagesUploaded.WithLabelValues(kind).Inc()
	return url, nil
}

// removeImages deletes stored images, logging failures.
func (s *Server) removeImages(ctx context.Context, urls []string) {
	for _, url := range urls {
		kind, name, ok := storage.ParseURL(url)
		if !ok {
			continue
		}
		if err := s.images.Delete(ctx, kind, name); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.log.WarnContext(ctx, "Failed to remove image", "url", url, "error", err)
		}
	}
}

// visitImages lists the images of visits removed along with their office or client.
func visitImages(visits []models.VisitEntry) []string {
	var out []string
	for _, visit := range visits {
		out = append(out, visit.Images...)
	}
	return out
}

// dropped returns the images of before missing from after.
func dropped(before, after []string) []string {
	kept := make(map[string]bool, len(after))
	for _, image := range after {
		kept[image] = true
	}
	var out []string
	for _, image := range before {
		if !kept[image] {
			out = append(out, image)
		}
	}
	return out
}

func (s *Server) serveImage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reader, info, err := s.images.Open(r.Context(), vars["kind"], vars["name"])
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidName) {
		writeError(w, http.StatusNotFound, "Image not found")
		return
	}
	if err != nil {
		s.fail(w, r, err, "Image")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err = io.Copy(w, reader); err != nil {
		s.log.WarnContext(r.Context(), "Failed to stream image", "path", r.URL.Path, "error", err)
	}
}
