package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/feed-api/internal/metrics"
	"github.com/isdelr/feed-api/internal/models"
	"github.com/rs/zerolog/log"
)

// ImagePublicPrefix is the URL path prefix stored images are served under.
const ImagePublicPrefix = "images"

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpg":  true,
	"image/jpeg": true,
}

// AcceptsImageType reports whether contentType is one of the accepted image MIME types.
func AcceptsImageType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return allowedImageTypes[strings.ToLower(mediaType)]
}

// ImageStore is the part of the image lifecycle the feed service depends on.
type ImageStore interface {
	Release(ctx context.Context, ref string)
}

// ImageService stores uploaded post images on disk and removes them again.
type ImageService struct {
	uploadDir string
	events    EventServiceProvider
}

// NewImageService creates an ImageService rooted at uploadDir, creating the directory if needed.
func NewImageService(uploadDir string, events EventServiceProvider) (*ImageService, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image upload directory: %w", err)
	}
	return &ImageService{uploadDir: uploadDir, events: events}, nil
}

// Dir returns the directory stored images live in.
func (s *ImageService) Dir() string {
	return s.uploadDir
}

// Store writes the upload to disk and returns its reference. A content type
// outside the allow-list is not an error: the upload is skipped and the
// returned reference is empty.
func (s *ImageService) Store(ctx context.Context, r io.Reader, originalName, contentType string) (string, error) {
	if !AcceptsImageType(contentType) {
		log.Debug().Str("content_type", contentType).Str("filename", originalName).Msg("Skipping upload with unaccepted content type")
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.New().String() + "-" + sanitizeFilename(originalName)
	dst := filepath.Join(s.uploadDir, name)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", models.NewInternalError(fmt.Errorf("could not create image file: %w", err))
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", models.NewInternalError(fmt.Errorf("could not write image file: %w", err))
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", models.NewInternalError(fmt.Errorf("could not write image file: %w", err))
	}

	return path.Join(ImagePublicPrefix, name), nil
}

// Release removes the artifact behind ref. Failures are logged and recorded,
// never returned: an orphaned file is acceptable, a failed request is not.
func (s *ImageService) Release(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	file, err := s.resolve(ref)
	if err == nil {
		err = os.Remove(file)
	}
	if err == nil {
		log.Debug().Str("image", ref).Msg("Released image")
		return
	}

	metrics.ImageReleaseFailuresTotal.Inc()
	log.Warn().Err(err).Str("image", ref).Msg("Failed to release image")
	recordEvent(ctx, s.events, models.EventImageReleaseFail, "warn", fmt.Sprintf("Image '%s' could not be removed: %v", ref, err), nil)
}

// Reconcile deletes stored files that no post references and that are older
// than grace. It returns the number of files removed.
func (s *ImageService) Reconcile(ctx context.Context, referenced map[string]struct{}, grace time.Duration) (int, error) {
	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		return 0, fmt.Errorf("could not read image directory: %w", err)
	}

	cutoff := time.Now().Add(-grace)
	removed := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if entry.IsDir() {
			continue
		}
		if _, ok := referenced[path.Join(ImagePublicPrefix, entry.Name())]; ok {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.uploadDir, entry.Name())); err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to remove orphaned image")
			continue
		}
		removed++
	}
	metrics.OrphanedImagesRemovedTotal.Add(float64(removed))
	return removed, nil
}

// resolve maps an image reference to its file, refusing anything that would
// escape the upload directory.
func (s *ImageService) resolve(ref string) (string, error) {
	name, found := strings.CutPrefix(filepath.ToSlash(ref), ImagePublicPrefix+"/")
	if !found || name == "" || strings.Contains(name, "/") || name == "." || name == ".." {
		return "", errors.New("not a stored image reference")
	}
	return filepath.Join(s.uploadDir, name), nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(filepath.ToSlash(strings.ReplaceAll(name, "\\", "/")))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '-'
		case r < 0x20 || r == '/' || r == '\\':
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "image"
	}
	return name
}
