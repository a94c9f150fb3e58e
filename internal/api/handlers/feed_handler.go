package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/feed-api/internal/auth"
	"github.com/isdelr/feed-api/internal/models"
	"github.com/isdelr/feed-api/internal/services"
	"github.com/rs/zerolog/log"
)

// formMemory is how much of a multipart body is kept in memory before spilling to disk.
const formMemory = 8 << 20

// ImageUploader persists an uploaded image and returns its reference, or an
// empty reference when the upload was not accepted.
type ImageUploader interface {
	Store(ctx context.Context, r io.Reader, originalName, contentType string) (string, error)
}

// FeedHandler handles HTTP requests for posts.
type FeedHandler struct {
	service      services.FeedServiceProvider
	images       ImageUploader
	maxImageSize int64
}

// NewFeedHandler creates a new FeedHandler. maxImageSize is in bytes.
func NewFeedHandler(service services.FeedServiceProvider, images ImageUploader, maxImageSize int64) *FeedHandler {
	return &FeedHandler{service: service, images: images, maxImageSize: maxImageSize}
}

// GetPosts handles the paginated feed listing.
func (h *FeedHandler) GetPosts(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	result, err := h.service.ListPosts(r.Context(), page)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Fetched posts successfully.",
		"posts":      result.Posts,
		"totalItems": result.TotalItems,
	})
}

// GetPost handles the request to get a single post by its ID.
func (h *FeedHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.GetPost(r.Context(), chi.URLParam(r, "postId"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Post fetched.",
		"post":    post,
	})
}

// CreatePost handles a multipart post submission with an `image` file.
func (h *FeedHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		WriteError(w, r, models.NewUnauthenticatedError("Not authenticated."))
		return
	}

	imageURL, err := h.parseForm(w, r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	post, err := h.service.CreatePost(r.Context(), claims.UserID, services.CreatePostInput{
		Title:    r.FormValue("title"),
		Content:  r.FormValue("content"),
		ImageURL: imageURL,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Post created successfully!",
		"post":    post,
		"creator": post.Creator,
	})
}

// UpdatePost handles replacing a post. The image is either a new `image`
// file or the current reference repeated in the `image` field.
func (h *FeedHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		WriteError(w, r, models.NewUnauthenticatedError("Not authenticated."))
		return
	}

	newImageURL, err := h.parseForm(w, r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	post, err := h.service.UpdatePost(r.Context(), claims.UserID, chi.URLParam(r, "postId"), services.UpdatePostInput{
		Title:       r.FormValue("title"),
		Content:     r.FormValue("content"),
		ImageURL:    r.FormValue("image"),
		NewImageURL: newImageURL,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Post updated!",
		"post":    post,
	})
}

// DeletePost handles the request to delete a post.
func (h *FeedHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		WriteError(w, r, models.NewUnauthenticatedError("Not authenticated."))
		return
	}

	if err := h.service.DeletePost(r.Context(), claims.UserID, chi.URLParam(r, "postId")); err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted post."})
}

// parseForm parses the request form and stores the `image` upload, if any.
// Non-multipart bodies are accepted as plain forms without a file.
func (h *FeedHandler) parseForm(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageSize+formMemory)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return "", models.NewValidationError(fmt.Sprintf("Upload too large (max %d MB).", h.maxImageSize>>20))
		case errors.Is(err, http.ErrNotMultipart):
			return "", nil
		default:
			return "", models.NewValidationError("Invalid form data.")
		}
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", models.NewValidationError("Invalid image upload.")
	}
	defer file.Close()

	if header.Size > h.maxImageSize {
		return "", models.NewValidationError(fmt.Sprintf("Upload too large (max %d MB).", h.maxImageSize>>20))
	}

	ref, err := h.images.Store(r.Context(), file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}
	if ref == "" {
		log.Debug().Str("filename", header.Filename).Msg("Image upload rejected by type filter")
	}
	return ref, nil
}
