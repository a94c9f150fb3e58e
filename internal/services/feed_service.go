package services

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/isdelr/feed-api/internal/metrics"
	"github.com/isdelr/feed-api/internal/models"
	"github.com/isdelr/feed-api/internal/repository"
	"github.com/isdelr/feed-api/internal/validation"
	"github.com/rs/zerolog/log"
)

// PostsPerPage is the fixed page size of the feed listing.
const PostsPerPage = 2

// Post event actions broadcast to connected clients.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// FeedServiceProvider defines the interface for feed services.
type FeedServiceProvider interface {
	CreatePost(ctx context.Context, callerID string, in CreatePostInput) (models.Post, error)
	GetPost(ctx context.Context, postID string) (models.Post, error)
	ListPosts(ctx context.Context, page int) (models.PostPage, error)
	UpdatePost(ctx context.Context, callerID, postID string, in UpdatePostInput) (models.Post, error)
	DeletePost(ctx context.Context, callerID, postID string) error
}

// PostCache caches single-post snapshots. Implementations swallow their own errors.
type PostCache interface {
	Get(ctx context.Context, postID string) (models.Post, bool)
	Set(ctx context.Context, post models.Post)
	Delete(ctx context.Context, postID string)
}

// Notifier broadcasts post mutations to live clients.
type Notifier interface {
	Publish(action string, payload interface{})
}

// CreatePostInput is a new post as submitted by its author.
type CreatePostInput struct {
	Title    string `json:"title" validate:"required,max=255"`
	Content  string `json:"content" validate:"required"`
	ImageURL string `json:"imageUrl"` // reference of the already stored upload, empty when none was accepted
}

// UpdatePostInput replaces a post's fields. NewImageURL is set when a new
// file was uploaded; otherwise ImageURL must repeat the stored reference.
type UpdatePostInput struct {
	Title       string `json:"title" validate:"required,max=255"`
	Content     string `json:"content" validate:"required"`
	ImageURL    string `json:"image"`
	NewImageURL string `json:"-"`
}

// FeedService orchestrates post mutations across the post and user
// repositories and the image store, enforcing ownership.
type FeedService struct {
	store    *repository.Store
	images   ImageStore
	events   EventServiceProvider
	cache    PostCache
	notifier Notifier
	timeout  time.Duration

	// invalidations counts cache evictions. A read that overlaps one does
	// not leave its snapshot in the cache.
	invalidations atomic.Uint64
}

// NewFeedService creates a FeedService. events, cache and notifier may be nil.
func NewFeedService(store *repository.Store, images ImageStore, events EventServiceProvider, cache PostCache, notifier Notifier, timeout time.Duration) *FeedService {
	return &FeedService{
		store:    store,
		images:   images,
		events:   events,
		cache:    cache,
		notifier: notifier,
		timeout:  timeout,
	}
}

// CreatePost stores a post owned by callerID and appends it to the caller's
// post list in the same transaction.
func (s *FeedService) CreatePost(ctx context.Context, callerID string, in CreatePostInput) (models.Post, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if err := validation.Struct("Validation failed, entered data is incorrect.", in); err != nil {
		s.releaseImage(ctx, in.ImageURL)
		return models.Post{}, err
	}
	if in.ImageURL == "" {
		return models.Post{}, models.NewValidationError("No image provided.")
	}

	post := models.Post{
		Title:    in.Title,
		Content:  in.Content,
		ImageURL: in.ImageURL,
		Creator:  models.Creator{ID: callerID},
	}
	err := s.store.WithTx(ctx, func(tx *repository.Tx) error {
		creator, err := tx.Users.GetByID(ctx, callerID)
		if err != nil {
			if models.HasCode(err, models.CodeNotFound) {
				return models.NewUnauthenticatedError("Not authenticated.")
			}
			return err
		}
		if err := tx.Posts.Create(ctx, &post); err != nil {
			return err
		}
		if err := tx.Users.AppendPost(ctx, callerID, post.ID); err != nil {
			return err
		}
		post.Creator.Name = creator.Name
		return nil
	})
	if err != nil {
		s.releaseImage(ctx, in.ImageURL)
		return models.Post{}, err
	}

	s.afterMutation(ctx, ActionCreate, post.ID, post, fmt.Sprintf("Post '%s' created.", post.Title))
	return post, nil
}

// GetPost returns a single post. Reads need no ownership.
func (s *FeedService) GetPost(ctx context.Context, postID string) (models.Post, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if s.cache != nil {
		if post, ok := s.cache.Get(ctx, postID); ok {
			return post, nil
		}
	}

	seen := s.invalidations.Load()
	post, err := s.store.Posts.Get(ctx, postID)
	if err != nil {
		return models.Post{}, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, post)
		// A mutation committed since the read may have evicted before our Set.
		if s.invalidations.Load() != seen {
			s.cache.Delete(ctx, postID)
		}
	}
	return post, nil
}

// ListPosts returns one page of the feed. Pages start at 1; anything lower is treated as 1.
func (s *FeedService) ListPosts(ctx context.Context, page int) (models.PostPage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if page < 1 {
		page = 1
	}
	posts, total, err := s.store.Posts.List(ctx, page, PostsPerPage)
	if err != nil {
		return models.PostPage{}, err
	}
	return models.PostPage{Posts: posts, TotalItems: total}, nil
}

// UpdatePost replaces the post's title, content and image. Only the creator
// may update; a replaced image is released once the update is committed.
// Concurrent updates are last-writer-wins.
func (s *FeedService) UpdatePost(ctx context.Context, callerID, postID string, in UpdatePostInput) (models.Post, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if err := validation.Struct("Validation failed, entered data is incorrect.", in); err != nil {
		s.releaseImage(ctx, in.NewImageURL)
		return models.Post{}, err
	}

	imageURL := in.NewImageURL
	if imageURL == "" {
		imageURL = in.ImageURL
	}
	if imageURL == "" {
		return models.Post{}, models.NewValidationError("No file picked.")
	}

	var previous string
	var updated models.Post
	err := s.store.WithTx(ctx, func(tx *repository.Tx) error {
		post, err := tx.Posts.Get(ctx, postID)
		if err != nil {
			return err
		}
		if post.Creator.ID != callerID {
			return models.NewForbiddenError("Not authorized!")
		}
		if in.NewImageURL == "" && imageURL != post.ImageURL {
			return models.NewValidationError("Image reference does not belong to this post.",
				models.FieldError{Field: "image", Message: "must be a new upload or the current image"})
		}
		previous = post.ImageURL

		updated, err = tx.Posts.Update(ctx, postID, models.PostUpdate{
			Title:    &in.Title,
			Content:  &in.Content,
			ImageURL: &imageURL,
		})
		return err
	})
	if err != nil {
		s.releaseImage(ctx, in.NewImageURL)
		return models.Post{}, err
	}

	s.invalidate(ctx, postID)
	if previous != updated.ImageURL {
		s.releaseImage(ctx, previous)
	}
	s.afterMutation(ctx, ActionUpdate, postID, updated, fmt.Sprintf("Post '%s' updated.", updated.Title))
	return updated, nil
}

// DeletePost removes the post and its entry in the owner's post list in one
// transaction, then releases the bound image.
func (s *FeedService) DeletePost(ctx context.Context, callerID, postID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var deleted models.Post
	err := s.store.WithTx(ctx, func(tx *repository.Tx) error {
		post, err := tx.Posts.Get(ctx, postID)
		if err != nil {
			return err
		}
		if post.Creator.ID != callerID {
			return models.NewForbiddenError("Not authorized!")
		}
		if err := tx.Users.RemovePost(ctx, callerID, postID); err != nil {
			return err
		}
		if err := tx.Posts.Delete(ctx, postID); err != nil {
			return err
		}
		deleted = post
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, postID)
	s.releaseImage(ctx, deleted.ImageURL)
	s.afterMutation(ctx, ActionDelete, postID, map[string]string{"postId": postID}, fmt.Sprintf("Post '%s' deleted.", deleted.Title))
	return nil
}

func (s *FeedService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// releaseImage detaches from ctx cancellation so cleanup still runs after a timeout.
func (s *FeedService) releaseImage(ctx context.Context, ref string) {
	if ref == "" || s.images == nil {
		return
	}
	s.images.Release(context.WithoutCancel(ctx), ref)
}

// invalidate evicts the cached post. It runs after commit and before the old
// image is released, so no cached snapshot outlives the file it points to.
func (s *FeedService) invalidate(ctx context.Context, postID string) {
	s.invalidations.Add(1)
	if s.cache != nil {
		s.cache.Delete(context.WithoutCancel(ctx), postID)
	}
}

func (s *FeedService) afterMutation(ctx context.Context, action, postID string, payload interface{}, message string) {
	ctx = context.WithoutCancel(ctx)

	metrics.PostMutationsTotal.WithLabelValues(action).Inc()
	recordEvent(ctx, s.events, "post."+action, "info", message, &postID)
	if s.notifier != nil {
		s.notifier.Publish(action, payload)
	}
	log.Info().Str("action", action).Str("post_id", postID).Msg("Post mutated")
}
