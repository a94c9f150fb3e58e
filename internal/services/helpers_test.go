package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/isdelr/feed-api/internal/database"
	"github.com/isdelr/feed-api/internal/models"
	"github.com/isdelr/feed-api/internal/repository"
	"github.com/stretchr/testify/require"
)

// imageStoreSpy records released image references.
type imageStoreSpy struct {
	mu       sync.Mutex
	released []string
}

func (s *imageStoreSpy) Release(_ context.Context, ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = append(s.released, ref)
}

func (s *imageStoreSpy) Released() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.released...)
}

// notifierSpy records published actions.
type notifierSpy struct {
	mu      sync.Mutex
	actions []string
}

func (n *notifierSpy) Publish(action string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.actions = append(n.actions, action)
}

// postCacheStub is an in-memory PostCache. beforeSet, when set, runs once
// ahead of the next Set.
type postCacheStub struct {
	mu        sync.Mutex
	posts     map[string]models.Post
	beforeSet func()
}

func newPostCacheStub() *postCacheStub {
	return &postCacheStub{posts: map[string]models.Post{}}
}

func (c *postCacheStub) Get(_ context.Context, id string) (models.Post, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.posts[id]
	return p, ok
}

func (c *postCacheStub) Set(_ context.Context, p models.Post) {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.posts[p.ID] = p
}

func (c *postCacheStub) Delete(_ context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.posts, id)
}

type feedFixture struct {
	store    *repository.Store
	users    *UserService
	events   *EventService
	images   *imageStoreSpy
	notifier *notifierSpy
	cache    *postCacheStub
	feed     *FeedService
}

func setupFeed(t *testing.T) *feedFixture {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "feed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	f := &feedFixture{
		store:    repository.NewStore(db),
		events:   NewEventService(db),
		images:   &imageStoreSpy{},
		notifier: &notifierSpy{},
		cache:    newPostCacheStub(),
	}
	f.users = NewUserService(f.store.Users)
	f.users.cost = 4 // bcrypt.MinCost keeps tests fast
	f.feed = NewFeedService(f.store, f.images, f.events, f.cache, f.notifier, 0)
	return f
}

func (f *feedFixture) signup(t *testing.T, name string) models.User {
	t.Helper()
	user, err := f.users.CreateUser(context.Background(), SignupInput{
		Email:    name + "@example.com",
		Password: "pw123456",
		Name:     name,
	})
	require.NoError(t, err)
	return user
}

func (f *feedFixture) createPost(t *testing.T, owner models.User, title, image string) models.Post {
	t.Helper()
	post, err := f.feed.CreatePost(context.Background(), owner.ID, CreatePostInput{
		Title:    title,
		Content:  "content",
		ImageURL: image,
	})
	require.NoError(t, err)
	return post
}
