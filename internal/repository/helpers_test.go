package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/feed-api/internal/database"
	"github.com/isdelr/feed-api/internal/models"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "feed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return NewStore(db), db
}

func seedUser(t *testing.T, store *Store, name string) models.User {
	t.Helper()
	user := models.User{
		ID:           uuid.New().String(),
		Email:        name + "@example.com",
		Name:         name,
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.Users.Create(context.Background(), &user))
	return user
}

func seedPost(t *testing.T, store *Store, owner models.User, title string) models.Post {
	t.Helper()
	post := models.Post{
		Title:    title,
		Content:  "content of " + title,
		ImageURL: "images/" + title + ".png",
		Creator:  models.Creator{ID: owner.ID},
	}
	ctx := context.Background()
	require.NoError(t, store.WithTx(ctx, func(tx *Tx) error {
		if err := tx.Posts.Create(ctx, &post); err != nil {
			return err
		}
		return tx.Users.AppendPost(ctx, owner.ID, post.ID)
	}))
	return post
}
