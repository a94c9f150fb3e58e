package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/isdelr/feed-api/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// UserRepository persists users and their ordered post lists.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. A duplicate email yields a CONFLICT error.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.Email, user.Name, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("E-Mail address already exists!")
		}
		return fmt.Errorf("error inserting user: %w", err)
	}
	return nil
}

// GetByEmail retrieves a user by email, including the password hash.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?", email)
	return r.scanUser(ctx, row)
}

// GetByID retrieves a user by id, including the password hash.
func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?", id)
	return r.scanUser(ctx, row)
}

// AppendPost adds postID to the end of the user's post list.
func (r *UserRepository) AppendPost(ctx context.Context, userID, postID string) error {
	_, err := r.db.ExecContext(ctx, "INSERT INTO user_posts (user_id, post_id) VALUES (?, ?)", userID, postID)
	if err != nil {
		return fmt.Errorf("error appending post %s to user %s: %w", postID, userID, err)
	}
	return nil
}

// RemovePost drops postID from the user's post list. Removing an absent entry is not an error.
func (r *UserRepository) RemovePost(ctx context.Context, userID, postID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM user_posts WHERE user_id = ? AND post_id = ?", userID, postID)
	if err != nil {
		return fmt.Errorf("error removing post %s from user %s: %w", postID, userID, err)
	}
	return nil
}

// PostIDs returns the user's post ids in the order they were added.
func (r *UserRepository) PostIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT post_id FROM user_posts WHERE user_id = ? ORDER BY seq", userID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts of user %s: %w", userID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *UserRepository) scanUser(ctx context.Context, row *sql.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, models.NewNotFoundError("User not found.")
		}
		return models.User{}, fmt.Errorf("error scanning user: %w", err)
	}

	user.Posts, err = r.PostIDs(ctx, user.ID)
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
