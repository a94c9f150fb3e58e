package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/feed-api/internal/models"
	"github.com/isdelr/feed-api/internal/repository"
	"github.com/isdelr/feed-api/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor for stored credentials.
const PasswordCost = 12

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	CreateUser(ctx context.Context, in SignupInput) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (models.User, error)
}

// SignupInput is the payload of a new registration.
type SignupInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=5"`
	Name     string `json:"name" validate:"required,max=100"`
}

// UserService provides business logic for user management.
type UserService struct {
	users *repository.UserRepository
	cost  int
}

// NewUserService creates a new UserService.
func NewUserService(users *repository.UserRepository) *UserService {
	return &UserService{users: users, cost: PasswordCost}
}

// CreateUser registers a new user, storing only a bcrypt hash of the password.
func (s *UserService) CreateUser(ctx context.Context, in SignupInput) (models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct("Validation failed.", in); err != nil {
		return models.User{}, err
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return models.User{}, models.NewConflictError("E-Mail address already exists!")
	} else if !models.HasCode(err, models.CodeNotFound) {
		return models.User{}, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return models.User{}, models.NewInternalError(err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(hashedPassword),
		Posts:        []string{},
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return models.User{}, err
	}

	// Return user without password hash
	user.PasswordHash = ""
	return user, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	user.PasswordHash = ""
	return user, err
}

// GetUserByEmail retrieves a single user by their email, including the password hash.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// VerifyPassword reports whether password matches the user's stored hash.
func (s *UserService) VerifyPassword(user models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// AuthenticateUser verifies a user's credentials.
func (s *UserService) AuthenticateUser(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return models.User{}, models.NewUnauthenticatedError("A user with this email could not be found.")
		}
		return models.User{}, err
	}

	if !s.VerifyPassword(user, password) {
		return models.User{}, models.NewUnauthenticatedError("Wrong password!")
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}
