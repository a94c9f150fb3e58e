package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/isdelr/feed-api/internal/models"
	"github.com/isdelr/feed-api/internal/services"
	"github.com/rs/zerolog/log"
)

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(user models.User) (string, error)
}

// UserHandler handles sign-up and login.
type UserHandler struct {
	service services.UserServiceProvider
	tokens  TokenIssuer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, tokens TokenIssuer) *UserHandler {
	return &UserHandler{service: service, tokens: tokens}
}

// AuthPayload defines the structure for login requests.
type AuthPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup handles new user registration.
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload services.SignupInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, r, models.NewValidationError("Invalid request body."))
		return
	}

	user, err := h.service.CreateUser(r.Context(), payload)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	log.Info().Str("user_id", user.ID).Msg("User signed up")
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User created!",
		"userId":  user.ID,
	})
}

// Login handles user authentication and JWT generation.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload AuthPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, r, models.NewValidationError("Invalid request body."))
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), payload.Email, payload.Password)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		WriteError(w, r, models.NewInternalError(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":  token,
		"userId": user.ID,
	})
}
