package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/webform-converter/internal/config"
)

// TokenRequest is the body of POST /auth/token.
type TokenRequest struct {
	Password string `json:"password" validate:"required,max=256"`
}

// TokenResponse carries an issued admin token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthHandler exchanges the admin password for a bearer token.
type AuthHandler struct {
	passwords  *config.PasswordConfig
	jwtService *JWTService
	validator  *validator.Validate
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(passwords *config.PasswordConfig, jwtService *JWTService) *AuthHandler {
	return &AuthHandler{
		passwords:  passwords,
		jwtService: jwtService,
		validator:  validator.New(),
	}
}

// IssueToken handles POST /auth/token.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &ErrValidation{Field: "body", Message: "invalid JSON"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		writeError(w, validationError(err))
		return
	}

	if !h.passwords.AdminEnabled() {
		writeError(w, &ErrAuthDisabled{})
		return
	}
	if !h.passwords.VerifyAdminPassword(req.Password) {
		log.Printf("[AUTH] Rejected admin password from %s", r.RemoteAddr)
		writeError(w, &ErrInvalidCredentials{})
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken(AdminSubject)
	if err != nil {
		writeError(w, fmt.Errorf("failed to generate token: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Token: token, ExpiresAt: expiresAt})
}

// validationError converts the first validator error into an ErrValidation.
func validationError(err error) *ErrValidation {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		ve := validationErrors[0]
		return &ErrValidation{Field: ve.Field(), Message: ve.Tag()}
	}
	return &ErrValidation{Field: "request", Message: "invalid request"}
}
