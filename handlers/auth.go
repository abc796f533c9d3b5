package handlers

import (
	"errors"
	"net/http"
	"slackr-server/middleware"
	"slackr-server/models"
	"slackr-server/store"

	"github.com/rs/zerolog"
)

type AuthHandler struct {
	store *store.Store
}

func NewAuthHandler(s *store.Store) *AuthHandler {
	return &AuthHandler{store: s}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.store.CreateUser(req.Username, req.DisplayName, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			writeError(w, http.StatusConflict, "Username already taken")
			return
		}
		writeStoreError(w, r, err)
		return
	}

	token, err := middleware.GenerateToken(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	zerolog.Ctx(r.Context()).Info().Int("u_id", user.ID).Str("username", user.Username).Msg("user registered")
	writeJSON(w, http.StatusOK, models.AuthResponse{UserID: user.ID, Token: token})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !h.store.ValidatePassword(user, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.store.UpdateUserStatus(user.ID, "online")

	token, err := middleware.GenerateToken(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, models.AuthResponse{UserID: user.ID, Token: token})
}

// Logout revokes the token it is called with. An already invalid token
// reports is_success false rather than an error.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req models.LogoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	claims, err := resolveToken(h.store, middleware.RequestToken(r, req.Token))
	if errors.Is(err, errInvalidToken) {
		writeJSON(w, http.StatusOK, models.LogoutResponse{IsSuccess: false})
		return
	}
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		writeJSON(w, http.StatusOK, models.LogoutResponse{IsSuccess: false})
		return
	}

	if err := h.store.RevokeToken(claims.ID, claims.UserID, claims.ExpiresAt.Time); err != nil {
		writeStoreError(w, r, err)
		return
	}
	h.store.UpdateUserStatus(claims.UserID, "offline")

	zerolog.Ctx(r.Context()).Info().Int("u_id", claims.UserID).Msg("user logged out")
	writeJSON(w, http.StatusOK, models.LogoutResponse{IsSuccess: true})
}
