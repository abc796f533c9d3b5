package handlers

import (
	"net/http"
	"slackr-server/store"
	"strconv"
)

type UserHandler struct {
	store *store.Store
}

func NewUserHandler(s *store.Store) *UserHandler {
	return &UserHandler{store: s}
}

// Profile handles GET /user/profile?u_id=.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	if _, ok := authenticate(h.store, w, r, ""); !ok {
		return
	}
	userID, err := strconv.Atoi(r.URL.Query().Get("u_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid u_id")
		return
	}

	user, err := h.store.GetUserByID(userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user.ToResponse())
}
