package handlers

import (
	"net/http"
	"slackr-server/models"
	"slackr-server/store"

	"github.com/rs/zerolog"
)

type ReactionHandler struct {
	store *store.Store
	hub   *Hub
}

func NewReactionHandler(s *store.Store, hub *Hub) *ReactionHandler {
	return &ReactionHandler{store: s, hub: hub}
}

// React handles POST /message/react.
func (h *ReactionHandler) React(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "react", h.store.React)
}

// Unreact handles POST /message/unreact.
func (h *ReactionHandler) Unreact(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "unreact", h.store.Unreact)
}

func (h *ReactionHandler) mutate(w http.ResponseWriter, r *http.Request, action string, apply func(messageID, reactID, userID int) (int, error)) {
	var req models.ReactRequest
	if !decodeBody(w, r, &req) {
		return
	}
	userID, ok := authenticate(h.store, w, r, req.Token)
	if !ok {
		return
	}

	channelID, err := apply(req.MessageID, req.ReactID, userID)
	if err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).
			Str("action", action).
			Int("message_id", req.MessageID).
			Int("react_id", req.ReactID).
			Msg("reaction rejected")
		writeStoreError(w, r, err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToChannel(channelID, models.WSMessage{
			Type: models.WSTypeReactionUpdate,
			Payload: models.ReactionUpdatePayload{
				MessageID: req.MessageID,
				ChannelID: channelID,
				ReactID:   req.ReactID,
				UserID:    userID,
				Action:    action,
			},
		})
	}

	writeJSON(w, http.StatusOK, struct{}{})
}
