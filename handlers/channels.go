package handlers

import (
	"net/http"
	"slackr-server/models"
	"slackr-server/store"
	"strconv"
	"strings"
)

type ChannelHandler struct {
	store *store.Store
}

func NewChannelHandler(s *store.Store) *ChannelHandler {
	return &ChannelHandler{store: s}
}

func (h *ChannelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateChannelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	userID, ok := authenticate(h.store, w, r, req.Token)
	if !ok {
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	// Sanitize channel name
	name := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(req.Name), " ", "-"))

	channel, err := h.store.CreateChannel(name, isPublic, userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.CreateChannelResponse{ChannelID: channel.ID})
}

func (h *ChannelHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req models.JoinChannelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	userID, ok := authenticate(h.store, w, r, req.Token)
	if !ok {
		return
	}

	if err := h.store.JoinChannel(req.ChannelID, userID); err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *ChannelHandler) Details(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticate(h.store, w, r, "")
	if !ok {
		return
	}
	channelID, err := strconv.Atoi(r.URL.Query().Get("channel_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid channel_id")
		return
	}

	channel, err := h.store.GetChannel(channelID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	member, err := h.store.IsMember(channelID, userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if !member {
		writeStoreError(w, r, store.ErrNotMember)
		return
	}

	users, err := h.store.GetChannelMembers(channelID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	details := models.ChannelWithMembers{Channel: *channel, Members: []models.UserResponse{}}
	for i := range users {
		details.Members = append(details.Members, users[i].ToResponse())
	}
	writeJSON(w, http.StatusOK, details)
}

// Messages returns one page of a channel with reacts computed for the caller.
func (h *ChannelHandler) Messages(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticate(h.store, w, r, "")
	if !ok {
		return
	}

	q := r.URL.Query()
	channelID, err := strconv.Atoi(q.Get("channel_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid channel_id")
		return
	}
	start := 0
	if s := q.Get("start"); s != "" {
		if start, err = strconv.Atoi(s); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start")
			return
		}
	}

	page, err := h.store.GetChannelMessages(channelID, userID, start)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// List returns the channels the caller belongs to.
func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticate(h.store, w, r, "")
	if !ok {
		return
	}
	channels, err := h.store.ListChannels(userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ChannelListResponse{Channels: channels})
}

func (h *ChannelHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	if _, ok := authenticate(h.store, w, r, ""); !ok {
		return
	}
	channels, err := h.store.ListAllChannels()
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ChannelListResponse{Channels: channels})
}
