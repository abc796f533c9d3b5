package handlers

import (
	"net/http"
	"slackr-server/models"
	"slackr-server/store"
	"strconv"
)

type MessageHandler struct {
	store *store.Store
	hub   *Hub
}

func NewMessageHandler(s *store.Store, hub *Hub) *MessageHandler {
	return &MessageHandler{store: s, hub: hub}
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	userID, ok := authenticate(h.store, w, r, req.Token)
	if !ok {
		return
	}

	msg, err := h.store.CreateMessage(req.ChannelID, userID, req.Message)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToChannel(msg.ChannelID, models.WSMessage{
			Type: models.WSTypeNewMessage,
			Payload: map[string]int{
				"channel_id": msg.ChannelID,
				"message_id": msg.MessageID,
			},
		})
	}

	writeJSON(w, http.StatusOK, models.SendMessageResponse{MessageID: msg.MessageID})
}

// Details returns one message with reacts computed for the caller.
func (h *MessageHandler) Details(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticate(h.store, w, r, "")
	if !ok {
		return
	}
	messageID, err := strconv.Atoi(r.URL.Query().Get("message_id"))
	if err != nil || messageID <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid message_id")
		return
	}

	msg, err := h.store.GetMessage(messageID, userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	member, err := h.store.IsMember(msg.ChannelID, userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if !member {
		writeStoreError(w, r, store.ErrNotMember)
		return
	}

	writeJSON(w, http.StatusOK, models.MessageDetails{Message: *msg, ChannelID: msg.ChannelID})
}

// Remove handles DELETE /message/remove.
func (h *MessageHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req models.MessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	userID, ok := authenticate(h.store, w, r, req.Token)
	if !ok {
		return
	}

	channelID, err := h.store.RemoveMessage(req.MessageID, userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	h.broadcast(models.WSTypeMessageRemove, models.MessageEventPayload{MessageID: req.MessageID, ChannelID: channelID})
	writeJSON(w, http.StatusOK, struct{}{})
}

// Edit handles PUT /message/edit. Editing to an empty message removes it.
func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req models.EditMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	userID, ok := authenticate(h.store, w, r, req.Token)
	if !ok {
		return
	}

	channelID, removed, err := h.store.EditMessage(req.MessageID, userID, req.Message)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	eventType := models.WSTypeMessageEdit
	if removed {
		eventType = models.WSTypeMessageRemove
	}
	h.broadcast(eventType, models.MessageEventPayload{MessageID: req.MessageID, ChannelID: channelID})
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *MessageHandler) Pin(w http.ResponseWriter, r *http.Request) {
	h.setPinned(w, r, true)
}

func (h *MessageHandler) Unpin(w http.ResponseWriter, r *http.Request) {
	h.setPinned(w, r, false)
}

func (h *MessageHandler) setPinned(w http.ResponseWriter, r *http.Request, pinned bool) {
	var req models.MessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	userID, ok := authenticate(h.store, w, r, req.Token)
	if !ok {
		return
	}

	apply := h.store.UnpinMessage
	if pinned {
		apply = h.store.PinMessage
	}
	channelID, err := apply(req.MessageID, userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	h.broadcast(models.WSTypeMessagePin, models.MessageEventPayload{
		MessageID: req.MessageID,
		ChannelID: channelID,
		IsPinned:  pinned,
	})
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *MessageHandler) broadcast(eventType string, payload models.MessageEventPayload) {
	if h.hub == nil {
		return
	}
	h.hub.BroadcastToChannel(payload.ChannelID, models.WSMessage{Type: eventType, Payload: payload})
}
