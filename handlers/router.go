package handlers

import (
	"net/http"
	"slackr-server/middleware"
	"slackr-server/store"

	"github.com/rs/cors"
)

// NewRouter wires every slackr endpoint. hub may be nil, in which case no
// realtime events are sent.
func NewRouter(s *store.Store, hub *Hub, corsOrigins []string) http.Handler {
	authHandler := NewAuthHandler(s)
	channelHandler := NewChannelHandler(s)
	messageHandler := NewMessageHandler(s, hub)
	reactionHandler := NewReactionHandler(s, hub)
	userHandler := NewUserHandler(s)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Auth
	mux.HandleFunc("POST /auth/register", authHandler.Register)
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.HandleFunc("POST /auth/logout", authHandler.Logout)

	// Users
	mux.HandleFunc("GET /user/profile", userHandler.Profile)

	// Channels
	mux.HandleFunc("POST /channels/create", channelHandler.Create)
	mux.HandleFunc("GET /channels/list", channelHandler.List)
	mux.HandleFunc("GET /channels/listall", channelHandler.ListAll)
	mux.HandleFunc("POST /channel/join", channelHandler.Join)
	mux.HandleFunc("GET /channel/details", channelHandler.Details)
	mux.HandleFunc("GET /channel/messages", channelHandler.Messages)

	// Messages
	mux.HandleFunc("POST /message/send", messageHandler.Send)
	mux.HandleFunc("GET /message/details", messageHandler.Details)
	mux.HandleFunc("PUT /message/edit", messageHandler.Edit)
	mux.HandleFunc("DELETE /message/remove", messageHandler.Remove)
	mux.HandleFunc("POST /message/pin", messageHandler.Pin)
	mux.HandleFunc("POST /message/unpin", messageHandler.Unpin)

	// Reactions
	mux.HandleFunc("POST /message/react", reactionHandler.React)
	mux.HandleFunc("POST /message/unreact", reactionHandler.Unreact)

	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWebSocket)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
	})

	return middleware.Logging(c.Handler(mux))
}
