package models

type Message struct {
	MessageID   int          `json:"message_id"`
	ChannelID   int          `json:"-"`
	UserID      int          `json:"u_id"`
	Message     string       `json:"message"`
	TimeCreated int64        `json:"time_created"`
	IsPinned    bool         `json:"is_pinned"`
	Reacts      ReactionList `json:"reacts"`
}

type SendMessageRequest struct {
	Token     string `json:"token"`
	ChannelID int    `json:"channel_id" validate:"required,gt=0"`
	Message   string `json:"message" validate:"required,max=1000"`
}

type SendMessageResponse struct {
	MessageID int `json:"message_id"`
}

type ChannelMessagesResponse struct {
	Messages []Message `json:"messages"`
	Start    int       `json:"start"`
	End      int       `json:"end"`
}

// MessageDetails is a single message together with its channel.
type MessageDetails struct {
	Message
	ChannelID int `json:"channel_id"`
}

type MessageRequest struct {
	Token     string `json:"token"`
	MessageID int    `json:"message_id" validate:"required,gt=0"`
}

// EditMessageRequest replaces a message's text. An empty message removes it.
type EditMessageRequest struct {
	Token     string `json:"token"`
	MessageID int    `json:"message_id" validate:"required,gt=0"`
	Message   string `json:"message" validate:"max=1000"`
}

// MessageEventPayload is sent with message_edit, message_remove and
// message_pin events.
type MessageEventPayload struct {
	MessageID int  `json:"message_id"`
	ChannelID int  `json:"channel_id"`
	IsPinned  bool `json:"is_pinned,omitempty"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	WSTypeWelcome        = "welcome"
	WSTypeNewMessage     = "new_message"
	WSTypeReactionUpdate = "reaction_update"
	WSTypeMessageEdit    = "message_edit"
	WSTypeMessageRemove  = "message_remove"
	WSTypeMessagePin     = "message_pin"
	WSTypeUserOnline     = "user_online"
	WSTypeUserOffline    = "user_offline"
)
