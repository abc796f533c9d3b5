package models

// ReactionEntry is the aggregate state of one reaction kind on one message,
// as seen by the user who fetched it.
type ReactionEntry struct {
	ReactID           int   `json:"react_id"`
	UIDs              []int `json:"u_ids"`
	IsThisUserReacted bool  `json:"is_this_user_reacted"`
}

// ReactionList holds at most one entry per react id for a single message.
type ReactionList []ReactionEntry

type ReactRequest struct {
	Token     string `json:"token"`
	MessageID int    `json:"message_id" validate:"required,gt=0"`
	ReactID   int    `json:"react_id" validate:"required,gt=0"`
}

// ReactionUpdatePayload is pushed to websocket clients after a react or unreact.
type ReactionUpdatePayload struct {
	MessageID int    `json:"message_id"`
	ChannelID int    `json:"channel_id"`
	ReactID   int    `json:"react_id"`
	UserID    int    `json:"u_id"`
	Action    string `json:"action"`
}
