package models

import "time"

type Channel struct {
	ID        int       `json:"channel_id"`
	Name      string    `json:"name"`
	IsPublic  bool      `json:"is_public"`
	CreatedBy int       `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateChannelRequest struct {
	Token    string `json:"token"`
	Name     string `json:"name" validate:"required,max=20"`
	IsPublic *bool  `json:"is_public,omitempty"`
}

type CreateChannelResponse struct {
	ChannelID int `json:"channel_id"`
}

type JoinChannelRequest struct {
	Token     string `json:"token"`
	ChannelID int    `json:"channel_id" validate:"required,gt=0"`
}

type ChannelWithMembers struct {
	Channel
	Members []UserResponse `json:"members"`
}

type ChannelSummary struct {
	ID   int    `json:"channel_id"`
	Name string `json:"name"`
}

type ChannelListResponse struct {
	Channels []ChannelSummary `json:"channels"`
}
