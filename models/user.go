package models

import "time"

type User struct {
	ID           int       `json:"u_id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type UserResponse struct {
	ID          int    `json:"u_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Status      string `json:"status"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Status:      u.Status,
	}
}

type RegisterRequest struct {
	Username    string `json:"username" validate:"required,alphanum,min=3,max=20"`
	DisplayName string `json:"display_name" validate:"required,max=50"`
	Password    string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	UserID int    `json:"u_id"`
	Token  string `json:"token"`
}

type LogoutRequest struct {
	Token string `json:"token"`
}

type LogoutResponse struct {
	IsSuccess bool `json:"is_success"`
}
