package models

import "time"

// LoginRequest carries the credentials for a password login.
type LoginRequest struct {
	PhoneNumber string `json:"phone_number" example:"9876543210"`
	Password    string `json:"password"`
}

// LoginResponse is returned after a successful login. ExpiresAt is the
// server-issued token expiry and is the single value clients should persist
// and evaluate locally.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}
