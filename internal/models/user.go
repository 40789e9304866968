package models

import (
	"time"
)

// User is a customer account. A user owns zero or more devices and
// authenticates with a phone number and password.
type User struct {
	Base
	// UUID is assigned once at registration and never changes. Devices keep a
	// denormalized copy of it in their owner snapshot.
	UUID         string    `gorm:"uniqueIndex" json:"uuid" example:"4902c991-3dd1-49a6-9f26-d82496c80aff"`
	FullName     string    `json:"full_name" example:"Asha Verma"`
	PhoneNumber  string    `gorm:"uniqueIndex" json:"phone_number" example:"9876543210"`
	Location     string    `json:"location" example:"Pune"`
	PasswordHash string    `json:"-"`
	RegisteredAt time.Time `json:"registered_at"`
}

// AddUser is the information needed to register a new User.
type AddUser struct {
	FullName    string `json:"full_name" example:"Asha Verma"`
	PhoneNumber string `json:"phone_number" example:"9876543210"`
	Password    string `json:"password"`
	Location    string `json:"location" example:"Pune"`
}

// UpdateUser is the information needed to update a User. Empty fields are
// left untouched; the password is re-hashed only when a new one is supplied.
type UpdateUser struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
	Location    string `json:"location"`
}

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	UUID string `json:"uuid" example:"4902c991-3dd1-49a6-9f26-d82496c80aff"`
}
