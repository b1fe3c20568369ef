package models

import "time"

// UserID identifies a contract owner.
type UserID int64

// User owns contracts and supplies the contact fields the dispatcher
// resolves at delivery time. Email and phone may hold comma-separated
// lists; the contact resolver splits them.
type User struct {
	ID          UserID    `json:"id"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	FullName    string    `json:"full_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateUserRequest is the payload for registering a contract owner.
type CreateUserRequest struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	FullName    string `json:"full_name"`
}
