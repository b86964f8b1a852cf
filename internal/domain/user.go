package domain

import "time"

// User is the signed-in account. Callers treat a nil *User as "no session".
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Credentials carries sign-in and sign-up input.
type Credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	Username string `validate:"omitempty,max=64"`
}
