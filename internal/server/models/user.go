// Package models holds the persistent entities of the server.
package models

import "time"

// User is an account row. PasswordHash is a bcrypt hash and never leaves
// the server; use View for anything sent to a client.
type User struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	FullName     string     `db:"full_name"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	LastLogin    *time.Time `db:"last_login"`
	IsActive     bool       `db:"is_active"`
}

// UserView is the sanitized representation returned by the API.
type UserView struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastLogin *time.Time `json:"last_login"`
	IsActive  bool       `json:"is_active"`
}

func (u *User) View() UserView {
	return UserView{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
		LastLogin: u.LastLogin,
		IsActive:  u.IsActive,
	}
}
