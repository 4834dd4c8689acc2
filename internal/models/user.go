package models

import "time"

// User is an account row. Only the columns the messaging core needs live here.
type User struct {
	ID           int       `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Nickname     string    `db:"nickname" json:"nickname"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// PublicUser is the profile shape embedded in API responses.
type PublicUser struct {
	ID       int    `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

// Public strips credentials from the account row.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Nickname: u.Nickname}
}
