package models

import "time"

type User struct {
	UserID          string     `json:"userId"`
	PasswordHash    string     `json:"-"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty"`
	TotalAdventures int64      `json:"totalAdventures"`
}

// UserFields is a partial user update; nil fields are left untouched.
type UserFields struct {
	PasswordHash    *string
	LastLoginAt     *time.Time
	TotalAdventures *int64
}
