// Package models defines the persisted domain types.
package models

import (
	"time"
)

// LoginType records how an account was created.
type LoginType string

const (
	LoginTypeLocal  LoginType = "local"
	LoginTypeGoogle LoginType = "google"
)

// User represents a user account.
type User struct {
	ID             string    `json:"id" db:"id"`
	Fullname       string    `json:"fullname" db:"fullname"`
	Username       string    `json:"username" db:"username"`
	Email          string    `json:"email" db:"email"`
	Bio            string    `json:"bio" db:"bio"`
	PasswordHash   string    `json:"-" db:"password_hash"`
	Gender         string    `json:"gender" db:"gender"`
	LoginType      LoginType `json:"loginType" db:"login_type"`
	ProfilePicture string    `json:"profilePicture" db:"profile_picture"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// UserView is the subset of a user that is safe to return to clients.
type UserView struct {
	ID             string `json:"id"`
	Fullname       string `json:"fullname"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Bio            string `json:"bio"`
	Gender         string `json:"gender"`
	ProfilePicture string `json:"profilePicture"`
}

// OAuthUserView is returned from the OAuth callback. It has no gender field.
type OAuthUserView struct {
	ID             string `json:"id"`
	Fullname       string `json:"fullname"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Bio            string `json:"bio"`
	ProfilePicture string `json:"profilePicture"`
}

// PublicView returns the client-facing view of u.
func (u *User) PublicView() UserView {
	return UserView{
		ID:             u.ID,
		Fullname:       u.Fullname,
		Username:       u.Username,
		Email:          u.Email,
		Bio:            u.Bio,
		Gender:         u.Gender,
		ProfilePicture: u.ProfilePicture,
	}
}

// OAuthView returns the view used by the OAuth callback response.
func (u *User) OAuthView() OAuthUserView {
	return OAuthUserView{
		ID:             u.ID,
		Fullname:       u.Fullname,
		Username:       u.Username,
		Email:          u.Email,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
	}
}
