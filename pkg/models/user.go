package models

import "time"

// User is the public profile of an account, mirrored from the session on
// every authenticated request.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Image     *string   `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PublicProfile strips the email.
func (u *User) PublicProfile() PublicProfile {
	return PublicProfile{ID: u.ID, Name: u.Name, Image: u.Image}
}
