package users

import "time"

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	AvatarFileID string    `json:"avatar_file_id,omitempty"`
	WebhookURL   string    `json:"webhook_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary is the reduced view used in listings and nested references.
type Summary struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	AvatarFileID string `json:"avatar_file_id,omitempty"`
}

// Summary returns the reduced view of a user.
func (u User) Summary() Summary {
	return Summary{ID: u.ID, Username: u.Username, AvatarFileID: u.AvatarFileID}
}

// ProfileUpdate carries the fields a user may change on their own profile.
type ProfileUpdate struct {
	Email        *string `json:"email,omitempty"`
	FirstName    *string `json:"first_name,omitempty"`
	LastName     *string `json:"last_name,omitempty"`
	AvatarFileID *string `json:"avatar_file_id,omitempty"`
	WebhookURL   *string `json:"webhook_url,omitempty"`
}
