package entities

import "strings"

// User is a local user profile. The profile is the system of record for
// the application role; the external identity directory only handles
// credentials.
type User struct {
	Keys

	UserID    string `dynamodbav:"user_id" json:"user_id"`
	Email     string `dynamodbav:"email" json:"email"`
	Name      string `dynamodbav:"name" json:"name"`
	Role      string `dynamodbav:"role" json:"role"`
	Active    bool   `dynamodbav:"active" json:"active"`
	CreatedAt string `dynamodbav:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt string `dynamodbav:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// UserKey returns the primary key of a user profile.
func UserKey(userID string) (pk, sk string) {
	return UserPrefix + userID, SKProfile
}

// SetKeys populates the key block. GSI1 orders users by email for
// listing and lookup.
func (u *User) SetKeys() {
	u.PK, u.SK = UserKey(u.UserID)
	u.GSI1PK = CollectionUsers
	u.GSI1SK = strings.ToLower(u.Email)
}
