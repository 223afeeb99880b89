// Package auth issues and verifies access and refresh tokens, hashes
// passwords and decides role based access.
package auth

import (
	"strings"

	"github.com/iliyamo/figure-api/internal/model"
)

// UserProfile is the reduced view of a user carried in access tokens and
// attached to authenticated requests.
type UserProfile struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

// ProfileFromUser builds the token profile of u.
func ProfileFromUser(u model.User) UserProfile {
	return UserProfile{
		ID:    u.ID,
		Email: u.Email,
		Name:  strings.TrimSpace(u.FirstName + " " + u.LastName),
		Role:  u.Role,
	}
}
