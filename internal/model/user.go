package model

// Role names stored on users and carried in access tokens.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents an account record as stored in the `users` collection or
// table. Role is always assigned by the server. Credentials live in a
// separate UserCredentials record and are never serialized to clients.
//
// Fields:
//
//	ID: stable unique identifier (UUID string).
//	Username: optional unique handle.
//	Email: unique, lower-cased address.
//	FirstName: optional, 2..50 characters.
//	LastName: optional, 2..50 characters.
//	Role: USER or ADMIN.
type User struct {
	ID        string `json:"id" bson:"_id"`
	Username  string `json:"username,omitempty" bson:"username,omitempty"`
	Email     string `json:"email" bson:"email"`
	FirstName string `json:"firstName,omitempty" bson:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty" bson:"lastName,omitempty"`
	Role      string `json:"role" bson:"role"`

	// Relations, populated only by inclusion resolvers.
	Figures         []Figure         `json:"figures,omitempty" bson:"-"`
	UserCredentials *UserCredentials `json:"-" bson:"-"`
}

// UserCredentials holds the password hash for exactly one user.
type UserCredentials struct {
	ID       string `json:"id" bson:"_id"`
	UserID   string `json:"userId" bson:"userId"`
	Password string `json:"-" bson:"password"`
}

// RefreshToken maps an issued refresh token string to the user it was
// issued for. Rows are created on login and never deleted by the service.
type RefreshToken struct {
	ID           string `json:"id" bson:"_id"`
	UserID       string `json:"userId" bson:"userId"`
	RefreshToken string `json:"refreshToken" bson:"refreshToken"`
}
