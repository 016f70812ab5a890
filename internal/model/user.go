package model

// A User represents an account owning entries, media and shares.
type User struct {
	Base `msgpack:",inline" storm:"inline"`

	Email    string `json:"email"    msgpack:"email" storm:"unique"`
	Password string `json:"-"        msgpack:"password,omitempty"`

	// PasswordUpdatedAt invalidates sessions issued before the last
	// password change.
	PasswordUpdatedAt int64 `json:"-" msgpack:"password_updated_at"`
}

// NewUser returns a new user with default params.
func NewUser(email string) *User {
	return &User{
		Email: email,
	}
}
