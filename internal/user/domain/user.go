package domain

import "time"

type ID string

type User struct {
	ID           ID
	Username     string
	Email        string
	PasswordHash string
	AboutMe      string
	LastSeen     time.Time
	CreatedAt    time.Time
}

// Identity is what request handlers see of the caller: either a loaded
// User or Anonymous.
type Identity interface {
	IsAuthenticated() bool
	SubjectID() ID
}

func (u *User) IsAuthenticated() bool {
	return u != nil && u.ID != ""
}

func (u *User) SubjectID() ID {
	if u == nil {
		return ""
	}
	return u.ID
}

type Anonymous struct{}

func (Anonymous) IsAuthenticated() bool { return false }
func (Anonymous) SubjectID() ID         { return "" }

// UserOf returns the User behind an authenticated identity.
func UserOf(ident Identity) (*User, bool) {
	u, ok := ident.(*User)
	if !ok || !u.IsAuthenticated() {
		return nil, false
	}
	return u, true
}
