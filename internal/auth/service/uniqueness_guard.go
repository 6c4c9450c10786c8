package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	commonerrors "github.com/microblog-go/microblog/internal/common/errors"
	userdomain "github.com/microblog-go/microblog/internal/user/domain"
	userrepo "github.com/microblog-go/microblog/internal/user/repository"
)

const (
	FieldUsername = "username"
	FieldEmail    = "email"
)

var ErrDuplicateIdentifier = commonerrors.NewDomainError(
	"DUPLICATE_IDENTIFIER",
	commonerrors.CategoryConflict,
	http.StatusConflict,
	"identifier already in use",
)

// DuplicateIdentifierError names the field that collided with an existing
// user.
type DuplicateIdentifierError struct {
	Field string
}

func (e *DuplicateIdentifierError) Error() string {
	return e.Field + " already in use"
}

func (e *DuplicateIdentifierError) Unwrap() error {
	return ErrDuplicateIdentifier
}

// Message is the text shown next to the form field.
func (e *DuplicateIdentifierError) Message() string {
	if e.Field == FieldEmail {
		return "Please use a different email address."
	}
	return "Please use a different username."
}

func AsDuplicateIdentifier(err error) (*DuplicateIdentifierError, bool) {
	var dup *DuplicateIdentifierError
	if errors.As(err, &dup) {
		return dup, true
	}
	return nil, false
}

// UniquenessGuard checks usernames and emails against stored users before
// a write. It is advisory: two concurrent registrations can both pass, and
// the users table unique constraints reject the second insert.
type UniquenessGuard struct {
	repo userrepo.Repository
}

func NewUniquenessGuard(repo userrepo.Repository) *UniquenessGuard {
	return &UniquenessGuard{repo: repo}
}

func (g *UniquenessGuard) UsernameAvailable(ctx context.Context, candidate string) (bool, error) {
	return g.available(ctx, userrepo.FieldUsername, candidate)
}

func (g *UniquenessGuard) EmailAvailable(ctx context.Context, candidate string) (bool, error) {
	return g.available(ctx, userrepo.FieldEmail, candidate)
}

func (g *UniquenessGuard) available(ctx context.Context, field userrepo.Field, candidate string) (bool, error) {
	_, err := g.repo.FindBy(ctx, field, strings.TrimSpace(candidate))
	if err == nil {
		return false, nil
	}
	if errors.Is(err, userrepo.ErrUserNotFound) {
		return true, nil
	}
	return false, newDatabaseError("failed to check "+string(field)+" availability", err)
}

// CheckRegistration reports the first colliding field, username before
// email.
func (g *UniquenessGuard) CheckRegistration(ctx context.Context, username, email string) error {
	ok, err := g.UsernameAvailable(ctx, username)
	if err != nil {
		return err
	}
	if !ok {
		return &DuplicateIdentifierError{Field: FieldUsername}
	}

	ok, err = g.EmailAvailable(ctx, email)
	if err != nil {
		return err
	}
	if !ok {
		return &DuplicateIdentifierError{Field: FieldEmail}
	}
	return nil
}

// CheckUsernameChange allows a user to keep their current username.
func (g *UniquenessGuard) CheckUsernameChange(ctx context.Context, current userdomain.User, candidate string) error {
	if strings.TrimSpace(candidate) == current.Username {
		return nil
	}
	ok, err := g.UsernameAvailable(ctx, candidate)
	if err != nil {
		return err
	}
	if !ok {
		return &DuplicateIdentifierError{Field: FieldUsername}
	}
	return nil
}

// duplicateFromRepo maps the repository's unique-constraint errors onto
// DuplicateIdentifierError.
func duplicateFromRepo(err error) (*DuplicateIdentifierError, bool) {
	switch {
	case errors.Is(err, userrepo.ErrUsernameAlreadyExists):
		return &DuplicateIdentifierError{Field: FieldUsername}, true
	case errors.Is(err, userrepo.ErrEmailAlreadyExists):
		return &DuplicateIdentifierError{Field: FieldEmail}, true
	}
	return nil, false
}
