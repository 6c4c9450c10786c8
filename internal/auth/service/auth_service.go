package service

import (
	"context"
	"errors"

	"github.com/microblog-go/microblog/internal/common/clock"
	commoncrypto "github.com/microblog-go/microblog/internal/common/crypto"
	"github.com/microblog-go/microblog/internal/common/logger"
	"github.com/microblog-go/microblog/internal/common/validation"
	userdomain "github.com/microblog-go/microblog/internal/user/domain"
	userrepo "github.com/microblog-go/microblog/internal/user/repository"
)

type AuthServiceDeps struct {
	Repo        userrepo.Repository
	Credentials *CredentialStore
	Guard       *UniquenessGuard
	IDGenerator commoncrypto.IDGenerator
	Clock       clock.Clock
	Log         *logger.Logger
}

// AuthService runs the registration, login and profile edit flows.
type AuthService struct {
	repo        userrepo.Repository
	credentials *CredentialStore
	guard       *UniquenessGuard
	idGenerator commoncrypto.IDGenerator
	clock       clock.Clock
	log         *logger.Logger
}

func NewAuthService(deps AuthServiceDeps) *AuthService {
	c := deps.Clock
	if c == nil {
		c = clock.NewRealClock()
	}
	guard := deps.Guard
	if guard == nil {
		guard = NewUniquenessGuard(deps.Repo)
	}
	return &AuthService{
		repo:        deps.Repo,
		credentials: deps.Credentials,
		guard:       guard,
		idGenerator: deps.IDGenerator,
		clock:       c,
		log:         deps.Log,
	}
}

func (s *AuthService) Credentials() *CredentialStore {
	return s.credentials
}

func (s *AuthService) Register(ctx context.Context, form RegistrationForm) (userdomain.User, error) {
	form.normalize()
	s.log.WithFields(ctx, logger.Fields{
		"username": form.Username,
		"action":   "register_attempt",
	}).Info("register attempt")

	if err := validation.Struct(form); err != nil {
		incrementRegistrations("invalid")
		s.log.WithFields(ctx, logger.Fields{
			"username": form.Username,
			"action":   "register_validation_failed",
		}).Warnf("register validation failed: %v", err)
		return userdomain.User{}, err
	}

	if err := s.guard.CheckRegistration(ctx, form.Username, form.Email); err != nil {
		if dup, ok := AsDuplicateIdentifier(err); ok {
			incrementRegistrations("duplicate")
			s.log.WithFields(ctx, logger.Fields{
				"username": form.Username,
				"field":    dup.Field,
				"action":   "register_duplicate_identifier",
			}).Warn("register failed: identifier in use")
			return userdomain.User{}, dup
		}
		incrementRegistrations("error")
		s.log.WithFields(ctx, logger.Fields{
			"username": form.Username,
			"action":   "register_guard_failed",
		}).Errorf("register failed: %v", err)
		return userdomain.User{}, err
	}

	hash, err := s.credentials.SetPassword(form.Password)
	if err != nil {
		if _, ok := validation.AsValidationError(err); ok {
			incrementRegistrations("invalid")
			return userdomain.User{}, err
		}
		incrementRegistrations("error")
		s.log.WithFields(ctx, logger.Fields{
			"username": form.Username,
			"action":   "register_hash_failed",
		}).Errorf("register failed: password hash error: %v", err)
		return userdomain.User{}, newInternalError("failed to hash password", err)
	}

	id, err := s.idGenerator.NewID()
	if err != nil {
		incrementRegistrations("error")
		s.log.WithFields(ctx, logger.Fields{
			"username": form.Username,
			"action":   "register_id_generation_failed",
		}).Errorf("register failed: id generation error: %v", err)
		return userdomain.User{}, newInternalError("failed to generate user id", err)
	}

	now := s.clock.Now()
	user := userdomain.User{
		ID:           userdomain.ID(id),
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: hash,
		LastSeen:     now,
		CreatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if dup, ok := duplicateFromRepo(err); ok {
			incrementRegistrations("duplicate")
			s.log.WithFields(ctx, logger.Fields{
				"username": form.Username,
				"field":    dup.Field,
				"action":   "register_unique_violation",
			}).Warn("register failed: concurrent registration won the unique constraint")
			return userdomain.User{}, dup
		}
		incrementRegistrations("error")
		s.log.WithFields(ctx, logger.Fields{
			"username": form.Username,
			"action":   "register_create_failed",
		}).Errorf("register failed: %v", err)
		return userdomain.User{}, newDatabaseError("failed to create user", err)
	}

	incrementRegistrations("success")
	s.log.WithFields(ctx, logger.Fields{
		"username": user.Username,
		"user_id":  string(user.ID),
		"action":   "register_success",
	}).Info("register success")
	return user, nil
}

// Login returns the user whose credentials match. An unknown username and
// a wrong password both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, form LoginForm) (userdomain.User, error) {
	form.normalize()
	s.log.WithFields(ctx, logger.Fields{
		"username": form.Username,
		"action":   "login_attempt",
	}).Info("login attempt")

	if err := validation.Struct(form); err != nil {
		incrementLoginAttempts("invalid")
		return userdomain.User{}, err
	}

	user, err := s.repo.FindBy(ctx, userrepo.FieldUsername, form.Username)
	if err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			incrementLoginAttempts("invalid_credentials")
			s.log.WithFields(ctx, logger.Fields{
				"username": form.Username,
				"action":   "login_user_not_found",
			}).Warn("login failed: invalid credentials")
			return userdomain.User{}, ErrInvalidCredentials
		}
		incrementLoginAttempts("error")
		s.log.WithFields(ctx, logger.Fields{
			"username": form.Username,
			"action":   "login_fetch_failed",
		}).Errorf("login failed: %v", err)
		return userdomain.User{}, newDatabaseError("failed to fetch user", err)
	}

	if !s.credentials.CheckPassword(form.Password, user.PasswordHash) {
		incrementLoginAttempts("invalid_credentials")
		s.log.WithFields(ctx, logger.Fields{
			"username": form.Username,
			"action":   "login_invalid_password",
		}).Warn("login failed: invalid credentials")
		return userdomain.User{}, ErrInvalidCredentials
	}

	incrementLoginAttempts("success")
	s.log.WithFields(ctx, logger.Fields{
		"username": user.Username,
		"user_id":  string(user.ID),
		"action":   "login_success",
	}).Info("login success")
	return user, nil
}

// UpdateProfile changes the username and about_me of current and returns
// the stored result.
func (s *AuthService) UpdateProfile(ctx context.Context, current userdomain.User, form EditProfileForm) (userdomain.User, error) {
	form.normalize()
	if err := validation.Struct(form); err != nil {
		return current, err
	}

	if err := s.guard.CheckUsernameChange(ctx, current, form.Username); err != nil {
		if dup, ok := AsDuplicateIdentifier(err); ok {
			s.log.WithFields(ctx, logger.Fields{
				"user_id": string(current.ID),
				"action":  "profile_username_taken",
			}).Warn("profile update failed: username in use")
			return current, dup
		}
		return current, err
	}

	updated := current
	updated.Username = form.Username
	updated.AboutMe = form.AboutMe

	if err := s.repo.Update(ctx, updated); err != nil {
		if dup, ok := duplicateFromRepo(err); ok {
			return current, dup
		}
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(current.ID),
			"action":  "profile_update_failed",
		}).Errorf("profile update failed: %v", err)
		return current, newDatabaseError("failed to update user", err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(updated.ID),
		"action":  "profile_updated",
	}).Info("profile updated")
	return updated, nil
}

// UserByUsername backs the profile page; a missing user is reported as
// false.
func (s *AuthService) UserByUsername(ctx context.Context, username string) (userdomain.User, bool, error) {
	user, err := s.repo.FindBy(ctx, userrepo.FieldUsername, username)
	if err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			return userdomain.User{}, false, nil
		}
		return userdomain.User{}, false, newDatabaseError("failed to fetch user", err)
	}
	return user, true, nil
}
