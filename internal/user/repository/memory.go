package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/microblog-go/microblog/internal/user/domain"
)

// MemoryRepository keeps users in process memory. It enforces the same
// username/email uniqueness as the users table.
type MemoryRepository struct {
	mu         sync.RWMutex
	byID       map[domain.ID]domain.User
	byUsername map[string]domain.ID
	byEmail    map[string]domain.ID
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:       make(map[domain.ID]domain.User),
		byUsername: make(map[string]domain.ID),
		byEmail:    make(map[string]domain.ID),
	}
}

func (r *MemoryRepository) FindBy(ctx context.Context, field Field, value string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		id domain.ID
		ok bool
	)
	switch field {
	case FieldID:
		id, ok = domain.ID(value), true
	case FieldUsername:
		id, ok = r.byUsername[value]
	case FieldEmail:
		id, ok = r.byEmail[value]
	default:
		return domain.User{}, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}

	user, ok := r.byID[id]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *MemoryRepository) Create(ctx context.Context, user domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[user.ID]; exists {
		return fmt.Errorf("user id %s already exists", user.ID)
	}
	if _, taken := r.byUsername[user.Username]; taken {
		return ErrUsernameAlreadyExists
	}
	if _, taken := r.byEmail[user.Email]; taken {
		return ErrEmailAlreadyExists
	}

	r.byID[user.ID] = user
	r.byUsername[user.Username] = user.ID
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, user domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	if owner, taken := r.byUsername[user.Username]; taken && owner != user.ID {
		return ErrUsernameAlreadyExists
	}
	if owner, taken := r.byEmail[user.Email]; taken && owner != user.ID {
		return ErrEmailAlreadyExists
	}

	delete(r.byUsername, current.Username)
	delete(r.byEmail, current.Email)

	current.Username = user.Username
	current.Email = user.Email
	current.PasswordHash = user.PasswordHash
	current.AboutMe = user.AboutMe

	r.byID[user.ID] = current
	r.byUsername[current.Username] = current.ID
	r.byEmail[current.Email] = current.ID
	return nil
}

func (r *MemoryRepository) UpdateLastSeen(ctx context.Context, id domain.ID, seenAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	if seenAt.After(user.LastSeen) {
		user.LastSeen = seenAt
		r.byID[id] = user
	}
	return nil
}

// Delete removes a user. Posts referencing the user are left in place.
func (r *MemoryRepository) Delete(ctx context.Context, id domain.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(r.byID, id)
	delete(r.byUsername, user.Username)
	delete(r.byEmail, user.Email)
	return nil
}
