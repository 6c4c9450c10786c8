package service

import (
	"context"
	"io"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/microblog-go/microblog/internal/common/clock"
	commoncrypto "github.com/microblog-go/microblog/internal/common/crypto"
	"github.com/microblog-go/microblog/internal/common/logger"
	userdomain "github.com/microblog-go/microblog/internal/user/domain"
	userrepo "github.com/microblog-go/microblog/internal/user/repository"
)

type mockUserRepo struct {
	findByFunc         func(ctx context.Context, field userrepo.Field, value string) (userdomain.User, error)
	createFunc         func(ctx context.Context, user userdomain.User) error
	updateFunc         func(ctx context.Context, user userdomain.User) error
	updateLastSeenFunc func(ctx context.Context, id userdomain.ID, seenAt time.Time) error
}

func (m *mockUserRepo) FindBy(ctx context.Context, field userrepo.Field, value string) (userdomain.User, error) {
	if m.findByFunc != nil {
		return m.findByFunc(ctx, field, value)
	}
	return userdomain.User{}, userrepo.ErrUserNotFound
}

func (m *mockUserRepo) Create(ctx context.Context, user userdomain.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user userdomain.User) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) UpdateLastSeen(ctx context.Context, id userdomain.ID, seenAt time.Time) error {
	if m.updateLastSeenFunc != nil {
		return m.updateLastSeenFunc(ctx, id, seenAt)
	}
	return nil
}

type mockHasher struct {
	hashFunc    func(password string) (string, error)
	compareFunc func(hash, password string) error
}

func (m *mockHasher) Hash(password string) (string, error) {
	if m.hashFunc != nil {
		return m.hashFunc(password)
	}
	return "hashed:" + password, nil
}

func (m *mockHasher) Compare(hash, password string) error {
	if m.compareFunc != nil {
		return m.compareFunc(hash, password)
	}
	if hash != "hashed:"+password {
		return commoncrypto.ErrPasswordMismatch
	}
	return nil
}

type sequenceIDGenerator struct {
	ids []string
	err error
}

func (g *sequenceIDGenerator) NewID() (string, error) {
	if g.err != nil {
		return "", g.err
	}
	id := g.ids[0]
	g.ids = g.ids[1:]
	return id, nil
}

var testStart = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *logger.Logger {
	return logger.NewWriter(io.Discard, "test", "error")
}

// fastBcrypt keeps real hashing in tests without the production cost.
func fastBcrypt() *CredentialStore {
	return NewCredentialStore(commoncrypto.NewBcryptHasher(bcrypt.MinCost), "")
}

func newTestAuthService(repo userrepo.Repository, ids ...string) (*AuthService, *clock.MockClock) {
	mockClock := clock.NewMockClock(testStart)
	svc := NewAuthService(AuthServiceDeps{
		Repo:        repo,
		Credentials: fastBcrypt(),
		IDGenerator: &sequenceIDGenerator{ids: ids},
		Clock:       mockClock,
		Log:         testLogger(),
	})
	return svc, mockClock
}
