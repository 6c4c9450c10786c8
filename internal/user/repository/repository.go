package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/microblog-go/microblog/internal/common/db"
	commonerrors "github.com/microblog-go/microblog/internal/common/errors"
	"github.com/microblog-go/microblog/internal/user/domain"
)

// Field names a column users can be looked up by.
type Field string

const (
	FieldID       Field = "id"
	FieldUsername Field = "username"
	FieldEmail    Field = "email"
)

var (
	ErrUserNotFound          = commonerrors.ErrUserNotFound
	ErrUsernameAlreadyExists = commonerrors.ErrUsernameAlreadyExists
	ErrEmailAlreadyExists    = commonerrors.ErrEmailAlreadyExists
	ErrUnknownField          = errors.New("unknown lookup field")
)

// Repository is the persistence collaborator for users. Every call is
// atomic on its own; Create and Update report unique violations as
// ErrUsernameAlreadyExists or ErrEmailAlreadyExists.
type Repository interface {
	FindBy(ctx context.Context, field Field, value string) (domain.User, error)
	Create(ctx context.Context, user domain.User) error
	Update(ctx context.Context, user domain.User) error
	UpdateLastSeen(ctx context.Context, id domain.ID, seenAt time.Time) error
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const selectUserColumns = `SELECT id, username, email, password_hash, about_me, last_seen, created_at FROM users`

func (r *PgRepository) FindBy(ctx context.Context, field Field, value string) (domain.User, error) {
	var query string
	switch field {
	case FieldID:
		query = selectUserColumns + ` WHERE id = $1`
	case FieldUsername:
		query = selectUserColumns + ` WHERE username = $1`
	case FieldEmail:
		query = selectUserColumns + ` WHERE email = $1`
	default:
		return domain.User{}, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	start := time.Now()
	var user domain.User
	err := r.pool.QueryRow(ctx, query, value).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.AboutMe,
		&user.LastSeen,
		&user.CreatedAt,
	)
	if err != nil {
		return domain.User{}, db.HandleQueryError(err, ErrUserNotFound, "find user by "+string(field), start)
	}
	db.MeasureQueryDuration("find user by "+string(field), start)

	return user, nil
}

func (r *PgRepository) Create(ctx context.Context, user domain.User) error {
	start := time.Now()
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO users (id, username, email, password_hash, about_me, last_seen, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(user.ID),
		user.Username,
		user.Email,
		user.PasswordHash,
		user.AboutMe,
		user.LastSeen,
		user.CreatedAt,
	)
	if err != nil {
		if dupErr := duplicateError(err); dupErr != nil {
			db.MeasureQueryDuration("create user", start)
			return dupErr
		}
		return db.HandleExecError(err, "create user", start)
	}
	db.MeasureQueryDuration("create user", start)
	return nil
}

func (r *PgRepository) Update(ctx context.Context, user domain.User) error {
	start := time.Now()
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE users SET username = $2, email = $3, password_hash = $4, about_me = $5 WHERE id = $1`,
		string(user.ID),
		user.Username,
		user.Email,
		user.PasswordHash,
		user.AboutMe,
	)
	if err != nil {
		if dupErr := duplicateError(err); dupErr != nil {
			db.MeasureQueryDuration("update user", start)
			return dupErr
		}
		return db.HandleExecError(err, "update user", start)
	}
	db.MeasureQueryDuration("update user", start)
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateLastSeen never moves last_seen backwards.
func (r *PgRepository) UpdateLastSeen(ctx context.Context, id domain.ID, seenAt time.Time) error {
	start := time.Now()
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE users SET last_seen = GREATEST(last_seen, $2) WHERE id = $1`,
		string(id),
		seenAt,
	)
	if err != nil {
		return db.HandleExecError(err, "update user last_seen", start)
	}
	db.MeasureQueryDuration("update user last_seen", start)
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func duplicateError(err error) error {
	constraint, ok := db.UniqueViolation(err)
	if !ok {
		return nil
	}
	switch constraint {
	case db.UsersEmailConstraint:
		return ErrEmailAlreadyExists
	default:
		return ErrUsernameAlreadyExists
	}
}
