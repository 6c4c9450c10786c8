package repository

import (
	"context"
	"iter"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/microblog-go/microblog/internal/common/db"
	commonerrors "github.com/microblog-go/microblog/internal/common/errors"
	"github.com/microblog-go/microblog/internal/post/domain"
	userdomain "github.com/microblog-go/microblog/internal/user/domain"
)

var ErrAuthorNotFound = commonerrors.ErrAuthorNotFound

// Repository stores posts. PostsByAuthor yields newest first; the sequence
// queries on each range, so it can be iterated more than once.
type Repository interface {
	Create(ctx context.Context, post domain.Post) error
	PostsByAuthor(ctx context.Context, authorID userdomain.ID) iter.Seq2[domain.Post, error]
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Create(ctx context.Context, post domain.Post) error {
	start := time.Now()
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO posts (id, body, timestamp, user_id) VALUES ($1, $2, $3, $4)`,
		string(post.ID),
		post.Body,
		post.Timestamp,
		string(post.AuthorID),
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			db.MeasureQueryDuration("create post", start)
			return ErrAuthorNotFound
		}
		return db.HandleExecError(err, "create post", start)
	}
	db.MeasureQueryDuration("create post", start)
	return nil
}

func (r *PgRepository) PostsByAuthor(ctx context.Context, authorID userdomain.ID) iter.Seq2[domain.Post, error] {
	return func(yield func(domain.Post, error) bool) {
		start := time.Now()
		rows, err := r.pool.Query(
			ctx,
			`SELECT id, body, timestamp, user_id FROM posts WHERE user_id = $1 ORDER BY timestamp DESC, id DESC`,
			string(authorID),
		)
		if err != nil {
			yield(domain.Post{}, db.HandleQueryError(err, nil, "list posts by author", start))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var post domain.Post
			if err := rows.Scan(&post.ID, &post.Body, &post.Timestamp, &post.AuthorID); err != nil {
				yield(domain.Post{}, db.HandleQueryError(err, nil, "scan post", start))
				return
			}
			if !yield(post, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.Post{}, db.HandleQueryError(err, nil, "list posts by author", start))
			return
		}
		db.MeasureQueryDuration("list posts by author", start)
	}
}
