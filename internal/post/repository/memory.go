package repository

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/microblog-go/microblog/internal/post/domain"
	userdomain "github.com/microblog-go/microblog/internal/user/domain"
)

// AuthorLookup reports whether a user id exists. It stands in for the
// posts.user_id foreign key.
type AuthorLookup func(ctx context.Context, id userdomain.ID) (bool, error)

type MemoryRepository struct {
	mu       sync.RWMutex
	byAuthor map[userdomain.ID][]domain.Post
	authors  AuthorLookup
}

// NewMemoryRepository builds an in-memory post store. A nil lookup accepts
// any author.
func NewMemoryRepository(authors AuthorLookup) *MemoryRepository {
	return &MemoryRepository{
		byAuthor: make(map[userdomain.ID][]domain.Post),
		authors:  authors,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, post domain.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.authors != nil {
		ok, err := r.authors(ctx, post.AuthorID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAuthorNotFound
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byAuthor[post.AuthorID] = append(r.byAuthor[post.AuthorID], post)
	return nil
}

func (r *MemoryRepository) PostsByAuthor(ctx context.Context, authorID userdomain.ID) iter.Seq2[domain.Post, error] {
	return func(yield func(domain.Post, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(domain.Post{}, err)
			return
		}

		r.mu.RLock()
		posts := slices.Clone(r.byAuthor[authorID])
		r.mu.RUnlock()

		slices.SortStableFunc(posts, func(a, b domain.Post) int {
			if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
				return c
			}
			return strings.Compare(string(b.ID), string(a.ID))
		})

		for _, post := range posts {
			if !yield(post, nil) {
				return
			}
		}
	}
}
