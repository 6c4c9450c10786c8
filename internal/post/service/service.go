package service

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/microblog-go/microblog/internal/common/clock"
	commoncrypto "github.com/microblog-go/microblog/internal/common/crypto"
	commonerrors "github.com/microblog-go/microblog/internal/common/errors"
	"github.com/microblog-go/microblog/internal/common/logger"
	"github.com/microblog-go/microblog/internal/common/validation"
	"github.com/microblog-go/microblog/internal/observability/metrics"
	"github.com/microblog-go/microblog/internal/post/domain"
	postrepo "github.com/microblog-go/microblog/internal/post/repository"
	userdomain "github.com/microblog-go/microblog/internal/user/domain"
)

// PostForm is the index page "say something" form.
type PostForm struct {
	Body string `form:"post" validate:"required,max=140"`
}

type PostService struct {
	repo        postrepo.Repository
	idGenerator commoncrypto.IDGenerator
	clock       clock.Clock
	log         *logger.Logger
}

func NewPostService(repo postrepo.Repository, idGenerator commoncrypto.IDGenerator, c clock.Clock, log *logger.Logger) *PostService {
	if c == nil {
		c = clock.NewRealClock()
	}
	return &PostService{
		repo:        repo,
		idGenerator: idGenerator,
		clock:       c,
		log:         log,
	}
}

func (s *PostService) CreatePost(ctx context.Context, author *userdomain.User, form PostForm) (domain.Post, error) {
	form.Body = strings.TrimSpace(form.Body)
	if err := validation.Struct(form); err != nil {
		return domain.Post{}, err
	}

	id, err := s.idGenerator.NewID()
	if err != nil {
		return domain.Post{}, commonerrors.ErrInternalError.WithCause(err)
	}

	post := domain.Post{
		ID:        domain.ID(id),
		Body:      form.Body,
		Timestamp: s.clock.Now(),
		AuthorID:  author.ID,
	}
	if err := s.repo.Create(ctx, post); err != nil {
		if errors.Is(err, postrepo.ErrAuthorNotFound) {
			return domain.Post{}, err
		}
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(author.ID),
			"action":  "post_create_failed",
		}).Errorf("create post failed: %v", err)
		return domain.Post{}, commonerrors.ErrDatabaseError.WithCause(err)
	}

	metrics.PostsCreated.Inc()
	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(author.ID),
		"post_id": id,
		"action":  "post_created",
	}).Info("post created")
	return post, nil
}

func (s *PostService) PostsByAuthor(ctx context.Context, authorID userdomain.ID) iter.Seq2[domain.Post, error] {
	return s.repo.PostsByAuthor(ctx, authorID)
}

// Recent collects at most limit posts, newest first.
func (s *PostService) Recent(ctx context.Context, authorID userdomain.ID, limit int) ([]domain.Post, error) {
	var posts []domain.Post
	for post, err := range s.repo.PostsByAuthor(ctx, authorID) {
		if err != nil {
			return nil, commonerrors.ErrDatabaseError.WithCause(err)
		}
		posts = append(posts, post)
		if limit > 0 && len(posts) >= limit {
			break
		}
	}
	return posts, nil
}
