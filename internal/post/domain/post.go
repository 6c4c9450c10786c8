package domain

import (
	"time"

	userdomain "github.com/microblog-go/microblog/internal/user/domain"
)

type ID string

// Post is a short status update. Timestamp is set once at creation.
type Post struct {
	ID        ID
	Body      string
	Timestamp time.Time
	AuthorID  userdomain.ID
}
