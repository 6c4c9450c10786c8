package service

import (
	"net/http"

	commonerrors "github.com/microblog-go/microblog/internal/common/errors"
)

// ErrInvalidCredentials covers both an unknown username and a wrong
// password so the two cannot be told apart.
var ErrInvalidCredentials = commonerrors.NewDomainError(
	"INVALID_CREDENTIALS",
	commonerrors.CategoryUnauthorized,
	http.StatusUnauthorized,
	"Invalid username or password",
)
