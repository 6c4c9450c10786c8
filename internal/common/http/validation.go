package http

import (
	"net/http"
	"net/url"
	"strings"

	commonerrors "github.com/microblog-go/microblog/internal/common/errors"
)

// SafeRedirectTarget returns next when it is a path on this site and
// fallback otherwise. Absolute URLs and scheme-relative "//host" forms
// are refused.
func SafeRedirectTarget(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}

var ErrMalformedForm = commonerrors.NewDomainError(
	CodeBadRequest,
	commonerrors.CategoryValidation,
	http.StatusBadRequest,
	"malformed form submission",
)

// ParseForm parses the request body as a form. Oversized or broken bodies
// map to ErrMalformedForm.
func ParseForm(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return ErrMalformedForm.WithCause(err)
	}
	return nil
}
