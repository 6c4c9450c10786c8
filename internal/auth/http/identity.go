package http

import (
	"net/http"
	"net/url"

	"github.com/microblog-go/microblog/internal/auth/service"
	"github.com/microblog-go/microblog/internal/auth/session"
	commonhttp "github.com/microblog-go/microblog/internal/common/http"
	"github.com/microblog-go/microblog/internal/common/logger"
	userdomain "github.com/microblog-go/microblog/internal/user/domain"
)

// IdentityHandlerFunc is a handler that is told who is calling.
type IdentityHandlerFunc func(w http.ResponseWriter, r *http.Request, ident userdomain.Identity)

// IdentityMiddleware resolves the session cookie into an Identity once per
// request and hands it to the wrapped handler.
type IdentityMiddleware struct {
	sessions *session.Manager
	resolver *service.IdentityResolver
	errors   *commonhttp.ErrorHandler
	log      *logger.Logger
}

func NewIdentityMiddleware(sessions *session.Manager, resolver *service.IdentityResolver, eh *commonhttp.ErrorHandler, log *logger.Logger) *IdentityMiddleware {
	return &IdentityMiddleware{sessions: sessions, resolver: resolver, errors: eh, log: log}
}

func (m *IdentityMiddleware) Wrap(next IdentityHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, present, err := m.sessions.UserID(r)
		if err != nil {
			m.log.WithFields(r.Context(), logger.Fields{
				"action": "session_rejected",
			}).Debugf("session cookie rejected: %v", err)
			m.sessions.Clear(w)
			present = false
		}

		ident, err := m.resolver.Resolve(r.Context(), userID, present)
		if err != nil {
			m.errors.HandleError(w, r, err)
			return
		}
		if present && !ident.IsAuthenticated() {
			m.sessions.Clear(w)
		}

		next(w, r, ident)
	}
}

// RequireLogin returns the login redirect for an anonymous caller. ok is
// true when the handler may proceed.
func RequireLogin(ident userdomain.Identity, r *http.Request) (redirect string, ok bool) {
	if ident != nil && ident.IsAuthenticated() {
		return "", true
	}
	return "/login?next=" + url.QueryEscape(r.URL.RequestURI()), false
}
