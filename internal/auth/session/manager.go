package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/microblog-go/microblog/internal/common/clock"
	"github.com/microblog-go/microblog/internal/common/constants"
	commonerrors "github.com/microblog-go/microblog/internal/common/errors"
	"github.com/microblog-go/microblog/internal/observability/metrics"
	userdomain "github.com/microblog-go/microblog/internal/user/domain"
)

type Config struct {
	Secret        string
	TTL           time.Duration
	RememberMeTTL time.Duration
	CookieName    string
	Secure        bool
}

// Manager keeps the logged-in user id in a signed HS256 cookie. It never
// stores server-side state.
type Manager struct {
	secret        []byte
	ttl           time.Duration
	rememberMeTTL time.Duration
	cookieName    string
	secure        bool
	clock         clock.Clock
}

type claims struct {
	Remember bool `json:"rem,omitempty"`
	jwt.RegisteredClaims
}

func NewManager(cfg Config, c clock.Clock) *Manager {
	if c == nil {
		c = clock.NewRealClock()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = constants.DefaultSessionTTL
	}
	if cfg.RememberMeTTL <= 0 {
		cfg.RememberMeTTL = constants.DefaultRememberMeTTL
	}
	if cfg.CookieName == "" {
		cfg.CookieName = constants.SessionCookieName
	}
	return &Manager{
		secret:        []byte(cfg.Secret),
		ttl:           cfg.TTL,
		rememberMeTTL: cfg.RememberMeTTL,
		cookieName:    cfg.CookieName,
		secure:        cfg.Secure,
		clock:         c,
	}
}

// Issue sets the session cookie for userID. Without remember the cookie
// lives for the browser session and the token for TTL.
func (m *Manager) Issue(w http.ResponseWriter, userID userdomain.ID, remember bool) error {
	now := m.clock.Now()
	ttl := m.ttl
	if remember {
		ttl = m.rememberMeTTL
	}
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Remember: remember,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("failed to sign session: %w", err)
	}

	cookie := m.baseCookie()
	cookie.Value = signed
	if remember {
		cookie.Expires = expiresAt
		cookie.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, cookie)
	metrics.SessionsIssued.Inc()
	return nil
}

// UserID reads the session cookie. A request without one returns ok=false
// and a nil error; a cookie that fails verification returns an error
// matching commonerrors.ErrInvalidToken.
func (m *Manager) UserID(r *http.Request) (userdomain.ID, bool, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return "", false, nil
	}

	parsed := &claims{}
	_, err = jwt.ParseWithClaims(cookie.Value, parsed, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, commonerrors.ErrInvalidTokenSigningMethod
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.clock.Now),
	)
	if err != nil {
		metrics.SessionValidationsFailed.Inc()
		return "", false, commonerrors.ErrInvalidToken.WithCause(err)
	}
	if parsed.Subject == "" {
		metrics.SessionValidationsFailed.Inc()
		return "", false, commonerrors.ErrMissingTokenClaims
	}
	return userdomain.ID(parsed.Subject), true, nil
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	cookie := m.baseCookie()
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

func (m *Manager) baseCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// IsInvalid reports whether err came from a cookie that failed
// verification.
func IsInvalid(err error) bool {
	return errors.Is(err, commonerrors.ErrInvalidToken) || errors.Is(err, commonerrors.ErrMissingTokenClaims)
}
