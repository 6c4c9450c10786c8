package http

import (
	"net/http"
	"time"

	"github.com/microblog-go/microblog/internal/common/constants"
	"github.com/microblog-go/microblog/internal/common/httpmetrics"
	"github.com/microblog-go/microblog/internal/common/logger"
)

// BuildBaseHandler wraps handler in the middleware every route shares.
// Outermost first: security headers, CSP, trace id, recovery, body limit,
// request timeout, metrics.
func BuildBaseHandler(log *logger.Logger, eh *ErrorHandler, requestTimeout time.Duration, handler http.Handler) http.Handler {
	recovery := RecoveryMiddleware(log, eh)
	maxRequestSize := MaxRequestSizeMiddleware(constants.DefaultMaxRequestSize)
	timeout := WithTimeout(requestTimeout)
	csp := ContentSecurityPolicyMiddleware("")

	return SecurityHeadersMiddleware(csp(TraceIDMiddleware(recovery(maxRequestSize(timeout(httpmetrics.Wrap(handler)))))))
}
