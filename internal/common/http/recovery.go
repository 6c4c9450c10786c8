package http

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/microblog-go/microblog/internal/common/logger"
)

func RecoveryMiddleware(log *logger.Logger, eh *ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.WithFields(r.Context(), logger.Fields{
						"action": "panic_recovered",
						"path":   r.URL.Path,
					}).Criticalf("panic recovered: %v\n%s", rec, debug.Stack())
					if eh != nil {
						eh.HandleError(w, r, fmt.Errorf("panic: %v", rec))
						return
					}
					WriteError(w, http.StatusInternalServerError, internalErrorMessage)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
