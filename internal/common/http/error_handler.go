package http

import (
	"net/http"
	"strconv"

	commonerrors "github.com/microblog-go/microblog/internal/common/errors"
	"github.com/microblog-go/microblog/internal/common/httpmetrics"
	"github.com/microblog-go/microblog/internal/common/logger"
	"github.com/microblog-go/microblog/internal/observability/metrics"
)

const internalErrorMessage = "An unexpected error has occurred"

// ErrorPage writes the body for a failed request. The status has not been
// written yet when it is called.
type ErrorPage func(w http.ResponseWriter, r *http.Request, status int, message string)

type ErrorHandler struct {
	log  *logger.Logger
	page ErrorPage
}

// NewErrorHandler renders errors with page, or as a JSON envelope when
// page is nil.
func NewErrorHandler(log *logger.Logger, page ErrorPage) *ErrorHandler {
	return &ErrorHandler{log: log, page: page}
}

func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	ctx := r.Context()
	traceID := TraceIDFromContext(ctx)

	domainErr, ok := commonerrors.AsDomainError(err)
	if !ok {
		h.log.WithFields(ctx, logger.Fields{
			"action": "unhandled_error",
			"path":   r.URL.Path,
		}).Errorf("unhandled error: %v", err)
		h.write(w, r, http.StatusInternalServerError, CodeUnknown, internalErrorMessage, traceID)
		return
	}

	if traceID != "" && domainErr.TraceID() == "" {
		domainErr = domainErr.WithTraceID(traceID)
	}

	status := domainErr.HTTPStatus()
	fields := logger.Fields{
		"error_code": domainErr.Code(),
		"category":   string(domainErr.Category()),
		"status":     status,
		"action":     "domain_error",
	}

	message := domainErr.Message()
	if status >= http.StatusInternalServerError {
		h.log.WithFields(ctx, fields).Errorf("request failed: %s", domainErr.Error())
		message = internalErrorMessage
	} else if h.log.ShouldLog(logger.DEBUG) {
		h.log.WithFields(ctx, fields).Debugf("domain error: %s", domainErr.Error())
	}

	metrics.DomainErrorsTotal.WithLabelValues(
		string(domainErr.Category()),
		domainErr.Code(),
		strconv.Itoa(status),
	).Inc()

	h.write(w, r, status, domainErr.Code(), message, traceID)
}

func (h *ErrorHandler) write(w http.ResponseWriter, r *http.Request, status int, code, message, traceID string) {
	metrics.HTTPErrorsTotal.WithLabelValues(
		strconv.Itoa(status),
		httpmetrics.NormalizePath(r.URL.Path),
		r.Method,
	).Inc()

	if traceID != "" {
		w.Header().Set(traceIDHeader, traceID)
	}
	if h.page != nil {
		h.page(w, r, status, message)
		return
	}
	WriteErrorEnvelope(w, status, code, message, traceID)
}
