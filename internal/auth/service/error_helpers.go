package service

import (
	commonerrors "github.com/microblog-go/microblog/internal/common/errors"
)

func newDatabaseError(message string, cause error) commonerrors.DomainError {
	return commonerrors.NewDomainError(
		commonerrors.ErrDatabaseError.Code(),
		commonerrors.CategoryInternal,
		commonerrors.ErrDatabaseError.HTTPStatus(),
		message,
	).WithCause(cause)
}

func newInternalError(message string, cause error) commonerrors.DomainError {
	err := commonerrors.NewDomainError(
		commonerrors.ErrInternalError.Code(),
		commonerrors.CategoryInternal,
		commonerrors.ErrInternalError.HTTPStatus(),
		message,
	)
	if cause != nil {
		err = err.WithCause(cause)
	}
	return err
}
