package services

import "errors"

type ErrorCode string

const (
	ErrorInvalid            ErrorCode = "invalid"
	ErrorForbidden          ErrorCode = "forbidden"
	ErrorNotFound           ErrorCode = "not_found"
	ErrorConflict           ErrorCode = "conflict"
	ErrorUnauthorized       ErrorCode = "unauthorized"
	ErrorMalformedScore     ErrorCode = "malformed_score"
	ErrorPolicyConfig       ErrorCode = "policy_config"
	ErrorPersistence        ErrorCode = "persistence"
	ErrorScoringUnavailable ErrorCode = "scoring_unavailable"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error   { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }
func NewNotFoundError(msg string) error  { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

// NewMalformedScoreError marks bad upstream model output. The submission
// must abort rather than proceed on a silently-zeroed risk score.
func NewMalformedScoreError(msg string) error {
	return &ServiceError{Code: ErrorMalformedScore, Message: msg}
}

// NewPolicyConfigError marks invalid threshold/keyword configuration.
// Fatal at startup: the server refuses to serve on it.
func NewPolicyConfigError(msg string) error {
	return &ServiceError{Code: ErrorPolicyConfig, Message: msg}
}

func NewPersistenceError(msg string) error {
	return &ServiceError{Code: ErrorPersistence, Message: msg}
}

func NewScoringUnavailableError(msg string) error {
	return &ServiceError{Code: ErrorScoringUnavailable, Message: msg}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// HasErrorCode reports whether err carries the given service error code.
func HasErrorCode(err error, code ErrorCode) bool {
	se, ok := AsServiceError(err)
	return ok && se.Code == code
}
