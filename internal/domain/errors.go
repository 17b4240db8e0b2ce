package domain

import "errors"

var (
	ErrInvalidRole       = errors.New("invalid role")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrStreamUnavailable = errors.New("stream unavailable")
	ErrNotFound          = errors.New("not found")
	ErrRateLimited       = errors.New("rate limited")
)

// Wire error codes.
const (
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeStreamUnavailable = "STREAM_UNAVAILABLE"
	CodeInvalidRole       = "INVALID_ROLE"
	CodeNotFound          = "NOT_FOUND"
	CodeBadRequest        = "BAD_REQUEST"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInternal          = "INTERNAL_ERROR"
)

// CodeFor maps an error returned by the app layer to its wire code.
func CodeFor(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrStreamUnavailable):
		return CodeStreamUnavailable
	case errors.Is(err, ErrInvalidRole):
		return CodeInvalidRole
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrIdentityEmpty), errors.Is(err, ErrIdentityTooLong):
		return CodeBadRequest
	}
	return CodeInternal
}
