package session

import (
	"net/http"

	commonerrors "github.com/nostrid/nip05-registry/internal/common/errors"
)

var (
	ErrSessionExpired = commonerrors.NewDomainError(
		"SESSION_EXPIRED",
		commonerrors.CategoryAuth,
		http.StatusUnauthorized,
		"session has expired",
	)

	ErrSessionConflict = commonerrors.NewDomainError(
		"SESSION_CONFLICT",
		commonerrors.CategoryAuth,
		http.StatusConflict,
		"session was superseded by a newer login",
	)

	ErrLockedOut = commonerrors.NewDomainError(
		"LOCKED_OUT",
		commonerrors.CategoryRateLimit,
		http.StatusTooManyRequests,
		"too many failed login attempts",
	)

	ErrLoginTimeout = commonerrors.NewDomainError(
		"LOGIN_TIMEOUT",
		commonerrors.CategoryUpstream,
		http.StatusGatewayTimeout,
		"signer did not respond in time",
	)

	ErrRateLimitExceeded = commonerrors.NewDomainError(
		"RATE_LIMIT_EXCEEDED",
		commonerrors.CategoryRateLimit,
		http.StatusTooManyRequests,
		"action rate limit exceeded",
	)
)
