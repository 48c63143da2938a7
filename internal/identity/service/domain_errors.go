package service

import (
	commonerrors "github.com/nostrid/nip05-registry/internal/common/errors"
)

var (
	ErrMissingField = commonerrors.NewDomainError(
		"MISSING_FIELD",
		commonerrors.CategoryValidation,
		400,
		"username and public key are required",
	)

	ErrInvalidKeyFormat = commonerrors.NewDomainError(
		"INVALID_KEY_FORMAT",
		commonerrors.CategoryValidation,
		400,
		"invalid public key format",
	)

	ErrUsernameTaken = commonerrors.NewDomainError(
		"USERNAME_TAKEN",
		commonerrors.CategoryConflict,
		409,
		"username already taken",
	)

	ErrKeyAlreadyRegistered = commonerrors.NewDomainError(
		"KEY_ALREADY_REGISTERED",
		commonerrors.CategoryConflict,
		409,
		"public key already registered",
	)

	ErrInvalidRelayURL = commonerrors.NewDomainError(
		"INVALID_RELAY_URL",
		commonerrors.CategoryValidation,
		400,
		"relay URL must start with ws:// or wss://",
	)
)
