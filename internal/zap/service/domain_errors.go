package service

import (
	"net/http"

	commonerrors "github.com/nostrid/nip05-registry/internal/common/errors"
)

var (
	ErrInvalidAmount = commonerrors.NewDomainError(
		"INVALID_AMOUNT",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"amount must be a positive whole number of sats",
	)

	ErrMissingAddress = commonerrors.NewDomainError(
		"MISSING_ADDRESS",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"recipient has no lightning address",
	)

	ErrLnurlUnreachable = commonerrors.NewDomainError(
		"LNURL_UNREACHABLE",
		commonerrors.CategoryUpstream,
		http.StatusBadGateway,
		"could not reach the lightning address provider",
	)

	ErrMalformedLnurlResponse = commonerrors.NewDomainError(
		"MALFORMED_LNURL_RESPONSE",
		commonerrors.CategoryUpstream,
		http.StatusBadGateway,
		"lightning address provider returned an invalid response",
	)

	ErrAmountOutOfBounds = commonerrors.NewDomainError(
		"AMOUNT_OUT_OF_BOUNDS",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"amount is outside the provider's accepted range",
	)

	ErrInvoiceRequestFailed = commonerrors.NewDomainError(
		"INVOICE_REQUEST_FAILED",
		commonerrors.CategoryUpstream,
		http.StatusBadGateway,
		"invoice request was rejected by the provider",
	)

	ErrNoInvoiceReturned = commonerrors.NewDomainError(
		"NO_INVOICE_RETURNED",
		commonerrors.CategoryUpstream,
		http.StatusBadGateway,
		"provider response did not contain an invoice",
	)
)
