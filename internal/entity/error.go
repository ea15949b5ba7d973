package entity

import (
	"errors"
	"fmt"
)

var (
	ErrUsage              = errors.New("usage error")
	ErrInvalidCost        = errors.New("cost must be a positive decimal")
	ErrMissingCredentials = errors.New("environment variables TAPI_ID and TAPI_SECRET must be set")

	ErrAuthFailed    = errors.New("failed to obtain access token")
	ErrQuoteFailed   = errors.New("failed to retrieve ticker information")
	ErrAccountFailed = errors.New("failed to retrieve account information")
	ErrNoAccount     = errors.New("no account available for session")
	ErrSubmitFailed  = errors.New("failed to place order")
	ErrPollFailed    = errors.New("failed to retrieve order information")
	ErrPollTimeout   = errors.New("order did not reach a terminal status")
	ErrPersistence   = errors.New("failed to persist trade record")

	ErrUnauthorized      = errors.New("unauthorized")
	ErrMalformedResponse = errors.New("malformed response")
	ErrDataIntegrity     = errors.New("data integrity violation")
	ErrLedgerLocked      = errors.New("ledger is locked by another process")
)

// APIError carries the raw HTTP outcome of a rejected exchange call.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status=%d body=%s", e.StatusCode, e.Body)
}
