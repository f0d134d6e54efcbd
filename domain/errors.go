package domain

import "errors"

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("Internal Server Error")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("Your requested Item is not found")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("Given Param is not valid")

	ErrInvalidNumberFormat = errors.New("invalid number format")
	ErrInvalidChainId      = errors.New("invalid chain id")
	ErrPermissionDenied    = errors.New("permission denied")

	// order lifecycle errors
	ErrMalformedOrder      = errors.New("malformed order")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrInvalidProof        = errors.New("invalid proof")
	ErrOrderExpired        = errors.New("order expired")
	ErrOrderUnfillable     = errors.New("order unfillable")
	ErrTakerMismatch       = errors.New("taker mismatch")
	ErrQuantityExceeded    = errors.New("quantity exceeded")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrArrayLengthMismatch = errors.New("array length mismatch")
	ErrTransferFailed      = errors.New("transfer failed")

	// registry errors
	ErrRollbackTargetNotFound = errors.New("rollback target not found")
)
