package domain

import "fmt"

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Error codes carried on AppError and in HTTP error bodies.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeAlreadySpinning     = "ALREADY_SPINNING"
	CodeNoSpinsRemaining    = "NO_SPINS_REMAINING"
	CodeLedgerUnavailable   = "LEDGER_UNAVAILABLE"
	CodeWalletRead          = "WALLET_READ"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeIdempotent          = "IDEMPOTENT"
	CodeInternal            = "INTERNAL_ERROR"
)

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: CodeValidation, Message: msg, Status: 400}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: msg, Status: 401}
}

func ErrAlreadySpinning() *AppError {
	return &AppError{Code: CodeAlreadySpinning, Message: "a spin is already in flight for this session", Status: 409}
}

func ErrNoSpinsRemaining() *AppError {
	return &AppError{Code: CodeNoSpinsRemaining, Message: "no spins remaining for the current period", Status: 409}
}

// ErrLedgerUnavailable marks a network/service failure talking to the reward
// ledger. The reconciler recovers it via the retry queue; it is never surfaced
// as a failed spin because the spin itself already succeeded.
func ErrLedgerUnavailable(cause error) *AppError {
	return &AppError{Code: CodeLedgerUnavailable, Message: "reward ledger temporarily unavailable", Status: 503, Cause: cause}
}

func ErrWalletRead(cause error) *AppError {
	return &AppError{Code: CodeWalletRead, Message: "wallet balance temporarily unavailable", Status: 503, Cause: cause}
}

func ErrInsufficientBalance() *AppError {
	return &AppError{Code: CodeInsufficientBalance, Message: "insufficient coin balance", Status: 400}
}

func ErrIdempotent(existingTxID string) *AppError {
	return &AppError{Code: CodeIdempotent, Message: fmt.Sprintf("transaction already exists: %s", existingTxID), Status: 200}
}

// ErrRequestInFlight rejects a duplicate command whose first delivery is
// still executing. Retrying after the original completes returns the
// idempotent replay.
func ErrRequestInFlight(reference string) *AppError {
	return &AppError{Code: CodeIdempotent, Message: fmt.Sprintf("request %q is already in flight", reference), Status: 409}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: msg, Status: 500, Cause: cause}
}
