package core

import "fmt"

// Validation error codes returned to API clients.
const (
	CodeMissingSymbols  = "MISSING_SYMBOLS"
	CodeInvalidSymbol   = "INVALID_SYMBOL"
	CodeMissingPeriod   = "MISSING_PERIOD"
	CodeInvalidDate     = "INVALID_DATE"
	CodeInvalidTimespan = "INVALID_TIMESPAN"
	CodeRangeTooLarge   = "RANGE_TOO_LARGE"
)

// ValidationError a client input error, rejected before any upstream call.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newValidationError(code, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}
