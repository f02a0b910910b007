package txbuilder

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	ErrorCodeInsufficientFunds       = 1
	ErrorCodeInsufficientFundsForFee = 2
	ErrorCodeSignatureCount          = 3
	ErrorCodeMissingCellProvider     = 4
	ErrorCodeUnknownLockScript       = 5
	ErrorCodeInvalidAddress          = 6
)

// IsErrorCode returns true when the cause of err is a builder error with code.
func IsErrorCode(err error, code int) bool {
	er, ok := errors.Cause(err).(*txBuilderError)
	if !ok {
		return false
	}
	return er.code == code
}

type txBuilderError struct {
	code    int
	message string
}

func (err *txBuilderError) Error() string {
	if len(err.message) == 0 {
		return errorCodeString(err.code)
	}
	return fmt.Sprintf("%s : %s", errorCodeString(err.code), err.message)
}

func errorCodeString(code int) string {
	switch code {
	case ErrorCodeInsufficientFunds:
		return "Insufficient Funds"
	case ErrorCodeInsufficientFundsForFee:
		return "Insufficient Funds For Fee"
	case ErrorCodeSignatureCount:
		return "Signature Count Mismatch"
	case ErrorCodeMissingCellProvider:
		return "Missing Cell Provider"
	case ErrorCodeUnknownLockScript:
		return "Unknown Lock Script"
	case ErrorCodeInvalidAddress:
		return "Invalid Address"
	default:
		return "Unknown Error Code"
	}
}

func newError(code int, message string) *txBuilderError {
	result := txBuilderError{code: code, message: message}
	return &result
}
