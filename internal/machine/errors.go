package machine

import "errors"

var (
	ErrNotPending              = errors.New("record is not pending")
	ErrAlreadyPaid             = errors.New("payment request already paid")
	ErrAlreadyExecuted         = errors.New("scheduled charge already executed")
	ErrCancelled               = errors.New("record has been cancelled")
	ErrExecutionTimeNotReached = errors.New("execution time not reached")
	ErrMaxExecutionsExceeded   = errors.New("max executions exceeded")
	ErrOverflow                = errors.New("arithmetic overflow")
	ErrInvalidAuthority        = errors.New("invalid authority")
	ErrInvalidChargeType       = errors.New("invalid charge type")
)
