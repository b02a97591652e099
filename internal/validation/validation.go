// Package validation holds the stateless predicate checks shared by both
// record machines. Each predicate enforces exactly one canonical rule.
package validation

import (
	"errors"
	"math"

	"blinkpay/internal/models"
)

const (
	// MaxAmount caps amounts at half the uint64 range so downstream
	// doubling or fee arithmetic cannot overflow.
	MaxAmount = math.MaxUint64 / 2

	MaxMemoLength = 200

	// SkewToleranceSeconds absorbs clock drift between the time an
	// operation is built and the time it lands.
	SkewToleranceSeconds = 300

	MinIntervalSeconds = 3600
	MaxIntervalSeconds = 31_536_000

	MaxExecutionsLimit = 1000
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrMemoTooLong          = errors.New("memo too long")
	ErrInvalidTimestamp     = errors.New("invalid timestamp")
	ErrInvalidInterval      = errors.New("invalid interval")
	ErrInvalidMaxExecutions = errors.New("invalid max executions")
	ErrInvalidRecipient     = errors.New("invalid recipient")
)

func Amount(amount uint64) error {
	if amount == 0 || amount > MaxAmount {
		return ErrInvalidAmount
	}
	return nil
}

func Memo(memo string) error {
	if len(memo) > MaxMemoLength {
		return ErrMemoTooLong
	}
	return nil
}

// FutureTimestamp accepts ts within [now-300, now+1y]. The lower bound
// tolerates stale clocks, the upper bound rejects far-future scheduling.
func FutureTimestamp(ts, now int64) error {
	if ts < now-SkewToleranceSeconds {
		return ErrInvalidTimestamp
	}
	if ts > now+MaxIntervalSeconds {
		return ErrInvalidTimestamp
	}
	return nil
}

func Interval(seconds uint64) error {
	if seconds < MinIntervalSeconds || seconds > MaxIntervalSeconds {
		return ErrInvalidInterval
	}
	return nil
}

func MaxExecutions(n uint32) error {
	if n == 0 || n > MaxExecutionsLimit {
		return ErrInvalidMaxExecutions
	}
	return nil
}

// RecipientDistinct rejects self-targeting records, which would otherwise
// let a party manufacture no-op fulfillment events.
func RecipientDistinct(recipient, creator models.Address) error {
	if recipient == creator {
		return ErrInvalidRecipient
	}
	return nil
}
