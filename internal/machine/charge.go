package machine

import (
	"math"

	"blinkpay/internal/models"
	"blinkpay/internal/validation"
)

// NewChargeParams carries the caller-supplied fields for a scheduled charge.
// ChargeTypeCode is the small-integer wire form and is decoded with an
// exhaustive reject-unknown switch.
type NewChargeParams struct {
	Creator         models.Address
	Recipient       models.Address
	Amount          uint64
	Asset           models.Asset
	ExecuteAt       int64
	ChargeTypeCode  uint8
	IntervalSeconds *uint64
	MaxExecutions   *uint32
	Memo            string
	Now             int64
}

func NewCharge(p NewChargeParams) (*models.ScheduledCharge, error) {
	chargeType, ok := models.ChargeTypeFromCode(p.ChargeTypeCode)
	if !ok {
		return nil, ErrInvalidChargeType
	}

	if err := validation.Amount(p.Amount); err != nil {
		return nil, err
	}
	if err := validation.FutureTimestamp(p.ExecuteAt, p.Now); err != nil {
		return nil, err
	}
	if p.MaxExecutions != nil {
		if err := validation.MaxExecutions(*p.MaxExecutions); err != nil {
			return nil, err
		}
	}
	if chargeType == models.ChargeRecurring {
		if p.IntervalSeconds == nil {
			return nil, validation.ErrInvalidInterval
		}
		if err := validation.Interval(*p.IntervalSeconds); err != nil {
			return nil, err
		}
	}
	if err := validation.Memo(p.Memo); err != nil {
		return nil, err
	}
	if err := validation.RecipientDistinct(p.Recipient, p.Creator); err != nil {
		return nil, err
	}

	return &models.ScheduledCharge{
		Creator:         p.Creator,
		Recipient:       p.Recipient,
		Amount:          p.Amount,
		Asset:           p.Asset,
		ChargeType:      chargeType,
		ExecuteAt:       p.ExecuteAt,
		IntervalSeconds: p.IntervalSeconds,
		MaxExecutions:   p.MaxExecutions,
		ExecutionCount:  0,
		Memo:            p.Memo,
		CreatedAt:       p.Now,
		Status:          models.ChargePending,
	}, nil
}

// IsDue applies the same skew buffer as creation-time validation, so an
// executor slightly behind the due clock is not unfairly blocked.
func IsDue(c *models.ScheduledCharge, now int64) bool {
	return now >= c.ExecuteAt-validation.SkewToleranceSeconds
}

// Execute advances a due charge and emits the transfer instruction
// creator -> recipient. All record mutation happens before the instruction is
// built (checks-effects-interactions); this ordering is the reentrancy
// defense and must not be reordered.
func Execute(c *models.ScheduledCharge, now int64) (*TransferInstruction, error) {
	switch c.Status {
	case models.ChargePending:
	case models.ChargeExecuted:
		// an exhausted charge reports exhaustion, not just termination
		if c.MaxExecutions != nil && c.ExecutionCount >= *c.MaxExecutions {
			return nil, ErrMaxExecutionsExceeded
		}
		return nil, ErrAlreadyExecuted
	case models.ChargeCancelled:
		return nil, ErrCancelled
	default:
		return nil, ErrNotPending
	}

	if !IsDue(c, now) {
		return nil, ErrExecutionTimeNotReached
	}
	if c.MaxExecutions != nil && c.ExecutionCount >= *c.MaxExecutions {
		return nil, ErrMaxExecutionsExceeded
	}

	if c.ExecutionCount == math.MaxUint32 {
		return nil, ErrOverflow
	}
	c.ExecutionCount++
	c.LastExecutedAt = &now

	switch c.ChargeType {
	case models.ChargeOneTime:
		c.Status = models.ChargeExecuted
	case models.ChargeRecurring:
		if c.IntervalSeconds == nil {
			// A recurring charge without an interval is malformed;
			// terminate it instead of rescheduling.
			c.Status = models.ChargeExecuted
			break
		}
		next, err := addSeconds(now, *c.IntervalSeconds)
		if err != nil {
			return nil, err
		}
		c.ExecuteAt = next
		// The cap is enforced going forward: this execution proceeds
		// even when it is the one that reaches the cap.
		if c.MaxExecutions != nil && c.ExecutionCount >= *c.MaxExecutions {
			c.Status = models.ChargeExecuted
		}
	}

	return newInstruction(c.Creator, c.Recipient, c.Amount, c.Asset), nil
}

// Cancel is the only transition restricted to the record's creator.
func Cancel(c *models.ScheduledCharge, caller models.Address) error {
	if caller != c.Creator {
		return ErrInvalidAuthority
	}
	if c.Status != models.ChargePending {
		return ErrNotPending
	}
	c.Status = models.ChargeCancelled
	return nil
}

func addSeconds(ts int64, seconds uint64) (int64, error) {
	if seconds > math.MaxInt64 || ts > math.MaxInt64-int64(seconds) {
		return 0, ErrOverflow
	}
	return ts + int64(seconds), nil
}
