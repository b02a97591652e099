package models

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestPaid      RequestStatus = "paid"
	RequestCancelled RequestStatus = "cancelled"
)

type ChargeStatus string

const (
	ChargePending   ChargeStatus = "pending"
	ChargeExecuted  ChargeStatus = "executed"
	ChargeCancelled ChargeStatus = "cancelled"
)

type ChargeType string

const (
	ChargeOneTime   ChargeType = "one_time"
	ChargeRecurring ChargeType = "recurring"
)

// ChargeTypeFromCode decodes the wire code for a charge type. Unknown codes
// are rejected rather than mapped to a default.
func ChargeTypeFromCode(code uint8) (ChargeType, bool) {
	switch code {
	case 0:
		return ChargeOneTime, true
	case 1:
		return ChargeRecurring, true
	}
	return "", false
}

func (t ChargeType) Code() uint8 {
	if t == ChargeRecurring {
		return 1
	}
	return 0
}

// PaymentRequest is an invoice record that any party may fulfill exactly once.
type PaymentRequest struct {
	Ref       string
	Creator   Address
	Recipient Address
	Amount    uint64
	Asset     Asset
	Memo      string
	CreatedAt int64
	Status    RequestStatus
}

// ScheduledCharge is a debit record authorized by its creator and triggerable
// by anyone once due. Recurring charges reschedule themselves on execution.
type ScheduledCharge struct {
	Ref             string
	Creator         Address
	Recipient       Address
	Amount          uint64
	Asset           Asset
	ChargeType      ChargeType
	ExecuteAt       int64
	IntervalSeconds *uint64
	LastExecutedAt  *int64
	MaxExecutions   *uint32
	ExecutionCount  uint32
	Memo            string
	CreatedAt       int64
	Status          ChargeStatus
}
