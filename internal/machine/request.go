package machine

import (
	"blinkpay/internal/models"
	"blinkpay/internal/validation"
)

// NewRequest builds a pending payment request after running the creation-time
// validation pass. created_at is recorded as given, not validated.
func NewRequest(creator, recipient models.Address, amount uint64, asset models.Asset, memo string, now int64) (*models.PaymentRequest, error) {
	if err := validation.Amount(amount); err != nil {
		return nil, err
	}
	if err := validation.Memo(memo); err != nil {
		return nil, err
	}
	if err := validation.RecipientDistinct(recipient, creator); err != nil {
		return nil, err
	}

	return &models.PaymentRequest{
		Creator:   creator,
		Recipient: recipient,
		Amount:    amount,
		Asset:     asset,
		Memo:      memo,
		CreatedAt: now,
		Status:    models.RequestPending,
	}, nil
}

// Fulfill moves a pending request to paid and emits the transfer instruction
// payer -> recipient. The status flip happens before the instruction exists,
// so a reentrant second fulfillment sees a non-pending record.
func Fulfill(req *models.PaymentRequest, payer models.Address) (*TransferInstruction, error) {
	switch req.Status {
	case models.RequestPending:
	case models.RequestPaid:
		return nil, ErrAlreadyPaid
	case models.RequestCancelled:
		return nil, ErrCancelled
	default:
		return nil, ErrNotPending
	}

	req.Status = models.RequestPaid

	return newInstruction(payer, req.Recipient, req.Amount, req.Asset), nil
}
