package machine

import (
	"github.com/google/uuid"

	"blinkpay/internal/models"
)

type TransferKind string

const (
	TransferNative   TransferKind = "native"
	TransferFungible TransferKind = "fungible"
)

// TransferInstruction describes a value movement for the transfer gateway.
// The machines emit it strictly after the record mutation has been applied.
type TransferInstruction struct {
	ID     uuid.UUID
	Kind   TransferKind
	From   models.Address
	To     models.Address
	Amount uint64
	Asset  models.Asset

	// Authority must own the source token account on fungible transfers.
	Authority models.Address
}

func newInstruction(from, to models.Address, amount uint64, asset models.Asset) *TransferInstruction {
	in := &TransferInstruction{
		ID:     uuid.New(),
		From:   from,
		To:     to,
		Amount: amount,
		Asset:  asset,
	}
	if asset.IsNative() {
		in.Kind = TransferNative
	} else {
		in.Kind = TransferFungible
		in.Authority = from
	}
	return in
}
