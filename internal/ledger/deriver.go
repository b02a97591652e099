package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/ripemd160"

	"blinkpay/internal/models"
)

// RefDeriver mints deterministic record references. The seed binds the record
// to its creator, recipient, amount and timestamp, so re-submitting the same
// creation collides on the same ref instead of allocating a duplicate.
type RefDeriver struct {
	Prefix string
}

func (d RefDeriver) PaymentRequestRef(creator, recipient models.Address, amount uint64, createdAt int64) (string, error) {
	return d.derive(recordSeed("payment_request", creator, recipient, amount, createdAt))
}

func (d RefDeriver) ScheduledChargeRef(creator, recipient models.Address, amount uint64, executeAt int64, chargeType models.ChargeType) (string, error) {
	seed := recordSeed("scheduled_charge", creator, recipient, amount, executeAt)
	seed = append(seed, chargeType.Code())
	return d.derive(seed)
}

func (d RefDeriver) derive(seed []byte) (string, error) {
	if d.Prefix == "" {
		return "", errors.New("ref prefix is not configured")
	}

	hash := sha256.Sum256(seed)
	rip := ripemd160.New()
	_, _ = rip.Write(hash[:])
	sum := rip.Sum(nil)

	converted, err := bech32.ConvertBits(sum, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(d.Prefix, converted)
}

func recordSeed(kind string, creator, recipient models.Address, amount uint64, ts int64) []byte {
	seed := make([]byte, 0, len(kind)+80)
	seed = append(seed, kind...)
	seed = append(seed, creator[:]...)
	seed = append(seed, recipient[:]...)
	seed = binary.LittleEndian.AppendUint64(seed, amount)
	seed = binary.LittleEndian.AppendUint64(seed, uint64(ts))
	return seed
}

// AssociatedTokenAddress derives the canonical token account address for an
// owner/mint pair.
func AssociatedTokenAddress(owner models.Address, mint models.Asset) models.Address {
	seed := make([]byte, 0, 13+64)
	seed = append(seed, "token_account"...)
	seed = append(seed, owner[:]...)
	seed = append(seed, mint[:]...)
	return models.Address(sha256.Sum256(seed))
}
