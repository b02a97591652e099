// Package ledger moves value between accounts. The record machines never call
// it directly; services hand it the transfer instruction after the record
// mutation is already staged in the same transaction, so a rejected movement
// rolls the whole operation back.
package ledger

import (
	"context"
	"errors"
	"math/big"

	"github.com/jackc/pgx/v5"

	"blinkpay/internal/db"
	"blinkpay/internal/models"
)

type Gateway interface {
	TransferNative(ctx context.Context, from, to models.Address, amount uint64) error
	TransferFungible(ctx context.Context, fromAccount, toAccount, authority models.Address, amount uint64) error
}

type Ledger struct {
	q db.Querier
}

func New(q db.Querier) *Ledger {
	return &Ledger{q: q}
}

// ValidateMint accepts any mint. Allowlisting specific tokens is a policy
// decision left to deployments.
func ValidateMint(mint models.Asset) error {
	return nil
}

func (l *Ledger) TransferNative(ctx context.Context, from, to models.Address, amount uint64) error {
	balance, err := l.lockBalance(ctx, from)
	if err != nil {
		return err
	}

	amt := new(big.Int).SetUint64(amount)
	if balance.Cmp(amt) < 0 {
		return ErrInsufficientFunds
	}

	if _, err := l.q.Exec(ctx, `
		UPDATE accounts SET balance=$2, updated_at=now() WHERE address=$1
	`, from.String(), new(big.Int).Sub(balance, amt).String()); err != nil {
		return err
	}
	_, err = l.q.Exec(ctx, `
		INSERT INTO accounts (address, balance)
		VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE
		SET balance=(accounts.balance::numeric + EXCLUDED.balance::numeric)::text, updated_at=now()
	`, to.String(), amt.String())
	return err
}

func (l *Ledger) TransferFungible(ctx context.Context, fromAccount, toAccount, authority models.Address, amount uint64) error {
	fromMint, fromOwner, fromBalance, err := l.lockTokenAccount(ctx, fromAccount)
	if err != nil {
		return err
	}
	if fromOwner != authority {
		return ErrInvalidTokenAccountOwner
	}

	toMint, _, _, err := l.lockTokenAccount(ctx, toAccount)
	if err != nil {
		return err
	}
	if fromMint != toMint {
		return ErrInvalidTokenMint
	}

	amt := new(big.Int).SetUint64(amount)
	if fromBalance.Cmp(amt) < 0 {
		return ErrInsufficientFunds
	}

	if _, err := l.q.Exec(ctx, `
		UPDATE token_accounts SET balance=$2, updated_at=now() WHERE address=$1
	`, fromAccount.String(), new(big.Int).Sub(fromBalance, amt).String()); err != nil {
		return err
	}
	_, err = l.q.Exec(ctx, `
		UPDATE token_accounts
		SET balance=(balance::numeric + $2::numeric)::text, updated_at=now()
		WHERE address=$1
	`, toAccount.String(), amt.String())
	return err
}

func (l *Ledger) lockBalance(ctx context.Context, addr models.Address) (*big.Int, error) {
	var raw string
	err := l.q.QueryRow(ctx, `
		SELECT balance FROM accounts WHERE address=$1 FOR UPDATE
	`, addr.String()).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientFunds
		}
		return nil, err
	}
	return parseBalance(raw)
}

func (l *Ledger) lockTokenAccount(ctx context.Context, addr models.Address) (models.Asset, models.Address, *big.Int, error) {
	var mintRaw, ownerRaw, balanceRaw string
	err := l.q.QueryRow(ctx, `
		SELECT mint, owner, balance FROM token_accounts WHERE address=$1 FOR UPDATE
	`, addr.String()).Scan(&mintRaw, &ownerRaw, &balanceRaw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Asset{}, models.Address{}, nil, ErrInvalidAssociatedTokenAccount
		}
		return models.Asset{}, models.Address{}, nil, err
	}

	mint, err := models.ParseAsset(mintRaw)
	if err != nil {
		return models.Asset{}, models.Address{}, nil, err
	}
	owner, err := models.ParseAddress(ownerRaw)
	if err != nil {
		return models.Asset{}, models.Address{}, nil, err
	}
	balance, err := parseBalance(balanceRaw)
	if err != nil {
		return models.Asset{}, models.Address{}, nil, err
	}
	return mint, owner, balance, nil
}

func parseBalance(raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok || v.Sign() < 0 {
		return nil, errors.New("corrupt balance value")
	}
	return v, nil
}
