package ledger

import "errors"

var (
	ErrInsufficientFunds             = errors.New("insufficient funds")
	ErrInvalidTokenAccountOwner      = errors.New("token account not owned by expected owner")
	ErrInvalidAssociatedTokenAccount = errors.New("associated token account not found")
	ErrInvalidTokenMint              = errors.New("token mint mismatch")
)
