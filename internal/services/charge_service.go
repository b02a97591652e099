package services

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"

	"blinkpay/internal/clock"
	"blinkpay/internal/db"
	"blinkpay/internal/events"
	"blinkpay/internal/ledger"
	"blinkpay/internal/machine"
	"blinkpay/internal/models"
	"blinkpay/internal/store"
)

// ChargeService orchestrates the scheduled-charge lifecycle. Execution runs
// as one transaction: row lock, machine transition, persisted mutation, then
// the transfer. A gateway failure discards everything.
type ChargeService struct {
	Pool    *db.Pool
	Deriver ledger.RefDeriver
	Clock   clock.Clock
	Events  *events.Hub
}

// CreateChargeInput mirrors the external create_scheduled_charge operation.
type CreateChargeInput struct {
	Creator         models.Address
	Recipient       models.Address
	Amount          uint64
	Asset           models.Asset
	ExecuteAt       int64
	ChargeTypeCode  uint8
	IntervalSeconds *uint64
	MaxExecutions   *uint32
	Memo            string
	Now             *int64
}

func (s *ChargeService) Create(ctx context.Context, in CreateChargeInput) (*models.ScheduledCharge, error) {
	now := resolveNow(s.Clock, in.Now)

	if err := ledger.ValidateMint(in.Asset); err != nil {
		return nil, err
	}
	charge, err := machine.NewCharge(machine.NewChargeParams{
		Creator:         in.Creator,
		Recipient:       in.Recipient,
		Amount:          in.Amount,
		Asset:           in.Asset,
		ExecuteAt:       in.ExecuteAt,
		ChargeTypeCode:  in.ChargeTypeCode,
		IntervalSeconds: in.IntervalSeconds,
		MaxExecutions:   in.MaxExecutions,
		Memo:            in.Memo,
		Now:             now,
	})
	if err != nil {
		return nil, err
	}

	ref, err := s.Deriver.ScheduledChargeRef(in.Creator, in.Recipient, in.Amount, in.ExecuteAt, charge.ChargeType)
	if err != nil {
		return nil, err
	}
	charge.Ref = ref

	if err := store.New(s.Pool).CreateCharge(ctx, charge); err != nil {
		return nil, err
	}

	s.Events.Publish(events.Event{
		Type:   events.ChargeCreated,
		Ref:    charge.Ref,
		At:     now,
		Amount: strconv.FormatUint(charge.Amount, 10),
		Asset:  charge.Asset.String(),
		Status: string(charge.Status),
	})
	return charge, nil
}

func (s *ChargeService) Get(ctx context.Context, ref string) (*models.ScheduledCharge, error) {
	return store.New(s.Pool).GetCharge(ctx, ref)
}

// Execute triggers a due charge. Anyone may call it; the funds always move
// creator -> recipient regardless of who triggered.
func (s *ChargeService) Execute(ctx context.Context, ref string, nowOverride *int64) (*models.ScheduledCharge, error) {
	now := resolveNow(s.Clock, nowOverride)
	var executed *models.ScheduledCharge

	err := pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		st := store.New(tx)
		charge, err := st.GetChargeForUpdate(ctx, ref)
		if err != nil {
			return err
		}

		instruction, err := machine.Execute(charge, now)
		if err != nil {
			return err
		}

		updated, err := st.UpdateChargeExecution(ctx, charge)
		if err != nil {
			return err
		}
		if updated == 0 {
			return machine.ErrNotPending
		}

		if err := applyTransfer(ctx, ledger.New(tx), instruction); err != nil {
			return err
		}
		executed = charge
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Events.Publish(events.Event{
		Type:   events.ChargeExecuted,
		Ref:    executed.Ref,
		At:     now,
		Amount: strconv.FormatUint(executed.Amount, 10),
		Asset:  executed.Asset.String(),
		Status: string(executed.Status),
	})
	return executed, nil
}

// Cancel tears a pending charge down and reclaims its storage. Only the
// creator may cancel.
func (s *ChargeService) Cancel(ctx context.Context, ref string, caller models.Address) error {
	err := pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		st := store.New(tx)
		charge, err := st.GetChargeForUpdate(ctx, ref)
		if err != nil {
			return err
		}

		if err := machine.Cancel(charge, caller); err != nil {
			return err
		}

		deleted, err := st.DeleteCharge(ctx, ref)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return machine.ErrNotPending
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Events.Publish(events.Event{
		Type:   events.ChargeCancelled,
		Ref:    ref,
		At:     resolveNow(s.Clock, nil),
		Status: string(models.ChargeCancelled),
	})
	return nil
}
