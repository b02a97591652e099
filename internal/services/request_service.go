package services

import (
	"context"
	"fmt"
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

// RequestService orchestrates the payment-request lifecycle: the machine
// decides the transition, this layer makes it durable and moves the funds in
// the same transaction.
type RequestService struct {
	Pool    *db.Pool
	Deriver ledger.RefDeriver
	Clock   clock.Clock
	Events  *events.Hub
}

func (s *RequestService) Create(ctx context.Context, creator, recipient models.Address, amount uint64, asset models.Asset, memo string, nowOverride *int64) (*models.PaymentRequest, error) {
	now := resolveNow(s.Clock, nowOverride)

	if err := ledger.ValidateMint(asset); err != nil {
		return nil, err
	}
	req, err := machine.NewRequest(creator, recipient, amount, asset, memo, now)
	if err != nil {
		return nil, err
	}

	ref, err := s.Deriver.PaymentRequestRef(creator, recipient, amount, now)
	if err != nil {
		return nil, err
	}
	req.Ref = ref

	if err := store.New(s.Pool).CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	s.Events.Publish(events.Event{
		Type:   events.RequestCreated,
		Ref:    req.Ref,
		At:     now,
		Amount: strconv.FormatUint(req.Amount, 10),
		Asset:  req.Asset.String(),
		Status: string(req.Status),
	})
	return req, nil
}

func (s *RequestService) Get(ctx context.Context, ref string) (*models.PaymentRequest, error) {
	return store.New(s.Pool).GetRequest(ctx, ref)
}

// Pay fulfills a pending request on behalf of the payer. Record mutation and
// transfer are committed atomically: a gateway rejection rolls the status
// flip back.
func (s *RequestService) Pay(ctx context.Context, ref string, payer models.Address) (*models.PaymentRequest, error) {
	var paid *models.PaymentRequest

	err := pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		st := store.New(tx)
		req, err := st.GetRequestForUpdate(ctx, ref)
		if err != nil {
			return err
		}

		instruction, err := machine.Fulfill(req, payer)
		if err != nil {
			return err
		}

		updated, err := st.UpdateRequestStatus(ctx, ref, req.Status)
		if err != nil {
			return err
		}
		if updated == 0 {
			return machine.ErrNotPending
		}

		if err := applyTransfer(ctx, ledger.New(tx), instruction); err != nil {
			return err
		}
		paid = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Events.Publish(events.Event{
		Type:   events.RequestPaid,
		Ref:    paid.Ref,
		At:     resolveNow(s.Clock, nil),
		Amount: strconv.FormatUint(paid.Amount, 10),
		Asset:  paid.Asset.String(),
		Status: string(paid.Status),
	})
	return paid, nil
}

func applyTransfer(ctx context.Context, gw ledger.Gateway, in *machine.TransferInstruction) error {
	switch in.Kind {
	case machine.TransferNative:
		return gw.TransferNative(ctx, in.From, in.To, in.Amount)
	case machine.TransferFungible:
		from := ledger.AssociatedTokenAddress(in.From, in.Asset)
		to := ledger.AssociatedTokenAddress(in.To, in.Asset)
		return gw.TransferFungible(ctx, from, to, in.Authority, in.Amount)
	}
	return fmt.Errorf("unknown transfer kind %q", in.Kind)
}

func resolveNow(c clock.Clock, override *int64) int64 {
	if override != nil {
		return *override
	}
	return c.Now()
}
