// Package worker drives scheduled charges to execution. Any party may trigger
// a due charge; this daemon is just the house executor so due charges do not
// sit idle waiting for a motivated counterparty.
package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"blinkpay/internal/clock"
	"blinkpay/internal/machine"
	"blinkpay/internal/models"
)

type DueLister interface {
	ListDueCharges(ctx context.Context, now int64, limit int) ([]*models.ScheduledCharge, error)
}

type Executor interface {
	Execute(ctx context.Context, ref string, now *int64) (*models.ScheduledCharge, error)
}

type Worker struct {
	Store     DueLister
	Charges   Executor
	Clock     clock.Clock
	Interval  time.Duration
	BatchSize int
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		if err := w.TickOnce(ctx); err != nil {
			log.Printf("tick error: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// TickOnce executes every charge whose due window has opened. A charge that
// lost the race to another executor between listing and locking is skipped,
// not retried.
func (w *Worker) TickOnce(ctx context.Context) error {
	now := w.Clock.Now()

	charges, err := w.Store.ListDueCharges(ctx, now, w.BatchSize)
	if err != nil {
		return err
	}
	if len(charges) == 0 {
		return nil
	}
	log.Printf("tick now=%d due=%d", now, len(charges))

	for _, charge := range charges {
		executed, err := w.Charges.Execute(ctx, charge.Ref, nil)
		if err != nil {
			if raced(err) {
				continue
			}
			log.Printf("execute charge %s failed: %v", charge.Ref, err)
			continue
		}
		log.Printf("charge %s executed count=%d status=%s", executed.Ref, executed.ExecutionCount, executed.Status)
	}
	return nil
}

func raced(err error) bool {
	return errors.Is(err, machine.ErrNotPending) ||
		errors.Is(err, machine.ErrAlreadyExecuted) ||
		errors.Is(err, machine.ErrCancelled) ||
		errors.Is(err, machine.ErrExecutionTimeNotReached) ||
		errors.Is(err, machine.ErrMaxExecutionsExceeded)
}
