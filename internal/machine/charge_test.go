package machine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blinkpay/internal/models"
	"blinkpay/internal/validation"
)

const baseTime = int64(1_700_000_000)

func u64ptr(v uint64) *uint64 { return &v }
func u32ptr(v uint32) *uint32 { return &v }

func newOneTime(t *testing.T, executeAt int64) *models.ScheduledCharge {
	t.Helper()
	c, err := NewCharge(NewChargeParams{
		Creator:        addr(1),
		Recipient:      addr(2),
		Amount:         1000,
		Asset:          models.NativeAsset,
		ExecuteAt:      executeAt,
		ChargeTypeCode: 0,
		Now:            baseTime,
	})
	require.NoError(t, err)
	return c
}

func newRecurring(t *testing.T, interval uint64, maxExecutions *uint32) *models.ScheduledCharge {
	t.Helper()
	c, err := NewCharge(NewChargeParams{
		Creator:         addr(1),
		Recipient:       addr(2),
		Amount:          1000,
		Asset:           models.NativeAsset,
		ExecuteAt:       baseTime,
		ChargeTypeCode:  1,
		IntervalSeconds: u64ptr(interval),
		MaxExecutions:   maxExecutions,
		Now:             baseTime,
	})
	require.NoError(t, err)
	return c
}

func TestNewChargeRejectsUnknownTypeCode(t *testing.T) {
	_, err := NewCharge(NewChargeParams{
		Creator:        addr(1),
		Recipient:      addr(2),
		Amount:         1,
		ExecuteAt:      baseTime,
		ChargeTypeCode: 2,
		Now:            baseTime,
	})
	assert.ErrorIs(t, err, ErrInvalidChargeType)
}

func TestNewChargeValidation(t *testing.T) {
	_, err := NewCharge(NewChargeParams{
		Creator: addr(1), Recipient: addr(2), Amount: 1,
		ExecuteAt: baseTime - 301, ChargeTypeCode: 0, Now: baseTime,
	})
	assert.ErrorIs(t, err, validation.ErrInvalidTimestamp)

	// recurring without an interval is malformed at creation time
	_, err = NewCharge(NewChargeParams{
		Creator: addr(1), Recipient: addr(2), Amount: 1,
		ExecuteAt: baseTime, ChargeTypeCode: 1, Now: baseTime,
	})
	assert.ErrorIs(t, err, validation.ErrInvalidInterval)

	_, err = NewCharge(NewChargeParams{
		Creator: addr(1), Recipient: addr(2), Amount: 1,
		ExecuteAt: baseTime, ChargeTypeCode: 1,
		IntervalSeconds: u64ptr(3599), Now: baseTime,
	})
	assert.ErrorIs(t, err, validation.ErrInvalidInterval)

	_, err = NewCharge(NewChargeParams{
		Creator: addr(1), Recipient: addr(2), Amount: 1,
		ExecuteAt: baseTime, ChargeTypeCode: 0,
		MaxExecutions: u32ptr(0), Now: baseTime,
	})
	assert.ErrorIs(t, err, validation.ErrInvalidMaxExecutions)
}

func TestIsDueSkewWindow(t *testing.T) {
	c := newOneTime(t, baseTime+1000)

	assert.False(t, IsDue(c, baseTime+1000-301))
	assert.True(t, IsDue(c, baseTime+1000-300))
	assert.True(t, IsDue(c, baseTime+1000))
}

func TestExecuteOneTime(t *testing.T) {
	c := newOneTime(t, baseTime)

	in, err := Execute(c, baseTime)
	require.NoError(t, err)

	assert.Equal(t, models.ChargeExecuted, c.Status)
	assert.Equal(t, uint32(1), c.ExecutionCount)
	require.NotNil(t, c.LastExecutedAt)
	assert.Equal(t, baseTime, *c.LastExecutedAt)

	assert.Equal(t, TransferNative, in.Kind)
	assert.Equal(t, addr(1), in.From)
	assert.Equal(t, addr(2), in.To)
	assert.Equal(t, uint64(1000), in.Amount)

	_, err = Execute(c, baseTime+10)
	assert.ErrorIs(t, err, ErrAlreadyExecuted)
}

func TestExecuteNotYetDue(t *testing.T) {
	c := newOneTime(t, baseTime+1000)

	_, err := Execute(c, baseTime+1000-301)
	assert.ErrorIs(t, err, ErrExecutionTimeNotReached)
	assert.Equal(t, models.ChargePending, c.Status)
	assert.Equal(t, uint32(0), c.ExecutionCount)

	_, err = Execute(c, baseTime+1000-300)
	assert.NoError(t, err)
}

func TestExecuteRecurringReschedules(t *testing.T) {
	c := newRecurring(t, 3600, nil)

	_, err := Execute(c, baseTime)
	require.NoError(t, err)

	assert.Equal(t, models.ChargePending, c.Status)
	assert.Equal(t, baseTime+3600, c.ExecuteAt)
	assert.Equal(t, uint32(1), c.ExecutionCount)

	// next round lands exactly interval later, no drift
	_, err = Execute(c, baseTime+3600)
	require.NoError(t, err)
	assert.Equal(t, baseTime+7200, c.ExecuteAt)
	assert.Equal(t, uint32(2), c.ExecutionCount)
}

func TestExecuteRecurringCap(t *testing.T) {
	c := newRecurring(t, 3600, u32ptr(2))

	_, err := Execute(c, baseTime)
	require.NoError(t, err)
	assert.Equal(t, models.ChargePending, c.Status)

	// the capping execution still proceeds, then terminates the charge
	in, err := Execute(c, baseTime+3600)
	require.NoError(t, err)
	assert.NotNil(t, in)
	assert.Equal(t, models.ChargeExecuted, c.Status)
	assert.Equal(t, uint32(2), c.ExecutionCount)

	_, err = Execute(c, baseTime+7200)
	assert.ErrorIs(t, err, ErrMaxExecutionsExceeded)
}

func TestExecuteCapOnPendingRecord(t *testing.T) {
	c := newRecurring(t, 3600, u32ptr(1))
	c.ExecutionCount = 1 // cap already reached but record left pending

	_, err := Execute(c, baseTime)
	assert.ErrorIs(t, err, ErrMaxExecutionsExceeded)
}

func TestExecuteRecurringWithoutIntervalTerminates(t *testing.T) {
	c := newRecurring(t, 3600, nil)
	c.IntervalSeconds = nil // malformed record

	in, err := Execute(c, baseTime)
	require.NoError(t, err)
	assert.NotNil(t, in)
	assert.Equal(t, models.ChargeExecuted, c.Status)
}

func TestExecuteCountOverflow(t *testing.T) {
	c := newRecurring(t, 3600, nil)
	c.ExecutionCount = math.MaxUint32

	_, err := Execute(c, baseTime)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestExecuteRescheduleOverflow(t *testing.T) {
	c := newRecurring(t, 3600, nil)

	_, err := Execute(c, math.MaxInt64-100)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestCancel(t *testing.T) {
	c := newOneTime(t, baseTime)

	err := Cancel(c, addr(9))
	assert.ErrorIs(t, err, ErrInvalidAuthority)
	assert.Equal(t, models.ChargePending, c.Status)

	require.NoError(t, Cancel(c, addr(1)))
	assert.Equal(t, models.ChargeCancelled, c.Status)

	err = Cancel(c, addr(1))
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestCancelExecuted(t *testing.T) {
	c := newOneTime(t, baseTime)
	_, err := Execute(c, baseTime)
	require.NoError(t, err)

	err = Cancel(c, addr(1))
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestExecuteTokenCharge(t *testing.T) {
	mint := tokenMint(7)
	c, err := NewCharge(NewChargeParams{
		Creator:        addr(1),
		Recipient:      addr(2),
		Amount:         250,
		Asset:          mint,
		ExecuteAt:      baseTime,
		ChargeTypeCode: 0,
		Now:            baseTime,
	})
	require.NoError(t, err)

	in, err := Execute(c, baseTime)
	require.NoError(t, err)

	assert.Equal(t, TransferFungible, in.Kind)
	assert.Equal(t, addr(1), in.Authority)
	assert.Equal(t, mint, in.Asset)
}
