package validation

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"blinkpay/internal/models"
)

func TestAmount(t *testing.T) {
	assert.ErrorIs(t, Amount(0), ErrInvalidAmount)
	assert.NoError(t, Amount(1))
	assert.NoError(t, Amount(MaxAmount))
	assert.ErrorIs(t, Amount(MaxAmount+1), ErrInvalidAmount)
	assert.ErrorIs(t, Amount(math.MaxUint64), ErrInvalidAmount)
}

func TestMemo(t *testing.T) {
	assert.NoError(t, Memo(""))
	assert.NoError(t, Memo(strings.Repeat("a", 200)))
	assert.ErrorIs(t, Memo(strings.Repeat("a", 201)), ErrMemoTooLong)
}

func TestFutureTimestamp(t *testing.T) {
	const now = int64(1_700_000_000)

	assert.NoError(t, FutureTimestamp(now, now))
	assert.NoError(t, FutureTimestamp(now-SkewToleranceSeconds, now))
	assert.ErrorIs(t, FutureTimestamp(now-SkewToleranceSeconds-1, now), ErrInvalidTimestamp)

	assert.NoError(t, FutureTimestamp(now+MaxIntervalSeconds, now))
	assert.ErrorIs(t, FutureTimestamp(now+MaxIntervalSeconds+1, now), ErrInvalidTimestamp)
}

func TestInterval(t *testing.T) {
	assert.ErrorIs(t, Interval(MinIntervalSeconds-1), ErrInvalidInterval)
	assert.NoError(t, Interval(MinIntervalSeconds))
	assert.NoError(t, Interval(MaxIntervalSeconds))
	assert.ErrorIs(t, Interval(MaxIntervalSeconds+1), ErrInvalidInterval)
}

func TestMaxExecutions(t *testing.T) {
	assert.ErrorIs(t, MaxExecutions(0), ErrInvalidMaxExecutions)
	assert.NoError(t, MaxExecutions(1))
	assert.NoError(t, MaxExecutions(MaxExecutionsLimit))
	assert.ErrorIs(t, MaxExecutions(MaxExecutionsLimit+1), ErrInvalidMaxExecutions)
}

func TestRecipientDistinct(t *testing.T) {
	var alice, bob models.Address
	alice[0] = 1
	bob[0] = 2

	assert.NoError(t, RecipientDistinct(bob, alice))
	assert.ErrorIs(t, RecipientDistinct(alice, alice), ErrInvalidRecipient)
}
