package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"blinkpay/internal/db"
	"blinkpay/internal/models"
	"blinkpay/internal/validation"
)

// Store persists payment requests and scheduled charges. It is bound to a
// Querier so the same code runs against the pool or inside a transaction.
type Store struct {
	q db.Querier
}

func New(q db.Querier) *Store {
	return &Store{q: q}
}

const requestColumns = `ref, creator, recipient, amount, asset, memo, created_at, status`

func (s *Store) CreateRequest(ctx context.Context, req *models.PaymentRequest) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO payment_requests (
			ref, creator, recipient, amount, asset, memo, created_at, status, layout_version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		req.Ref,
		req.Creator.String(),
		req.Recipient.String(),
		strconv.FormatUint(req.Amount, 10),
		req.Asset.String(),
		req.Memo,
		req.CreatedAt,
		req.Status,
		models.LayoutVersion,
	)
	return err
}

func (s *Store) GetRequest(ctx context.Context, ref string) (*models.PaymentRequest, error) {
	return s.scanRequest(ctx, `SELECT `+requestColumns+` FROM payment_requests WHERE ref=$1`, ref)
}

// GetRequestForUpdate locks the record row; this is the serialization point
// for conflicting fulfillments of the same request.
func (s *Store) GetRequestForUpdate(ctx context.Context, ref string) (*models.PaymentRequest, error) {
	return s.scanRequest(ctx, `SELECT `+requestColumns+` FROM payment_requests WHERE ref=$1 FOR UPDATE`, ref)
}

func (s *Store) scanRequest(ctx context.Context, query, ref string) (*models.PaymentRequest, error) {
	row := s.q.QueryRow(ctx, query, ref)

	var req models.PaymentRequest
	var creator, recipient, amount, asset string
	if err := row.Scan(
		&req.Ref,
		&creator,
		&recipient,
		&amount,
		&asset,
		&req.Memo,
		&req.CreatedAt,
		&req.Status,
	); err != nil {
		return nil, err
	}
	if err := fillParties(&req.Creator, &req.Recipient, &req.Amount, &req.Asset, creator, recipient, amount, asset); err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateRequestStatus flips a pending request to its terminal status. The
// status guard in the WHERE clause backs up the row lock.
func (s *Store) UpdateRequestStatus(ctx context.Context, ref string, status models.RequestStatus) (int64, error) {
	res, err := s.q.Exec(ctx, `
		UPDATE payment_requests
		SET status=$2, updated_at=now()
		WHERE ref=$1 AND status='pending'
	`, ref, status)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

const chargeColumns = `ref, creator, recipient, amount, asset, charge_type, execute_at,
		interval_seconds, last_executed_at, max_executions, execution_count,
		memo, created_at, status`

func (s *Store) CreateCharge(ctx context.Context, c *models.ScheduledCharge) error {
	var interval, lastExecuted *int64
	if c.IntervalSeconds != nil {
		v := int64(*c.IntervalSeconds)
		interval = &v
	}
	if c.LastExecutedAt != nil {
		v := *c.LastExecutedAt
		lastExecuted = &v
	}
	var maxExecutions *int32
	if c.MaxExecutions != nil {
		v := int32(*c.MaxExecutions)
		maxExecutions = &v
	}

	_, err := s.q.Exec(ctx, `
		INSERT INTO scheduled_charges (
			ref, creator, recipient, amount, asset, charge_type, execute_at,
			interval_seconds, last_executed_at, max_executions, execution_count,
			memo, created_at, status, layout_version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		c.Ref,
		c.Creator.String(),
		c.Recipient.String(),
		strconv.FormatUint(c.Amount, 10),
		c.Asset.String(),
		c.ChargeType,
		c.ExecuteAt,
		interval,
		lastExecuted,
		maxExecutions,
		int64(c.ExecutionCount),
		c.Memo,
		c.CreatedAt,
		c.Status,
		models.LayoutVersion,
	)
	return err
}

func (s *Store) GetCharge(ctx context.Context, ref string) (*models.ScheduledCharge, error) {
	row := s.q.QueryRow(ctx, `SELECT `+chargeColumns+` FROM scheduled_charges WHERE ref=$1`, ref)
	return scanCharge(row)
}

func (s *Store) GetChargeForUpdate(ctx context.Context, ref string) (*models.ScheduledCharge, error) {
	row := s.q.QueryRow(ctx, `SELECT `+chargeColumns+` FROM scheduled_charges WHERE ref=$1 FOR UPDATE`, ref)
	return scanCharge(row)
}

// UpdateChargeExecution persists the post-execution record: counter, schedule
// and status, guarded on the record still being pending.
func (s *Store) UpdateChargeExecution(ctx context.Context, c *models.ScheduledCharge) (int64, error) {
	var lastExecuted *int64
	if c.LastExecutedAt != nil {
		v := *c.LastExecutedAt
		lastExecuted = &v
	}
	res, err := s.q.Exec(ctx, `
		UPDATE scheduled_charges
		SET execute_at=$2, last_executed_at=$3, execution_count=$4, status=$5, updated_at=now()
		WHERE ref=$1 AND status='pending'
	`, c.Ref, c.ExecuteAt, lastExecuted, int64(c.ExecutionCount), c.Status)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

// DeleteCharge reclaims a cancelled charge's storage. Executed and exhausted
// charges are kept as history and never pass through here.
func (s *Store) DeleteCharge(ctx context.Context, ref string) (int64, error) {
	res, err := s.q.Exec(ctx, `DELETE FROM scheduled_charges WHERE ref=$1`, ref)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

// ListDueCharges returns pending charges whose due window (including the skew
// buffer) has opened at the given time.
func (s *Store) ListDueCharges(ctx context.Context, now int64, limit int) ([]*models.ScheduledCharge, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.q.Query(ctx, `
		SELECT `+chargeColumns+`
		FROM scheduled_charges
		WHERE status='pending' AND execute_at <= $1
		ORDER BY execute_at
		LIMIT $2
	`, now+validation.SkewToleranceSeconds, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var charges []*models.ScheduledCharge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		charges = append(charges, c)
	}
	return charges, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCharge(row rowScanner) (*models.ScheduledCharge, error) {
	var c models.ScheduledCharge
	var creator, recipient, amount, asset string
	var interval, lastExecuted sql.NullInt64
	var maxExecutions sql.NullInt32
	var executionCount int64

	if err := row.Scan(
		&c.Ref,
		&creator,
		&recipient,
		&amount,
		&asset,
		&c.ChargeType,
		&c.ExecuteAt,
		&interval,
		&lastExecuted,
		&maxExecutions,
		&executionCount,
		&c.Memo,
		&c.CreatedAt,
		&c.Status,
	); err != nil {
		return nil, err
	}
	c.ExecutionCount = uint32(executionCount)
	if err := fillParties(&c.Creator, &c.Recipient, &c.Amount, &c.Asset, creator, recipient, amount, asset); err != nil {
		return nil, err
	}

	if interval.Valid {
		v := uint64(interval.Int64)
		c.IntervalSeconds = &v
	}
	if lastExecuted.Valid {
		v := lastExecuted.Int64
		c.LastExecutedAt = &v
	}
	if maxExecutions.Valid {
		v := uint32(maxExecutions.Int32)
		c.MaxExecutions = &v
	}
	return &c, nil
}

func fillParties(creator, recipient *models.Address, amount *uint64, asset *models.Asset, creatorRaw, recipientRaw, amountRaw, assetRaw string) error {
	var err error
	if *creator, err = models.ParseAddress(creatorRaw); err != nil {
		return fmt.Errorf("creator: %w", err)
	}
	if *recipient, err = models.ParseAddress(recipientRaw); err != nil {
		return fmt.Errorf("recipient: %w", err)
	}
	if *amount, err = strconv.ParseUint(amountRaw, 10, 64); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	if *asset, err = models.ParseAsset(assetRaw); err != nil {
		return fmt.Errorf("asset: %w", err)
	}
	return nil
}
