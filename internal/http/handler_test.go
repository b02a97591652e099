package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blinkpay/internal/ledger"
	"blinkpay/internal/machine"
	"blinkpay/internal/models"
	"blinkpay/internal/services"
)

type stubRequests struct {
	createErr error
	payErr    error
	record    *models.PaymentRequest
}

func (s *stubRequests) Create(ctx context.Context, creator, recipient models.Address, amount uint64, asset models.Asset, memo string, now *int64) (*models.PaymentRequest, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.PaymentRequest{
		Ref:       "blink1req",
		Creator:   creator,
		Recipient: recipient,
		Amount:    amount,
		Asset:     asset,
		Memo:      memo,
		Status:    models.RequestPending,
	}, nil
}

func (s *stubRequests) Get(ctx context.Context, ref string) (*models.PaymentRequest, error) {
	if s.record == nil {
		return nil, pgx.ErrNoRows
	}
	return s.record, nil
}

func (s *stubRequests) Pay(ctx context.Context, ref string, payer models.Address) (*models.PaymentRequest, error) {
	if s.payErr != nil {
		return nil, s.payErr
	}
	r := *s.record
	r.Status = models.RequestPaid
	return &r, nil
}

type stubCharges struct {
	executeErr error
	cancelErr  error
	record     *models.ScheduledCharge
}

func (s *stubCharges) Create(ctx context.Context, in services.CreateChargeInput) (*models.ScheduledCharge, error) {
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
		Now:             in.ExecuteAt,
	})
	if err != nil {
		return nil, err
	}
	charge.Ref = "blink1charge"
	return charge, nil
}

func (s *stubCharges) Get(ctx context.Context, ref string) (*models.ScheduledCharge, error) {
	if s.record == nil {
		return nil, pgx.ErrNoRows
	}
	return s.record, nil
}

func (s *stubCharges) Execute(ctx context.Context, ref string, now *int64) (*models.ScheduledCharge, error) {
	if s.executeErr != nil {
		return nil, s.executeErr
	}
	return s.record, nil
}

func (s *stubCharges) Cancel(ctx context.Context, ref string, caller models.Address) error {
	return s.cancelErr
}

func testServer(requests *stubRequests, charges *stubCharges) *httptest.Server {
	h := NewHandler(requests, charges)
	return httptest.NewServer(NewServer(h, nil).Router)
}

func testIdentity() string {
	var a models.Address
	a[0] = 42
	return a.String()
}

func doJSON(t *testing.T, method, url, identity, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if identity != "" {
		req.Header.Set("X-Identity", identity)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestCreateRequestEndpoint(t *testing.T) {
	srv := testServer(&stubRequests{}, &stubCharges{})
	defer srv.Close()

	var recipient models.Address
	recipient[0] = 7
	body := `{"recipient":"` + recipient.String() + `","amount":"1000","memo":"rent"}`

	resp := doJSON(t, http.MethodPost, srv.URL+"/requests", testIdentity(), body)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got requestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "blink1req", got.Ref)
	assert.Equal(t, "1000", got.Amount)
	assert.Equal(t, string(models.RequestPending), got.Status)
}

func TestCreateRequestRequiresIdentity(t *testing.T) {
	srv := testServer(&stubRequests{}, &stubCharges{})
	defer srv.Close()

	resp := doJSON(t, http.MethodPost, srv.URL+"/requests", "", `{}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateRequestBadAmount(t *testing.T) {
	srv := testServer(&stubRequests{}, &stubCharges{})
	defer srv.Close()

	var recipient models.Address
	recipient[0] = 7
	body := `{"recipient":"` + recipient.String() + `","amount":"not-a-number"}`

	resp := doJSON(t, http.MethodPost, srv.URL+"/requests", testIdentity(), body)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"already paid", machine.ErrAlreadyPaid, http.StatusConflict},
		{"cancelled", machine.ErrCancelled, http.StatusConflict},
		{"not found", pgx.ErrNoRows, http.StatusNotFound},
		{"insufficient funds", ledger.ErrInsufficientFunds, http.StatusPaymentRequired},
		{"token owner", ledger.ErrInvalidTokenAccountOwner, http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			requests := &stubRequests{
				record: &models.PaymentRequest{Ref: "blink1req", Status: models.RequestPending},
				payErr: tc.err,
			}
			srv := testServer(requests, &stubCharges{})
			defer srv.Close()

			resp := doJSON(t, http.MethodPost, srv.URL+"/requests/blink1req/pay", testIdentity(), "")
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestExecuteChargeNotDue(t *testing.T) {
	charges := &stubCharges{executeErr: machine.ErrExecutionTimeNotReached}
	srv := testServer(&stubRequests{}, charges)
	defer srv.Close()

	resp := doJSON(t, http.MethodPost, srv.URL+"/charges/blink1charge/execute", "", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
}

func TestCancelChargeForbidden(t *testing.T) {
	charges := &stubCharges{cancelErr: machine.ErrInvalidAuthority}
	srv := testServer(&stubRequests{}, charges)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/charges/blink1charge", nil)
	require.NoError(t, err)
	req.Header.Set("X-Identity", testIdentity())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreateChargeRejectsUnknownType(t *testing.T) {
	srv := testServer(&stubRequests{}, &stubCharges{})
	defer srv.Close()

	var recipient models.Address
	recipient[0] = 7
	body := `{"recipient":"` + recipient.String() + `","amount":"100","executeAt":1700000000,"chargeType":5}`

	resp := doJSON(t, http.MethodPost, srv.URL+"/charges", testIdentity(), body)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetChargeRaw(t *testing.T) {
	charges := &stubCharges{record: &models.ScheduledCharge{
		Ref:        "blink1charge",
		ChargeType: models.ChargeOneTime,
		Status:     models.ChargePending,
	}}
	srv := testServer(&stubRequests{}, charges)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/charges/blink1charge/raw")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got rawResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "blink1charge", got.Ref)
	assert.NotEmpty(t, got.Record)
}
