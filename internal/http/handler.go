package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"blinkpay/internal/ledger"
	"blinkpay/internal/machine"
	"blinkpay/internal/models"
	"blinkpay/internal/services"
	"blinkpay/internal/validation"
)

type RequestAPI interface {
	Create(ctx context.Context, creator, recipient models.Address, amount uint64, asset models.Asset, memo string, now *int64) (*models.PaymentRequest, error)
	Get(ctx context.Context, ref string) (*models.PaymentRequest, error)
	Pay(ctx context.Context, ref string, payer models.Address) (*models.PaymentRequest, error)
}

type ChargeAPI interface {
	Create(ctx context.Context, in services.CreateChargeInput) (*models.ScheduledCharge, error)
	Get(ctx context.Context, ref string) (*models.ScheduledCharge, error)
	Execute(ctx context.Context, ref string, now *int64) (*models.ScheduledCharge, error)
	Cancel(ctx context.Context, ref string, caller models.Address) error
}

type Handler struct {
	Requests RequestAPI
	Charges  ChargeAPI
}

func NewHandler(requests RequestAPI, charges ChargeAPI) *Handler {
	return &Handler{Requests: requests, Charges: charges}
}

type createRequestBody struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Asset     string `json:"asset,omitempty"`
	Memo      string `json:"memo,omitempty"`
	Now       *int64 `json:"now,omitempty"`
}

type requestResponse struct {
	Ref       string `json:"ref"`
	Creator   string `json:"creator"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Asset     string `json:"asset"`
	Memo      string `json:"memo,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	Status    string `json:"status"`
}

type createChargeBody struct {
	Recipient       string  `json:"recipient"`
	Amount          string  `json:"amount"`
	Asset           string  `json:"asset,omitempty"`
	ExecuteAt       int64   `json:"executeAt"`
	ChargeType      uint8   `json:"chargeType"`
	IntervalSeconds *uint64 `json:"intervalSeconds,omitempty"`
	MaxExecutions   *uint32 `json:"maxExecutions,omitempty"`
	Memo            string  `json:"memo,omitempty"`
	Now             *int64  `json:"now,omitempty"`
}

type chargeResponse struct {
	Ref             string  `json:"ref"`
	Creator         string  `json:"creator"`
	Recipient       string  `json:"recipient"`
	Amount          string  `json:"amount"`
	Asset           string  `json:"asset"`
	ChargeType      string  `json:"chargeType"`
	ExecuteAt       int64   `json:"executeAt"`
	IntervalSeconds *uint64 `json:"intervalSeconds,omitempty"`
	LastExecutedAt  *int64  `json:"lastExecutedAt,omitempty"`
	MaxExecutions   *uint32 `json:"maxExecutions,omitempty"`
	ExecutionCount  uint32  `json:"executionCount"`
	Memo            string  `json:"memo,omitempty"`
	CreatedAt       int64   `json:"createdAt"`
	Status          string  `json:"status"`
}

type rawResponse struct {
	Ref    string `json:"ref"`
	Record string `json:"record"`
}

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	creator, ok := identity(w, r)
	if !ok {
		return
	}

	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	recipient, err := models.ParseAddress(body.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recipient address")
		return
	}
	asset, err := models.ParseAsset(body.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	amount, err := strconv.ParseUint(body.Amount, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	req, err := h.Requests.Create(r.Context(), creator, recipient, amount, asset, body.Memo, body.Now)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestResponse(req))
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Requests.Get(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(req))
}

func (h *Handler) GetRequestRaw(w http.ResponseWriter, r *http.Request) {
	req, err := h.Requests.Get(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, err)
		return
	}
	raw, err := models.EncodeRequest(req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rawResponse{Ref: req.Ref, Record: base64.StdEncoding.EncodeToString(raw)})
}

func (h *Handler) PayRequest(w http.ResponseWriter, r *http.Request) {
	payer, ok := identity(w, r)
	if !ok {
		return
	}

	req, err := h.Requests.Pay(r.Context(), chi.URLParam(r, "ref"), payer)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(req))
}

func (h *Handler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	creator, ok := identity(w, r)
	if !ok {
		return
	}

	var body createChargeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	recipient, err := models.ParseAddress(body.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recipient address")
		return
	}
	asset, err := models.ParseAsset(body.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	amount, err := strconv.ParseUint(body.Amount, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	charge, err := h.Charges.Create(r.Context(), services.CreateChargeInput{
		Creator:         creator,
		Recipient:       recipient,
		Amount:          amount,
		Asset:           asset,
		ExecuteAt:       body.ExecuteAt,
		ChargeTypeCode:  body.ChargeType,
		IntervalSeconds: body.IntervalSeconds,
		MaxExecutions:   body.MaxExecutions,
		Memo:            body.Memo,
		Now:             body.Now,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toChargeResponse(charge))
}

func (h *Handler) GetCharge(w http.ResponseWriter, r *http.Request) {
	charge, err := h.Charges.Get(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChargeResponse(charge))
}

func (h *Handler) GetChargeRaw(w http.ResponseWriter, r *http.Request) {
	charge, err := h.Charges.Get(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, err)
		return
	}
	raw, err := models.EncodeCharge(charge)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rawResponse{Ref: charge.Ref, Record: base64.StdEncoding.EncodeToString(raw)})
}

type executeChargeBody struct {
	Now *int64 `json:"now,omitempty"`
}

func (h *Handler) ExecuteCharge(w http.ResponseWriter, r *http.Request) {
	var body executeChargeBody
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
	}

	charge, err := h.Charges.Execute(r.Context(), chi.URLParam(r, "ref"), body.Now)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChargeResponse(charge))
}

func (h *Handler) CancelCharge(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.Charges.Cancel(r.Context(), chi.URLParam(r, "ref"), caller); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.ChargeCancelled)})
}

func identity(w http.ResponseWriter, r *http.Request) (models.Address, bool) {
	raw := r.Header.Get("X-Identity")
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return models.Address{}, false
	}
	addr, err := models.ParseAddress(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid identity address")
		return models.Address{}, false
	}
	return addr, true
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		writeError(w, http.StatusNotFound, "record not found")
	case errors.Is(err, validation.ErrInvalidAmount),
		errors.Is(err, validation.ErrMemoTooLong),
		errors.Is(err, validation.ErrInvalidTimestamp),
		errors.Is(err, validation.ErrInvalidInterval),
		errors.Is(err, validation.ErrInvalidMaxExecutions),
		errors.Is(err, validation.ErrInvalidRecipient),
		errors.Is(err, machine.ErrInvalidChargeType),
		errors.Is(err, models.ErrBadAddress):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, machine.ErrInvalidAuthority):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, machine.ErrExecutionTimeNotReached):
		writeError(w, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, machine.ErrAlreadyPaid),
		errors.Is(err, machine.ErrAlreadyExecuted),
		errors.Is(err, machine.ErrCancelled),
		errors.Is(err, machine.ErrNotPending),
		errors.Is(err, machine.ErrMaxExecutionsExceeded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, ledger.ErrInvalidTokenAccountOwner),
		errors.Is(err, ledger.ErrInvalidAssociatedTokenAccount),
		errors.Is(err, ledger.ErrInvalidTokenMint):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, machine.ErrOverflow):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "operation failed")
	}
}

func toRequestResponse(req *models.PaymentRequest) requestResponse {
	return requestResponse{
		Ref:       req.Ref,
		Creator:   req.Creator.String(),
		Recipient: req.Recipient.String(),
		Amount:    strconv.FormatUint(req.Amount, 10),
		Asset:     req.Asset.String(),
		Memo:      req.Memo,
		CreatedAt: req.CreatedAt,
		Status:    string(req.Status),
	}
}

func toChargeResponse(c *models.ScheduledCharge) chargeResponse {
	return chargeResponse{
		Ref:             c.Ref,
		Creator:         c.Creator.String(),
		Recipient:       c.Recipient.String(),
		Amount:          strconv.FormatUint(c.Amount, 10),
		Asset:           c.Asset.String(),
		ChargeType:      string(c.ChargeType),
		ExecuteAt:       c.ExecuteAt,
		IntervalSeconds: c.IntervalSeconds,
		LastExecutedAt:  c.LastExecutedAt,
		MaxExecutions:   c.MaxExecutions,
		ExecutionCount:  c.ExecutionCount,
		Memo:            c.Memo,
		CreatedAt:       c.CreatedAt,
		Status:          string(c.Status),
	}
}
