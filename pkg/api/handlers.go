package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goran-ethernal/PaymentIndexor/internal/common"
	"github.com/goran-ethernal/PaymentIndexor/internal/ledger"
	"github.com/goran-ethernal/PaymentIndexor/internal/logger"
	"github.com/goran-ethernal/PaymentIndexor/internal/types"
	"github.com/holiman/uint256"
)

// LedgerReader is the read side of the payment ledger served by the API.
type LedgerReader interface {
	LatestBlock(ctx context.Context) (ledger.StoredBlock, error)
	BlockByNumber(ctx context.Context, blockNumber uint64) (ledger.BlockWithPayments, error)
	PaymentsByInvoice(ctx context.Context, invoiceID types.Uint128) ([]ledger.StoredPayment, error)
	TotalPaidForInvoice(ctx context.Context, invoiceID types.Uint128, asset types.Felt) (*uint256.Int, error)
	Stats(ctx context.Context) (ledger.Stats, error)
}

// Handler handles HTTP requests for the API.
type Handler struct {
	reader LedgerReader
	log    *logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(reader LedgerReader, log *logger.Logger) *Handler {
	return &Handler{
		reader: reader,
		log:    log,
	}
}

// Health reports whether the ledger is readable and its latest block.
// @Summary Health check
// @Description Reports "ok" with the latest stored block, or "degraded" when the ledger cannot be read
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{Status: "ok", Timestamp: time.Now()}

	latest, err := h.reader.LatestBlock(r.Context())
	switch {
	case err == nil:
		response.LatestBlock = &latest.BlockNumber
	case errors.Is(err, ledger.ErrNotFound):
	default:
		h.log.Warnw("health check failed", "error", err)
		response.Status = "degraded"
		respondJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// GetStatus returns ledger row counts and the stored block range.
// @Summary Ledger status
// @Tags Ledger
// @Produce json
// @Success 200 {object} StatusResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/status [get]
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reader.Stats(r.Context())
	if err != nil {
		h.log.Errorw("failed to query ledger stats", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to query ledger stats")
		return
	}

	respondJSON(w, http.StatusOK, StatusResponse(stats))
}

// GetLatestBlock returns the highest stored block.
// @Summary Latest stored block
// @Tags Blocks
// @Produce json
// @Success 200 {object} BlockResponse
// @Failure 404 {object} ErrorResponse "Ledger is empty"
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/blocks/latest [get]
func (h *Handler) GetLatestBlock(w http.ResponseWriter, r *http.Request) {
	latest, err := h.reader.LatestBlock(r.Context())
	if err != nil {
		h.respondLedgerError(w, err, "ledger is empty")
		return
	}

	respondJSON(w, http.StatusOK, BlockResponse{BlockNumber: latest.BlockNumber, BlockHash: latest.BlockHash})
}

// GetBlock returns one stored block and its payments. The number may be decimal or 0x hex.
// @Summary Stored block with its payments
// @Tags Blocks
// @Produce json
// @Param number path string true "Block number, decimal or 0x hex"
// @Success 200 {object} BlockResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/blocks/{number} [get]
func (h *Handler) GetBlock(w http.ResponseWriter, r *http.Request) {
	number, err := common.ParseBlockNumber(r.PathValue("number"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid block number")
		return
	}

	block, err := h.reader.BlockByNumber(r.Context(), number)
	if err != nil {
		h.respondLedgerError(w, err, fmt.Sprintf("block %d not found", number))
		return
	}

	respondJSON(w, http.StatusOK, BlockResponse{
		BlockNumber: block.BlockNumber,
		BlockHash:   block.BlockHash,
		Payments:    toPaymentResponses(block.Payments),
	})
}

// GetInvoicePayments returns the payments of one invoice with per-asset totals.
// The optional asset query parameter restricts both to a single asset.
// @Summary Payments made towards an invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice id, decimal or 0x hex"
// @Param asset query string false "Asset contract address, 0x hex"
// @Success 200 {object} InvoicePaymentsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/invoices/{id}/payments [get]
func (h *Handler) GetInvoicePayments(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := parseInvoiceID(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid invoice id: %v", err))
		return
	}

	var asset *types.Felt
	if raw := r.URL.Query().Get("asset"); raw != "" {
		parsed, err := types.FeltFromHex(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid asset: %v", err))
			return
		}
		asset = &parsed
	}

	stored, err := h.reader.PaymentsByInvoice(r.Context(), invoiceID)
	if err != nil {
		h.log.Errorw("failed to query invoice payments", "invoice_id", invoiceID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to query invoice payments")
		return
	}

	payments := make([]ledger.StoredPayment, 0, len(stored))
	totals := make(map[string]*uint256.Int)
	for _, p := range stored {
		if asset != nil && p.Event.Asset != *asset {
			continue
		}
		payments = append(payments, p)

		key := p.Event.Asset.Hex()
		total, ok := totals[key]
		if !ok {
			total = new(uint256.Int)
			totals[key] = total
		}
		if _, overflow := total.AddOverflow(total, p.Event.Amount); overflow {
			respondError(w, http.StatusInternalServerError, "invoice total overflows 256 bits")
			return
		}
	}

	response := InvoicePaymentsResponse{
		InvoiceID: invoiceID,
		Payments:  toPaymentResponses(payments),
		Totals:    make(map[string]string, len(totals)),
	}
	for a, total := range totals {
		response.Totals[a] = total.Dec()
	}

	respondJSON(w, http.StatusOK, response)
}

// GetInvoiceTotal returns the amount paid towards one invoice in the asset given
// by the required asset query parameter.
// @Summary Total paid towards an invoice in one asset
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice id, decimal or 0x hex"
// @Param asset query string true "Asset contract address, 0x hex"
// @Success 200 {object} InvoiceTotalResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/invoices/{id}/total [get]
func (h *Handler) GetInvoiceTotal(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := parseInvoiceID(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid invoice id: %v", err))
		return
	}

	raw := r.URL.Query().Get("asset")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "asset query parameter is required")
		return
	}
	asset, err := types.FeltFromHex(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid asset: %v", err))
		return
	}

	total, err := h.reader.TotalPaidForInvoice(r.Context(), invoiceID, asset)
	if err != nil {
		h.log.Errorw("failed to total invoice payments", "invoice_id", invoiceID, "asset", asset, "error", err)
		if errors.Is(err, types.ErrOverflow) {
			respondError(w, http.StatusInternalServerError, "invoice total overflows 256 bits")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to total invoice payments")
		return
	}

	respondJSON(w, http.StatusOK, InvoiceTotalResponse{
		InvoiceID: invoiceID,
		Asset:     asset,
		Total:     total.Dec(),
	})
}

func (h *Handler) respondLedgerError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, ledger.ErrNotFound) {
		respondError(w, http.StatusNotFound, notFound)
		return
	}

	h.log.Errorw("ledger query failed", "error", err)
	respondError(w, http.StatusInternalServerError, "ledger query failed")
}

// parseInvoiceID accepts a decimal or a 0x-prefixed hex invoice id.
func parseInvoiceID(s string) (types.Uint128, error) {
	if s == "" {
		return types.Uint128{}, errors.New("empty")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return types.ParseUint128Hex(s)
	}

	v, err := uint256.FromDecimal(s)
	if err != nil {
		return types.Uint128{}, err
	}
	return types.Uint128FromUint256(v)
}

func toPaymentResponses(stored []ledger.StoredPayment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(stored))
	for _, p := range stored {
		out = append(out, PaymentResponse{
			BlockNumber: p.BlockNumber,
			EventIndex:  p.EventIndex,
			Asset:       p.Event.Asset,
			InvoiceID:   p.Event.InvoiceID,
			Amount:      p.Event.Amount.Dec(),
		})
	}
	return out
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")

	// encode first so a failure can still change the status
	encoded, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	w.Write(encoded) //nolint:errcheck
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}
	respondJSON(w, status, response)
}
