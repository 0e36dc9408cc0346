package handlers

import (
	"encoding/json"
	"net/http"

	"backoffice/internal/services"
	"backoffice/internal/store"
)

type billEstimateRequest struct {
	BillerID       string `json:"biller_id" validate:"required"`
	ConsumerNumber string `json:"consumer_number" validate:"required,max=64"`
}

type payBillRequest struct {
	BillerID       string      `json:"biller_id" validate:"required"`
	ConsumerNumber string      `json:"consumer_number" validate:"required,max=64"`
	Amount         json.Number `json:"amount" validate:"required,amount"`
}

func (h *Handler) ActiveBillers(w http.ResponseWriter, r *http.Request) {
	billers, err := h.admin.ListBillers(r.Context(), true)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"billers": mapAll(billers, billerJSON)})
}

func (h *Handler) BillEstimate(w http.ResponseWriter, r *http.Request) {
	var req billEstimateRequest
	if !h.decodeOrRespond(w, r, &req) {
		return
	}
	estimate, err := h.ledger.BillAmountEstimate(r.Context(), req.BillerID, req.ConsumerNumber)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"biller_id":       estimate.BillerID,
		"biller_name":     estimate.BillerName,
		"consumer_number": estimate.ConsumerNumber,
		"amount":          formatMoney(estimate.Amount),
	})
}

func (h *Handler) PayBill(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req payBillRequest
	if !h.decodeOrRespond(w, r, &req) {
		return
	}
	amount, err := amountMinor(req.Amount)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	result, err := h.ledger.PayBill(r.Context(), services.BillPaymentRequest{
		UserID:         userID,
		BillerID:       req.BillerID,
		ConsumerNumber: req.ConsumerNumber,
		Amount:         amount,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"transaction_id":  result.TransactionID,
		"biller_name":     result.BillerName,
		"consumer_number": result.ConsumerNumber,
		"amount":          formatMoney(result.Amount),
		"billing_month":   result.BillingMonth,
		"balance_after":   formatMoney(result.BalanceAfter),
		"created_at":      result.CreatedAt,
	})
}

func (h *Handler) BillHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	lines, err := h.reports.BillHistory(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"payments": mapAll(lines, func(line store.BillHistoryLine) map[string]any {
			return map[string]any{
				"transaction_id":  line.TransactionID,
				"biller_id":       line.BillerID,
				"biller_name":     line.BillerName,
				"category":        line.Category,
				"consumer_number": line.ConsumerNumber,
				"amount":          formatMoney(line.Amount),
				"status":          line.Status,
				"created_at":      line.CreatedAt,
			}
		}),
	})
}
