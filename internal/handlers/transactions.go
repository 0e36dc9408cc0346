package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"backoffice/internal/services"
	"backoffice/internal/store"
)

type internalTransferRequest struct {
	ToAccountNumber string      `json:"to_account_number" validate:"required,max=32"`
	Amount          json.Number `json:"amount" validate:"required,amount"`
	Description     string      `json:"description" validate:"max=255"`
}

type externalTransferRequest struct {
	TargetBank      string      `json:"target_bank" validate:"required,max=120"`
	TargetAccountNo string      `json:"target_account_no" validate:"required,max=64"`
	Amount          json.Number `json:"amount" validate:"required,amount"`
	Description     string      `json:"description" validate:"max=255"`
}

func (h *Handler) RecipientPreview(w http.ResponseWriter, r *http.Request) {
	holder, err := h.reports.RecipientPreview(r.Context(), chi.URLParam(r, "accountNumber"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"account_number": holder.AccountNumber,
		"full_name":      holder.FullName,
		"status":         holder.Status,
	})
}

func (h *Handler) TransferInternal(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req internalTransferRequest
	if !h.decodeOrRespond(w, r, &req) {
		return
	}
	amount, err := amountMinor(req.Amount)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	result, err := h.ledger.TransferInternal(r.Context(), services.InternalTransferRequest{
		UserID:          userID,
		ToAccountNumber: req.ToAccountNumber,
		Amount:          amount,
		Description:     req.Description,
	})
	if err != nil {
		// The failed attempt is on record, so the client gets its id.
		var unavailable *services.RecipientUnavailableError
		if errors.As(err, &unavailable) {
			respondJSON(w, http.StatusBadRequest, map[string]any{
				"error":          err.Error(),
				"status":         "failed",
				"transaction_id": unavailable.TransactionID,
			})
			return
		}
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, transferJSON(result))
}

func (h *Handler) TransferExternal(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req externalTransferRequest
	if !h.decodeOrRespond(w, r, &req) {
		return
	}
	amount, err := amountMinor(req.Amount)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	result, err := h.ledger.TransferExternal(r.Context(), services.ExternalTransferRequest{
		UserID:          userID,
		TargetBank:      req.TargetBank,
		TargetAccountNo: req.TargetAccountNo,
		Amount:          amount,
		Description:     req.Description,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, transferJSON(result))
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	page, err := h.reports.History(r.Context(), userID, parseInt(query.Get("page"), 1), parseInt(query.Get("limit"), 10))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transactions": mapAll(page.Items, detailJSON),
		"pagination": map[string]any{
			"total":        page.Total,
			"current_page": page.CurrentPage,
			"limit":        page.Limit,
			"has_more":     page.HasMore,
		},
	})
}

func (h *Handler) FrequentRecipients(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	result, err := h.reports.FrequentRecipients(r.Context(), userID, chi.URLParam(r, "kind"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	var recipients []map[string]any
	if result.Internal != nil {
		recipients = mapAll(result.Internal, func(row store.FrequentInternal) map[string]any {
			return map[string]any{
				"account_number": row.AccountNumber,
				"full_name":      row.FullName,
				"transfer_count": row.TransferCount,
				"last_transfer":  row.LastTransfer,
			}
		})
	} else {
		recipients = mapAll(result.External, func(row store.FrequentExternal) map[string]any {
			return map[string]any{
				"target_bank":       row.TargetBank,
				"target_account_no": row.TargetAccountNo,
				"transfer_count":    row.TransferCount,
				"last_transfer":     row.LastTransfer,
			}
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"kind": result.Kind, "recipients": recipients})
}

func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	receipt, err := h.reports.Receipt(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	payload := detailJSON(receipt.TransactionDetail)
	payload["from_account"] = receipt.FromAccount
	if receipt.BillingMonth != "" {
		payload["billing_month"] = receipt.BillingMonth
	}
	respondJSON(w, http.StatusOK, payload)
}
