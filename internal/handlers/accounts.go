package handlers

import (
	"net/http"

	"backoffice/internal/store"
)

func (h *Handler) MyAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	account, err := h.reports.Account(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if account == nil {
		respondJSON(w, http.StatusOK, map[string]any{"account": nil})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"account": accountJSON(*account)})
}

func (h *Handler) FinancialSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	months := parseInt(r.URL.Query().Get("months"), 0)
	if months > 24 {
		months = 24
	}
	summary, err := h.reports.FinancialSummary(r.Context(), userID, months)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	items := make([]map[string]any, 0, len(summary))
	for _, month := range summary {
		items = append(items, map[string]any{
			"month":   month.Month,
			"label":   month.Label,
			"income":  formatMoney(month.Income),
			"expense": formatMoney(month.Expense),
			"savings": formatMoney(month.Savings),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"months": items})
}

func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	statement, err := h.reports.Statement(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	var account any
	if statement.Account != nil {
		account = accountJSON(*statement.Account)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"customer": map[string]any{
			"full_name":   statement.Customer.FullName,
			"email":       statement.Customer.Email,
			"national_id": statement.Customer.NationalID,
			"phone":       statement.Customer.Phone,
		},
		"account": account,
		"lines": mapAll(statement.Lines, func(line store.StatementLine) map[string]any {
			return map[string]any{
				"id":           line.ID,
				"type":         line.Type,
				"amount":       formatMoney(line.Amount),
				"status":       line.Status,
				"description":  line.Description,
				"direction":    line.Direction,
				"counterparty": line.Counterparty,
				"created_at":   line.CreatedAt,
			}
		}),
		"summary": map[string]any{
			"incoming_count": statement.Summary.IncomingCount,
			"incoming_total": formatMoney(statement.Summary.IncomingTotal),
			"outgoing_count": statement.Summary.OutgoingCount,
			"outgoing_total": formatMoney(statement.Summary.OutgoingTotal),
		},
		"generated_at": statement.GeneratedAt,
	})
}
