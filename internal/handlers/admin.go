package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"backoffice/internal/services"
	"backoffice/internal/store"
)

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type billerRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Category string `json:"category" validate:"required"`
}

type broadcastRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message" validate:"required,max=1000"`
}

type respondTicketRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
	Status  string `json:"status"`
}

func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.reports.Dashboard(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"total_customers":  dashboard.TotalCustomers,
		"active_customers": dashboard.ActiveCustomers,
		"total_funds":      formatMoney(dashboard.TotalFunds),
		"today": map[string]any{
			"count":  dashboard.Today.Count,
			"amount": formatMoney(dashboard.Today.Amount),
		},
		"last_7_days":  mapAll(dashboard.Last7, dayJSON),
		"last_30_days": mapAll(dashboard.Last30, dayJSON),
	})
}

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListUsers(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": mapAll(users, userJSON)})
}

func (h *Handler) AdminSetUserStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !h.decodeOrRespond(w, r, &req) {
		return
	}
	result, err := h.admin.SetUserStatus(r.Context(), actorID, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, statusJSON(result))
}

func (h *Handler) AdminListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.admin.ListAccounts(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"accounts": mapAll(accounts, func(a store.AccountWithOwner) map[string]any {
			row := accountJSON(a.Account)
			row["user_id"] = a.UserID
			row["full_name"] = a.FullName
			row["email"] = a.Email
			row["user_status"] = a.UserStatus
			return row
		}),
	})
}

func (h *Handler) AdminSetAccountStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !h.decodeOrRespond(w, r, &req) {
		return
	}
	result, err := h.admin.SetAccountStatus(r.Context(), actorID, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, statusJSON(result))
}

func (h *Handler) AdminListBillers(w http.ResponseWriter, r *http.Request) {
	billers, err := h.admin.ListBillers(r.Context(), false)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"billers": mapAll(billers, billerJSON)})
}

func (h *Handler) AdminAddBiller(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req billerRequest
	if !h.decodeOrRespond(w, r, &req) {
		return
	}
	biller, err := h.admin.AddBiller(r.Context(), actorID, req.Name, req.Category)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, billerJSON(biller))
}

func (h *Handler) AdminSetBillerStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !h.decodeOrRespond(w, r, &req) {
		return
	}
	if err := h.admin.SetBillerStatus(r.Context(), actorID, chi.URLParam(r, "id"), req.Status); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Biller status updated"})
}

func (h *Handler) AdminDeleteBiller(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.admin.DeleteBiller(r.Context(), actorID, chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Biller deleted"})
}

func (h *Handler) AdminBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if !h.decodeOrRespond(w, r, &req) {
		return
	}
	sent, err := h.notifications.Broadcast(r.Context(), services.BroadcastRequest{
		UserID:  req.UserID,
		Message: req.Message,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "Broadcast sent", "recipients": sent})
}

func (h *Handler) AdminListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.support.AllTickets(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"tickets": mapAll(tickets, func(t store.TicketWithOwner) map[string]any {
			row := ticketJSON(t.Ticket)
			row["full_name"] = t.FullName
			row["email"] = t.Email
			return row
		}),
	})
}

func (h *Handler) AdminRespondTicket(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req respondTicketRequest
	if !h.decodeOrRespond(w, r, &req) {
		return
	}
	response, err := h.support.Respond(r.Context(), adminID, chi.URLParam(r, "id"), req.Message, req.Status)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, responseJSON(response))
}

func (h *Handler) AdminSetTicketStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !h.decodeOrRespond(w, r, &req) {
		return
	}
	if err := h.support.SetTicketStatus(r.Context(), chi.URLParam(r, "id"), req.Status); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Ticket status updated"})
}

func (h *Handler) AdminAuditLog(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	entries, err := h.admin.AuditLog(r.Context(), parseInt(query.Get("limit"), 50), parseInt(query.Get("offset"), 0))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"entries": mapAll(entries, func(e store.AuditEntry) map[string]any {
			return map[string]any{
				"id":            e.ID,
				"actor_user_id": e.ActorUserID,
				"action":        e.Action,
				"entity_type":   e.EntityType,
				"entity_id":     e.EntityID,
				"data":          e.Data,
				"created_at":    e.CreatedAt,
			}
		}),
	})
}

func statusJSON(result services.StatusResult) map[string]any {
	payload := map[string]any{"message": result.Message, "changed": result.Changed}
	if result.AccountNumber != "" {
		payload["account_number"] = result.AccountNumber
	}
	return payload
}
