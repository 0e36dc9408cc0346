package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type ticketRequest struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=4000"`
}

func (h *Handler) OpenTicket(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req ticketRequest
	if !h.decodeOrRespond(w, r, &req) {
		return
	}
	ticket, err := h.support.OpenTicket(r.Context(), userID, req.Subject, req.Message)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, ticketJSON(ticket))
}

func (h *Handler) MyTickets(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	tickets, err := h.support.MyTickets(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tickets": mapAll(tickets, ticketJSON)})
}

func (h *Handler) TicketResponses(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	responses, err := h.support.Responses(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"responses": mapAll(responses, responseJSON)})
}
