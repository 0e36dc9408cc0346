package handlers

import (
	"net/http"

	"backoffice/internal/services"
)

type registerRequest struct {
	FullName   string `json:"full_name" validate:"required,max=120"`
	Email      string `json:"email" validate:"required,email,max=254"`
	NationalID string `json:"national_id" validate:"required,national_id"`
	Phone      string `json:"phone" validate:"omitempty,max=32"`
	Password   string `json:"password" validate:"required,password"`
}

func (req registerRequest) input() services.RegisterInput {
	return services.RegisterInput{
		FullName:   req.FullName,
		Email:      req.Email,
		NationalID: req.NationalID,
		Phone:      req.Phone,
		Password:   req.Password,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeOrRespond(w, r, &req) {
		return
	}
	user, err := h.users.Register(r.Context(), req.input())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Registration received. An administrator will review your account.",
		"user":    userJSON(user),
	})
}

// RegisterAdmin creates an approved admin when the X-Admin-Key header
// matches the configured registration key.
func (h *Handler) RegisterAdmin(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeOrRespond(w, r, &req) {
		return
	}
	user, err := h.users.RegisterAdmin(r.Context(), r.Header.Get("X-Admin-Key"), req.input())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"user": userJSON(user)})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeOrRespond(w, r, &req) {
		return
	}
	result, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"token": result.Token,
		"user":  userJSON(result.User),
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	user, err := h.users.Me(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, userJSON(user))
}
