package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	gorillaws "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"backoffice/internal/config"
	"backoffice/internal/middleware"
	"backoffice/internal/websocket"
)

type Handler struct {
	cfg           config.Config
	logger        *zap.Logger
	users         UserService
	ledger        LedgerService
	reports       ReportService
	admin         AdminService
	notifications NotificationService
	support       SupportService
	hub           *websocket.Hub
	upgrader      gorillaws.Upgrader
}

func New(cfg config.Config, logger *zap.Logger, users UserService, ledger LedgerService, reports ReportService, admin AdminService, notifications NotificationService, support SupportService, hub *websocket.Hub) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		cfg:           cfg,
		logger:        logger,
		users:         users,
		ledger:        ledger,
		reports:       reports,
		admin:         admin,
		notifications: notifications,
		support:       support,
		hub:           hub,
		upgrader:      websocket.NewUpgrader(cfg.AllowedOrigins),
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestLogger(h.logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   splitOrigins(h.cfg.AllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Admin-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticated := []func(http.Handler) http.Handler{
		middleware.Auth(h.cfg.JWTSecret),
		middleware.ActiveUser(h.users),
	}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
	})
	router.Get("/ws", h.WebSocket)

	router.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/register-admin", h.RegisterAdmin)
			r.Post("/login", h.Login)
			r.With(authenticated...).Get("/me", h.Me)
		})

		api.Group(func(r chi.Router) {
			r.Use(authenticated...)

			r.Get("/accounts/me", h.MyAccount)
			r.Get("/accounts/financial-summary", h.FinancialSummary)
			r.Get("/accounts/statement", h.Statement)

			r.Get("/transfers/recipient/{accountNumber}", h.RecipientPreview)
			r.Post("/transfers/internal", h.TransferInternal)
			r.Post("/transfers/external", h.TransferExternal)
			r.Get("/transfers/history", h.History)
			r.Get("/transfers/frequent/{kind}", h.FrequentRecipients)
			r.Get("/transfers/{id}/receipt", h.Receipt)

			r.Get("/bills/billers", h.ActiveBillers)
			r.Post("/bills/estimate", h.BillEstimate)
			r.Post("/bills/pay", h.PayBill)
			r.Get("/bills/history", h.BillHistory)

			r.Get("/notifications", h.Notifications)
			r.Get("/notifications/latest", h.LatestNotifications)
			r.Patch("/notifications/{id}/read", h.MarkNotificationRead)

			r.Post("/support/tickets", h.OpenTicket)
			r.Get("/support/tickets", h.MyTickets)
			r.Get("/support/tickets/{id}/responses", h.TicketResponses)

			r.Route("/admin", func(admin chi.Router) {
				admin.Use(middleware.RequireAdmin)
				admin.Get("/dashboard", h.AdminDashboard)
				admin.Get("/users", h.AdminListUsers)
				admin.Patch("/users/{id}/status", h.AdminSetUserStatus)
				admin.Get("/accounts", h.AdminListAccounts)
				admin.Patch("/accounts/{id}/status", h.AdminSetAccountStatus)
				admin.Get("/billers", h.AdminListBillers)
				admin.Post("/billers", h.AdminAddBiller)
				admin.Patch("/billers/{id}/status", h.AdminSetBillerStatus)
				admin.Delete("/billers/{id}", h.AdminDeleteBiller)
				admin.Post("/notifications/broadcast", h.AdminBroadcast)
				admin.Get("/support/tickets", h.AdminListTickets)
				admin.Post("/support/tickets/{id}/responses", h.AdminRespondTicket)
				admin.Patch("/support/tickets/{id}/status", h.AdminSetTicketStatus)
				admin.Get("/audit-logs", h.AdminAuditLog)
			})
		})
	})
	return router
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
