package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"starkpay/internal/config"
	"starkpay/internal/idempotency"
	"starkpay/internal/middleware"
	"starkpay/internal/models"
)

// Deps are the collaborators the HTTP surface dispatches to.
type Deps struct {
	Users       UserStore
	Collections CollectionService
	Transfers   TransferService
	Withdrawals WithdrawalService
	Funding     FundingService
	Cards       CardService
	OTP         OTPService
	Banks       BankDirectory
	Webhooks    WebhookService
	Sockets     BalanceSocket
	Idempotency idempotency.Repository
	OTPLimiter  middleware.Limiter
}

type Handler struct {
	cfg config.Config
	Deps
}

func New(cfg config.Config, deps Deps) *Handler {
	return &Handler{cfg: cfg, Deps: deps}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestLogger)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(h.cfg.AllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", idempotency.HeaderKey},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticated := middleware.Auth(h.cfg.JWTSecret)
	agent := middleware.RequireRole(h.Users, models.RoleAgent)

	router.Post("/webhooks/flw", h.FlutterwaveWebhook)
	router.Post("/webhooks/paystack", h.PaystackWebhook)
	router.Get("/ws/balances", h.WSBalances)

	router.Group(func(r chi.Router) {
		r.Use(authenticated)

		r.With(middleware.RequireStation).Post("/collections/station", h.CollectForStation)
		r.With(middleware.RequireRole(h.Users, models.RoleMerchant, models.RoleBusiness)).Post("/collections/merchant", h.CollectForMerchant)

		r.With(idempotency.Middleware(h.Idempotency, h.cfg.IdempotencyTTL(), userScope)).Post("/transfers", h.Transfer)

		r.Post("/withdrawals", h.Withdraw)
		r.With(middleware.RequireRole(h.Users, models.RoleBusiness)).Post("/withdrawals/business", h.BusinessWithdraw)
		r.With(middleware.RequireRole(h.Users, models.RoleBusiness)).Get("/withdrawals/business/balance", h.BusinessWithdrawable)

		r.Get("/fees", h.FeeQuote)
		r.Get("/processor", h.ActiveProcessor)

		r.Post("/funding/bank-transfer", h.FundWithBankTransfer)
		r.Post("/funding/card", h.FundWithCard)

		r.Get("/cards", h.ListCards)
		r.With(agent).Post("/cards", h.CreateCard)
		r.Post("/cards/attach", h.AttachCard)
		r.Post("/cards/{id}/detach", h.DetachCard)
		r.Get("/cards/{id}/history", h.CardHistory)
		r.Patch("/cards/{number}", h.UpdateCard)
		r.Delete("/cards/{id}", h.DeleteCard)

		r.Route("/agent", func(r chi.Router) {
			r.Use(agent)
			r.Post("/cards/attach", h.AgentAttachCard)
			r.Post("/cards/disable", h.AgentDisableCard)
			r.Post("/funding/bank-transfer", h.AgentFundWithBankTransfer)
		})

		r.Post("/otp", h.IssueOTP)
		r.With(middleware.RateLimit(h.OTPLimiter)).Post("/otp/verify", h.VerifyOTP)

		r.Get("/banks/{slug}", h.GetBank)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, "ok", map[string]string{"time": time.Now().UTC().Format(time.RFC3339)})
	})
	return router
}

func allowedOrigins(raw string) []string {
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

func userScope(r *http.Request) string {
	userID, _ := middleware.UserIDFromContext(r.Context())
	return userID
}
