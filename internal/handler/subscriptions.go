package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fortunia-app/fortunia-api/internal/auth"
	"github.com/fortunia-app/fortunia-api/internal/domain"
	"github.com/fortunia-app/fortunia-api/internal/service"
)

// SubscriptionHandler reconciles app-store purchases.
type SubscriptionHandler struct {
	resolver      *auth.Resolver
	subscriptions *service.SubscriptionService
	logger        *slog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(resolver *auth.Resolver, subscriptions *service.SubscriptionService, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		resolver:      resolver,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// RegisterRoutes registers subscription routes with the provided mux.
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /subscriptions", h.Reconcile)
}

type subscriptionRequest struct {
	ProductID     string    `json:"product_id"`
	Status        string    `json:"status"`
	ExpiresAt     time.Time `json:"expires_at"`
	TransactionID string    `json:"transaction_id"`
	PurchaseDate  time.Time `json:"purchase_date"`
	Environment   string    `json:"environment"`
}

type subscriptionData struct {
	ProductID     string    `json:"product_id"`
	Status        string    `json:"status"`
	ExpiresAt     time.Time `json:"expires_at"`
	TransactionID string    `json:"transaction_id"`
	PurchaseDate  time.Time `json:"purchase_date"`
	Environment   string    `json:"environment"`
	IsActive      bool      `json:"is_active"`
}

type subscriptionResponse struct {
	Success bool             `json:"success"`
	Data    subscriptionData `json:"data"`
}

// Reconcile handles POST /subscriptions. Purchases can only be attached
// to an authenticated identity, never a client-supplied guest id.
func (h *SubscriptionHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	const op = "handler.subscriptions.reconcile"

	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid JSON body"))
		return
	}

	res, err := h.resolver.Resolve(r.Header.Get("Authorization"), "")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if !res.Principal.IsRegistered() {
		ErrorResponse(w, r, h.logger, domain.Unauthorized(op, "A bearer token is required to record purchases"))
		return
	}

	stored, err := h.subscriptions.Reconcile(r.Context(), res.Principal, domain.Subscription{
		ProductID:     req.ProductID,
		Status:        domain.SubscriptionStatus(req.Status),
		ExpiresAt:     req.ExpiresAt,
		TransactionID: req.TransactionID,
		PurchaseDate:  req.PurchaseDate,
		Environment:   domain.SubscriptionEnvironment(req.Environment),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, subscriptionResponse{
		Success: true,
		Data: subscriptionData{
			ProductID:     stored.ProductID,
			Status:        string(stored.Status),
			ExpiresAt:     stored.ExpiresAt,
			TransactionID: stored.TransactionID,
			PurchaseDate:  stored.PurchaseDate,
			Environment:   string(stored.Environment),
			IsActive:      stored.IsActive(time.Now()),
		},
	})
}
