// Package handlers contains the HTTP endpoints of the expense bot: the
// WhatsApp-style webhook plus small read-only views over the ledger.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/maazq/expensebot/internal/api/middleware"
	"github.com/maazq/expensebot/internal/dialog"
	"github.com/maazq/expensebot/internal/domain"
)

const maxMessageBytes = 4096

// Conversation is the slice of the dialogue manager the webhook needs.
type Conversation interface {
	HandleMessage(ctx context.Context, userID, text string) dialog.Reply
}

// WebhookHandler handles inbound chat messages.
type WebhookHandler struct {
	conv Conversation
	log  zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(conv Conversation, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{conv: conv, log: log}
}

// webhookRequest mirrors the WhatsApp gateway payload.
type webhookRequest struct {
	PhoneNumber string `json:"phone_number"`
	MessageBody string `json:"message_body"`
	Timestamp   string `json:"timestamp"`
}

// HandleMessage handles POST /webhook.
func (h *WebhookHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err := dec.Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.PhoneNumber == "" {
		middleware.WriteError(w, http.StatusBadRequest, "phone_number is required")
		return
	}
	if req.MessageBody == "" {
		middleware.WriteError(w, http.StatusBadRequest, "message_body is required")
		return
	}

	reply := h.conv.HandleMessage(r.Context(), req.PhoneNumber, req.MessageBody)

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"reply":  reply.Text,
		"intent": string(reply.Intent),
	})
}

// ExpensesHandler serves read-only ledger views.
type ExpensesHandler struct {
	ledger domain.LedgerStore
	now    func() time.Time
	log    zerolog.Logger
}

// NewExpensesHandler creates a new expenses handler.
func NewExpensesHandler(ledger domain.LedgerStore, log zerolog.Logger) *ExpensesHandler {
	return &ExpensesHandler{ledger: ledger, now: time.Now, log: log}
}

// WithClock injects the time source used to resolve period windows.
func (h *ExpensesHandler) WithClock(now func() time.Time) *ExpensesHandler {
	h.now = now
	return h
}

// ListExpenses handles GET /expenses?user_id=...&period=today|yesterday|week|month
func (h *ExpensesHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	window := dialog.WindowFromMessage(r.URL.Query().Get("period"), h.now())

	expenses, err := h.ledger.ListExpenses(ctx, userID, window)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list expenses")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list expenses")
		return
	}

	if expenses == nil {
		expenses = []domain.Expense{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"expenses": expenses,
		"count":    len(expenses),
		"period":   window.Label,
	})
}

// summaryResponse is the period digest returned by GET /summary.
type summaryResponse struct {
	Period        string                 `json:"period"`
	Total         float64                `json:"total"`
	TopCategories []domain.CategoryTotal `json:"top_categories"`
	Biggest       *domain.Expense        `json:"biggest_expense,omitempty"`
	AveragePerDay float64                `json:"average_per_day"`
}

// Summary handles GET /summary?user_id=...&period=week|month
func (h *ExpensesHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "week"
	}
	window := dialog.WindowFromMessage(period, h.now())

	total, err := h.ledger.SumAmount(ctx, userID, window)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to sum expenses")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build summary")
		return
	}

	breakdown, err := h.ledger.BreakdownByCategory(ctx, userID, window)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to break down expenses")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build summary")
		return
	}
	if len(breakdown) > 3 {
		breakdown = breakdown[:3]
	}
	if breakdown == nil {
		breakdown = []domain.CategoryTotal{}
	}

	top, err := h.ledger.TopExpenses(ctx, userID, 1, window)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to find biggest expense")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build summary")
		return
	}

	resp := summaryResponse{
		Period:        window.Label,
		Total:         total,
		TopCategories: breakdown,
		AveragePerDay: averagePerDay(total, window),
	}
	if len(top) > 0 {
		resp.Biggest = &top[0]
	}

	middleware.WriteJSON(w, http.StatusOK, resp)
}

// Healthz handles GET /healthz.
func Healthz(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func averagePerDay(total float64, window domain.TimeWindow) float64 {
	days := window.End.Sub(window.Start).Hours() / 24
	if days < 1 {
		days = 1
	}
	return total / days
}
