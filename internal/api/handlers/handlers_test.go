package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maazq/expensebot/internal/dialog"
	"github.com/maazq/expensebot/internal/domain"
	"github.com/maazq/expensebot/internal/ledger/memory"
)

type stubConversation struct {
	lastUser    string
	lastMessage string
	reply       dialog.Reply
}

func (s *stubConversation) HandleMessage(ctx context.Context, userID, text string) dialog.Reply {
	s.lastUser = userID
	s.lastMessage = text
	return s.reply
}

func TestWebhook_HandleMessage(t *testing.T) {
	conv := &stubConversation{reply: dialog.Reply{Text: "Got it!", Intent: domain.IntentLogExpense}}
	h := NewWebhookHandler(conv, zerolog.Nop())

	body := `{"phone_number":"+923001234567","message_body":"900 for popcorn","timestamp":"2025-03-14T12:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.HandleMessage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "+923001234567", conv.lastUser)
	assert.Equal(t, "900 for popcorn", conv.lastMessage)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Got it!", resp["reply"])
	assert.Equal(t, string(domain.IntentLogExpense), resp["intent"])
}

func TestWebhook_Validation(t *testing.T) {
	h := NewWebhookHandler(&stubConversation{}, zerolog.Nop())

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing phone", `{"message_body":"hi"}`},
		{"missing message", `{"phone_number":"+92300"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.HandleMessage(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func seedLedger(t *testing.T, now time.Time) *memory.Store {
	t.Helper()
	// Stamp rows an hour before "now" so they land strictly inside every
	// queried window (window ends are exclusive).
	stamp := now.Add(-time.Hour)
	store := memory.NewStore().WithClock(func() time.Time { return stamp })
	ctx := context.Background()

	foodID, err := store.GetOrCreateCategory(ctx, "u1", "food")
	require.NoError(t, err)
	taxiID, err := store.GetOrCreateCategory(ctx, "u1", "transportation")
	require.NoError(t, err)

	_, err = store.CreateExpense(ctx, "u1", foodID, 500, "pizza")
	require.NoError(t, err)
	_, err = store.CreateExpense(ctx, "u1", taxiID, 1200, "airport taxi")
	require.NoError(t, err)
	return store
}

func TestListExpenses(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	h := NewExpensesHandler(seedLedger(t, now), zerolog.Nop()).WithClock(func() time.Time { return now })

	req := httptest.NewRequest(http.MethodGet, "/expenses?user_id=u1&period=today", nil)
	rec := httptest.NewRecorder()

	h.ListExpenses(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Expenses []domain.Expense `json:"expenses"`
		Count    int              `json:"count"`
		Period   string           `json:"period"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "today", resp.Period)
}

func TestListExpenses_RequiresUser(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	h := NewExpensesHandler(seedLedger(t, now), zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/expenses", nil)
	rec := httptest.NewRecorder()

	h.ListExpenses(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummary(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	h := NewExpensesHandler(seedLedger(t, now), zerolog.Nop()).WithClock(func() time.Time { return now })

	req := httptest.NewRequest(http.MethodGet, "/summary?user_id=u1&period=week", nil)
	rec := httptest.NewRecorder()

	h.Summary(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp summaryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "this week", resp.Period)
	assert.Equal(t, 1700.0, resp.Total)
	require.Len(t, resp.TopCategories, 2)
	assert.Equal(t, "transportation", resp.TopCategories[0].Category)
	require.NotNil(t, resp.Biggest)
	assert.Equal(t, 1200.0, resp.Biggest.Amount)
	assert.InDelta(t, 1700.0/7, resp.AveragePerDay, 0.01)
}

func TestSummary_EmptyLedger(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	h := NewExpensesHandler(memory.NewStore(), zerolog.Nop()).WithClock(func() time.Time { return now })

	req := httptest.NewRequest(http.MethodGet, "/summary?user_id=u9", nil)
	rec := httptest.NewRecorder()

	h.Summary(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp summaryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Zero(t, resp.Total)
	assert.Empty(t, resp.TopCategories)
	assert.Nil(t, resp.Biggest)
}

func TestHealthz(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	Healthz(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
