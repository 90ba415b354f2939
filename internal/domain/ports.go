package domain

import (
	"context"
	"time"
)

// TimeWindow bounds a ledger read. Label is the human period name used in
// replies ("today", "this week", ...).
type TimeWindow struct {
	Start time.Time
	End   time.Time
	Label string
}

// Contains reports whether t falls inside the window. Start is inclusive,
// End exclusive.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// ExtractRequest is the oracle's input: the raw message plus the
// conversational context it needs to resolve references across turns.
type ExtractRequest struct {
	UserID  string
	Message string
	History []ConversationTurn
	Pending *PendingExpense
}

// Extraction is the oracle's best guess. Slots is set for single-expense
// messages, Multi for messages that decompose into several expenses. Both
// may be nil/empty for non-logging intents.
type Extraction struct {
	Intent     Intent
	Confidence float64
	Slots      *SlotSet
	Multi      []SlotSet
}

// Oracle classifies a message and extracts expense slots. Implementations
// must degrade, never fail hard: output that cannot be parsed into an
// Extraction comes back as IntentClarification with no slots.
type Oracle interface {
	Extract(ctx context.Context, req ExtractRequest) (*Extraction, error)
}

// Renderer turns a structured result into user-facing prose. It runs last,
// after all state mutation is committed; an error here falls back to the
// result's deterministic Reply.
type Renderer interface {
	Render(ctx context.Context, intent Intent, result *OperationResult) (string, error)
}

// LedgerStore is the durable expense ledger. All operations are scoped to a
// single userID; there is no cross-user visibility.
type LedgerStore interface {
	GetOrCreateCategory(ctx context.Context, userID, name string) (string, error)
	CreateExpense(ctx context.Context, userID, categoryID string, amount float64, note string) (string, error)
	SumAmount(ctx context.Context, userID string, window TimeWindow) (float64, error)
	BreakdownByCategory(ctx context.Context, userID string, window TimeWindow) ([]CategoryTotal, error)
	ListExpenses(ctx context.Context, userID string, window TimeWindow) ([]Expense, error)
	TopExpenses(ctx context.Context, userID string, n int, window TimeWindow) ([]Expense, error)
}
