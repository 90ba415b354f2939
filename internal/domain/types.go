package domain

import (
	"time"
)

// Intent is the normalized intent label produced by the NLU oracle
// (and occasionally overridden by router policy).
type Intent string

const (
	IntentLogExpense    Intent = "log_expense"
	IntentQuery         Intent = "query"
	IntentBreakdown     Intent = "breakdown"
	IntentTotal         Intent = "get_total"
	IntentGreeting      Intent = "greeting"
	IntentClarification Intent = "clarification"
)

// Operation names one of the fixed set of dialogue operations a routed
// message can execute.
type Operation string

const (
	OpLogExpense      Operation = "log_expense"
	OpLogMultiExpense Operation = "log_multi_expense"
	OpQuery           Operation = "query"
	OpTotal           Operation = "total_for_period"
	OpGreeting        Operation = "greeting"
	OpClarify         Operation = "clarify"
)

// ConversationTurn is one processed message. Turns are immutable once
// recorded; the session keeps only a bounded window of them.
type ConversationTurn struct {
	Timestamp   time.Time
	UserMessage string
	BotResponse string // empty until rendered
	Intent      Intent
	Confidence  float64
}

// SlotSet is one extracted (amount, item, category) triple. Amount is a
// pointer so "absent" and "zero" stay distinct.
type SlotSet struct {
	Amount   *float64
	Item     string
	Category string
}

// PendingExpense is the slot-filling record for an expense the user has not
// finished describing. At most one exists per user at any time.
type PendingExpense struct {
	Amount   *float64
	Item     string
	Category string
}

// Complete reports whether both required slots are filled with usable values.
// Category is never required; it can be derived from the item.
func (p *PendingExpense) Complete() bool {
	return len(p.Missing()) == 0
}

// Missing returns the names of required slots still unknown, in a fixed
// order. A non-positive amount counts as missing, not as an error.
func (p *PendingExpense) Missing() []string {
	var missing []string
	if p.Amount == nil || *p.Amount <= 0 {
		missing = append(missing, "amount")
	}
	if p.Item == "" {
		missing = append(missing, "item")
	}
	return missing
}

// Empty reports whether no slot carries a value at all.
func (p *PendingExpense) Empty() bool {
	return (p.Amount == nil || *p.Amount <= 0) && p.Item == "" && p.Category == ""
}

// Clone returns a deep copy so stored pending state never aliases a caller's
// struct.
func (p *PendingExpense) Clone() *PendingExpense {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Amount != nil {
		v := *p.Amount
		cp.Amount = &v
	}
	return &cp
}

// RoutingDecision is the router's output for a single message cycle.
type RoutingDecision struct {
	Op     Operation
	Intent Intent

	// Slots carries the merged single-expense candidate for OpLogExpense.
	Slots *PendingExpense

	// Multi carries the ordered slot triples for OpLogMultiExpense.
	Multi []SlotSet

	// ClearPending is set when the ambiguity guard judged the message
	// unrelated to the pending expense.
	ClearPending bool
}

// ResultStatus tags an OperationResult.
type ResultStatus string

const (
	StatusSuccess       ResultStatus = "success"
	StatusIncomplete    ResultStatus = "incomplete"
	StatusClarification ResultStatus = "clarification_needed"
	StatusError         ResultStatus = "error"
)

// CommittedExpense describes one ledger write that succeeded.
type CommittedExpense struct {
	ExpenseID string
	Amount    float64
	Category  string
	Note      string
}

// CategoryTotal is one row of a per-category breakdown.
type CategoryTotal struct {
	Category string
	Total    float64
	Count    int
}

// Expense is a committed ledger row read back for queries.
type Expense struct {
	ID        string
	UserID    string
	Category  string
	Amount    float64
	Note      string
	Timestamp time.Time
}

// OperationResult is the tagged outcome of a handler. Exactly the fields
// matching Status are populated; the renderer consumes it and nothing else
// mutates it.
type OperationResult struct {
	Status ResultStatus

	// success
	Committed []CommittedExpense
	Failed    []SlotSet // multi-expense triples that could not be committed
	Total     float64
	Period    string
	Breakdown []CategoryTotal
	Expenses  []Expense

	// incomplete
	Missing []string
	Pending *PendingExpense

	// error
	Err error

	// Reply is the deterministic fallback text; the NLG renderer may
	// replace it but must never be required for correctness.
	Reply string
}
