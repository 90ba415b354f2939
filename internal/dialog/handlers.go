package dialog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/maazq/expensebot/internal/domain"
)

// Handlers executes the routed operations against the ledger. Handlers are
// stateless; the orchestrator owns persisting any pending expense a result
// carries.
type Handlers struct {
	ledger domain.LedgerStore
	now    func() time.Time
	log    zerolog.Logger
}

// NewHandlers wires the operation handlers to a ledger store.
func NewHandlers(ledger domain.LedgerStore, log zerolog.Logger) *Handlers {
	return &Handlers{
		ledger: ledger,
		now:    time.Now,
		log:    log,
	}
}

// WithClock overrides the handler clock, for window tests.
func (h *Handlers) WithClock(now func() time.Time) *Handlers {
	h.now = now
	return h
}

// LogExpense commits a single expense when the merged slots are complete,
// or asks for exactly what is missing. A ledger failure never discards the
// caller's slot progress: the error result carries the merged pending so a
// retry does not start over.
func (h *Handlers) LogExpense(ctx context.Context, userID string, slots *domain.PendingExpense) *domain.OperationResult {
	if slots == nil {
		slots = &domain.PendingExpense{}
	}

	if missing := slots.Missing(); len(missing) > 0 {
		return &domain.OperationResult{
			Status:  domain.StatusIncomplete,
			Missing: missing,
			Pending: slots.Clone(),
			Reply:   missingSlotPrompt(slots, missing),
		}
	}

	category := slots.Category
	if category == "" {
		category = Categorize(slots.Item)
	}

	categoryID, err := h.ledger.GetOrCreateCategory(ctx, userID, category)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Category lookup failed")
		return storeErrorResult(err, slots)
	}

	expenseID, err := h.ledger.CreateExpense(ctx, userID, categoryID, *slots.Amount, slots.Item)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Expense commit failed")
		return storeErrorResult(err, slots)
	}

	committed := domain.CommittedExpense{
		ExpenseID: expenseID,
		Amount:    *slots.Amount,
		Category:  category,
		Note:      slots.Item,
	}
	return &domain.OperationResult{
		Status:    domain.StatusSuccess,
		Committed: []domain.CommittedExpense{committed},
		Reply:     fmt.Sprintf("Got it! Logged %s PKR for %s (%s).", formatAmount(committed.Amount), category, slots.Item),
	}
}

// LogMultiExpense commits each provided triple independently. Triples
// missing amount or item are reported as failed, never queued as pending:
// multi-expense messages are atomically decomposed, not slot-filling
// candidates. Partial success is allowed.
func (h *Handlers) LogMultiExpense(ctx context.Context, userID string, triples []domain.SlotSet) *domain.OperationResult {
	var (
		committed []domain.CommittedExpense
		failed    []domain.SlotSet
		storeErr  error
	)

	for _, t := range triples {
		if t.Amount == nil || *t.Amount <= 0 || strings.TrimSpace(t.Item) == "" {
			failed = append(failed, t)
			continue
		}

		category := t.Category
		if category == "" {
			category = Categorize(t.Item)
		}

		categoryID, err := h.ledger.GetOrCreateCategory(ctx, userID, category)
		if err != nil {
			storeErr = err
			failed = append(failed, t)
			continue
		}
		expenseID, err := h.ledger.CreateExpense(ctx, userID, categoryID, *t.Amount, t.Item)
		if err != nil {
			storeErr = err
			failed = append(failed, t)
			continue
		}

		committed = append(committed, domain.CommittedExpense{
			ExpenseID: expenseID,
			Amount:    *t.Amount,
			Category:  category,
			Note:      t.Item,
		})
	}

	if len(committed) == 0 && storeErr != nil {
		h.log.Error().Err(storeErr).Str("user_id", userID).Msg("Multi-expense commit failed entirely")
		return &domain.OperationResult{
			Status: domain.StatusError,
			Err:    storeErr,
			Failed: failed,
			Reply:  "Sorry, I couldn't save your expenses right now. Please try again in a moment.",
		}
	}

	total := 0.0
	for _, c := range committed {
		total += c.Amount
	}
	reply := fmt.Sprintf("Logged %d expenses totaling %s PKR.", len(committed), formatAmount(total))
	if len(failed) > 0 {
		reply += fmt.Sprintf(" %d entries were missing an amount or item and were skipped.", len(failed))
	}

	return &domain.OperationResult{
		Status:    domain.StatusSuccess,
		Committed: committed,
		Failed:    failed,
		Reply:     reply,
	}
}

// Query answers breakdown and top-expense questions. Read-only; pending
// state is never touched.
func (h *Handlers) Query(ctx context.Context, userID, message string) *domain.OperationResult {
	window := WindowFromMessage(message, h.now())
	lower := strings.ToLower(message)

	if strings.Contains(lower, "top") || strings.Contains(lower, "most expensive") || strings.Contains(lower, "highest") {
		n := 5
		if strings.Contains(lower, "3") || strings.Contains(lower, "three") {
			n = 3
		}
		expenses, err := h.ledger.TopExpenses(ctx, userID, n, window)
		if err != nil {
			return storeErrorResult(err, nil)
		}
		return &domain.OperationResult{
			Status:   domain.StatusSuccess,
			Expenses: expenses,
			Period:   window.Label,
			Reply:    formatTopExpenses(expenses, window.Label),
		}
	}

	rows, err := h.ledger.BreakdownByCategory(ctx, userID, window)
	if err != nil {
		return storeErrorResult(err, nil)
	}
	return &domain.OperationResult{
		Status:    domain.StatusSuccess,
		Breakdown: rows,
		Period:    window.Label,
		Reply:     formatBreakdown(rows, window.Label),
	}
}

// Total sums the user's spend over the window implied by the message.
func (h *Handlers) Total(ctx context.Context, userID, message string) *domain.OperationResult {
	window := WindowFromMessage(message, h.now())

	total, err := h.ledger.SumAmount(ctx, userID, window)
	if err != nil {
		return storeErrorResult(err, nil)
	}

	reply := fmt.Sprintf("You haven't logged any expenses %s.", window.Label)
	if total > 0 {
		reply = fmt.Sprintf("You have spent a total of %s PKR %s.", formatAmount(total), window.Label)
	}
	return &domain.OperationResult{
		Status: domain.StatusSuccess,
		Total:  total,
		Period: window.Label,
		Reply:  reply,
	}
}

// Greeting returns a canned reply. It deliberately never touches pending
// state, so a "thanks" cannot wipe out in-progress slot filling.
func (h *Handlers) Greeting(name string) *domain.OperationResult {
	reply := "Hello! How can I help with your expenses today?"
	if name != "" {
		reply = fmt.Sprintf("Hello %s! How can I help with your expenses today?", name)
	}
	return &domain.OperationResult{
		Status: domain.StatusSuccess,
		Reply:  reply,
	}
}

// Clarify asks the user to rephrase, offering example phrasings.
func (h *Handlers) Clarify() *domain.OperationResult {
	return &domain.OperationResult{
		Status: domain.StatusClarification,
		Reply: "I'm not sure what you meant. You can:\n" +
			"- Log expenses: '500 for groceries'\n" +
			"- Ask queries: 'How much did I spend this week?'\n" +
			"- Get breakdowns: 'Show me my spending breakdown'",
	}
}

func storeErrorResult(err error, pending *domain.PendingExpense) *domain.OperationResult {
	return &domain.OperationResult{
		Status:  domain.StatusError,
		Err:     err,
		Pending: pending.Clone(),
		Reply:   "Sorry, something went wrong on my end. Your expense details are safe - please try again in a moment.",
	}
}

func missingSlotPrompt(slots *domain.PendingExpense, missing []string) string {
	if len(missing) == 2 {
		return "I need both the amount and what you bought. Could you please provide both?"
	}
	if missing[0] == "amount" {
		return fmt.Sprintf("What was the cost of %s?", slots.Item)
	}
	return fmt.Sprintf("What did you buy for %s PKR?", formatAmount(*slots.Amount))
}

func formatBreakdown(rows []domain.CategoryTotal, period string) string {
	if len(rows) == 0 {
		return fmt.Sprintf("You haven't logged any expenses %s. Start by telling me about a purchase you made!", period)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Your spending breakdown (%s):\n", period)
	total := 0.0
	for _, r := range rows {
		total += r.Total
		fmt.Fprintf(&b, "- %s: %s PKR (%d items)\n", capitalize(r.Category), formatAmount(r.Total), r.Count)
	}
	fmt.Fprintf(&b, "Total spent: %s PKR", formatAmount(total))
	return b.String()
}

func formatTopExpenses(expenses []domain.Expense, period string) string {
	if len(expenses) == 0 {
		return fmt.Sprintf("I couldn't find any expenses %s.", period)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Your biggest expenses (%s):\n", period)
	for i, e := range expenses {
		note := e.Note
		if note == "" {
			note = e.Category
		}
		fmt.Fprintf(&b, "%d. %s PKR - %s\n", i+1, formatAmount(e.Amount), note)
	}
	return strings.TrimRight(b.String(), "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatAmount renders amounts the way the bot speaks them: no decimals
// for whole numbers, thousands separators.
func formatAmount(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	if v != float64(int64(v)) {
		s = fmt.Sprintf("%.2f", v)
	}

	// Insert thousands separators into the integer part.
	intPart := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	if len(intPart) <= 3 {
		return intPart + frac
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return b.String() + frac
}
