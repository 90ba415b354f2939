package dialog

import (
	"strings"

	"github.com/maazq/expensebot/internal/domain"
)

// lowConfidence is the score below which the oracle's intent label is not
// trusted on its own.
const lowConfidence = 0.5

// routeInput is everything a policy may inspect for one message cycle.
type routeInput struct {
	Message    string
	Extraction *domain.Extraction
	Pending    *domain.PendingExpense
}

// policy is one named routing rule. It returns nil to pass the message on
// to the next rule.
type policy struct {
	name  string
	apply func(in routeInput) *domain.RoutingDecision
}

// Router maps a classified message to an operation by evaluating a fixed,
// ordered list of policies. Oracle intent signals take precedence over
// heuristics except where a policy explicitly overrides.
type Router struct {
	policies []policy
}

// NewRouter builds the router with the standard policy order.
func NewRouter() *Router {
	return &Router{policies: []policy{
		{name: "multi_expense_log", apply: routeMultiExpense},
		{name: "single_expense_log", apply: routeSingleExpense},
		{name: "ledger_read", apply: routeLedgerRead},
		{name: "greeting", apply: routeGreeting},
		{name: "pending_slot_answer", apply: routePendingAnswer},
		{name: "fallback_clarify", apply: routeFallback},
	}}
}

// Route evaluates the policies in order and returns the first decision.
// The fallback policy always decides, so Route never returns nil.
func (r *Router) Route(userID, message string, ext *domain.Extraction, pending *domain.PendingExpense) *domain.RoutingDecision {
	in := routeInput{Message: message, Extraction: ext, Pending: pending}
	for _, p := range r.policies {
		if d := p.apply(in); d != nil {
			return d
		}
	}
	return &domain.RoutingDecision{Op: domain.OpClarify, Intent: domain.IntentClarification}
}

// routeMultiExpense sends logging messages that decompose into several slot
// triples straight to the multi handler, bypassing pending state entirely.
func routeMultiExpense(in routeInput) *domain.RoutingDecision {
	if in.Extraction.Intent != domain.IntentLogExpense || len(in.Extraction.Multi) < 2 {
		return nil
	}
	return &domain.RoutingDecision{
		Op:     domain.OpLogMultiExpense,
		Intent: domain.IntentLogExpense,
		Multi:  in.Extraction.Multi,
	}
}

// routeSingleExpense merges a single extracted slot set with any pending
// expense and sends the result to the single-expense handler.
func routeSingleExpense(in routeInput) *domain.RoutingDecision {
	if in.Extraction.Intent != domain.IntentLogExpense {
		return nil
	}
	candidate := in.Extraction.Slots
	if candidate == nil && len(in.Extraction.Multi) == 1 {
		candidate = &in.Extraction.Multi[0]
	}

	merged, cleared := MergePending(in.Pending, candidate, in.Message)
	if cleared {
		return &domain.RoutingDecision{
			Op:           domain.OpClarify,
			Intent:       domain.IntentClarification,
			ClearPending: true,
		}
	}
	return &domain.RoutingDecision{
		Op:     domain.OpLogExpense,
		Intent: domain.IntentLogExpense,
		Slots:  merged,
	}
}

// routeLedgerRead handles query, breakdown and total intents. Queries never
// consume pending slots.
func routeLedgerRead(in routeInput) *domain.RoutingDecision {
	switch in.Extraction.Intent {
	case domain.IntentQuery, domain.IntentBreakdown:
		return &domain.RoutingDecision{Op: domain.OpQuery, Intent: in.Extraction.Intent}
	case domain.IntentTotal:
		return &domain.RoutingDecision{Op: domain.OpTotal, Intent: domain.IntentTotal}
	}
	return nil
}

// routeGreeting sends greetings and acknowledgments to the greeting
// handler, which deliberately never touches pending state. The exception:
// a bare number or yes/no token while an expense is pending is a slot
// answer, not small talk.
func routeGreeting(in routeInput) *domain.RoutingDecision {
	if in.Extraction.Intent != domain.IntentGreeting {
		return nil
	}
	if in.Pending != nil && plausibleSlotAnswer(in.Message) {
		return routeAsSlotAnswer(in)
	}
	return &domain.RoutingDecision{Op: domain.OpGreeting, Intent: domain.IntentGreeting}
}

// routePendingAnswer decides what to do with an unresolved or
// low-confidence message while an expense is pending. Only a message that
// syntactically looks like a slot answer continues the pending expense;
// anything else is a clarification, and the ambiguity guard decides
// whether the pending state survives.
func routePendingAnswer(in routeInput) *domain.RoutingDecision {
	unresolved := in.Extraction.Intent == domain.IntentClarification ||
		in.Extraction.Intent == "" ||
		in.Extraction.Confidence < lowConfidence
	if !unresolved || in.Pending == nil {
		return nil
	}

	if plausibleSlotAnswer(in.Message) || slotContribution(in.Extraction.Slots) {
		return routeAsSlotAnswer(in)
	}

	_, cleared := MergePending(in.Pending, in.Extraction.Slots, in.Message)
	return &domain.RoutingDecision{
		Op:           domain.OpClarify,
		Intent:       domain.IntentClarification,
		ClearPending: cleared,
	}
}

// routeFallback terminates the policy chain.
func routeFallback(in routeInput) *domain.RoutingDecision {
	_, cleared := MergePending(in.Pending, in.Extraction.Slots, in.Message)
	return &domain.RoutingDecision{
		Op:           domain.OpClarify,
		Intent:       domain.IntentClarification,
		ClearPending: cleared && in.Pending != nil,
	}
}

// routeAsSlotAnswer turns a bare token into a candidate slot set and
// merges it with the pending expense.
func routeAsSlotAnswer(in routeInput) *domain.RoutingDecision {
	candidate := in.Extraction.Slots
	if candidate == nil {
		candidate = &domain.SlotSet{}
	}
	if candidate.Amount == nil {
		if v, ok := ParseAmount(in.Message); ok && v > 0 {
			candidate = &domain.SlotSet{Amount: &v, Item: candidate.Item, Category: candidate.Category}
		}
	}

	merged, cleared := MergePending(in.Pending, candidate, in.Message)
	if cleared {
		return &domain.RoutingDecision{
			Op:           domain.OpClarify,
			Intent:       domain.IntentClarification,
			ClearPending: true,
		}
	}
	return &domain.RoutingDecision{
		Op:     domain.OpLogExpense,
		Intent: domain.IntentLogExpense,
		Slots:  merged,
	}
}

// slotContribution reports whether the oracle extracted a usable amount
// or item despite an unresolved intent label.
func slotContribution(s *domain.SlotSet) bool {
	if s == nil {
		return false
	}
	if s.Amount != nil && *s.Amount > 0 {
		return true
	}
	return strings.TrimSpace(s.Item) != ""
}

// plausibleSlotAnswer is the cheap syntactic test for "could this short
// reply answer the question we just asked": purely numeric, a k/m
// shorthand amount, or a yes/no token.
func plausibleSlotAnswer(message string) bool {
	tok := strings.TrimSpace(message)
	if _, ok := ParseAmount(tok); ok {
		return true
	}
	return yesNoToken(tok)
}
