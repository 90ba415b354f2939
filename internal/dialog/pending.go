// Package dialog implements the multi-turn dialogue manager: slot-filling
// across turns, intent routing, the operation handlers, and the
// orchestrator that ties them to the oracle, renderer and ledger.
package dialog

import (
	"strings"

	"github.com/maazq/expensebot/internal/domain"
)

// stopWords are throwaway tokens that must never be interpreted as a slot
// answer. A reply consisting only of one of these (or any token of up to
// three characters that is not a number) discards the pending expense
// rather than silently inheriting stale context.
var stopWords = map[string]bool{
	"i":      true,
	"a":      true,
	"an":     true,
	"the":    true,
	"on":     true,
	"for":    true,
	"spent":  true,
	"bought": true,
	"paid":   true,
}

// ambiguousToken reports whether the raw message is too short or too
// generic to carry slot information on its own.
func ambiguousToken(raw string) bool {
	tok := strings.ToLower(strings.TrimSpace(raw))
	if tok == "" {
		return true
	}
	if stopWords[tok] {
		return true
	}
	if len(tok) <= 3 {
		// Short numerics and yes/no are legitimate slot answers.
		if _, ok := ParseAmount(tok); ok {
			return false
		}
		if yesNoToken(tok) {
			return false
		}
		return true
	}
	return false
}

func yesNoToken(tok string) bool {
	switch strings.ToLower(strings.TrimSpace(tok)) {
	case "yes", "y", "yeah", "yep", "no", "n", "nope":
		return true
	}
	return false
}

// MergePending folds a newly extracted candidate into the existing pending
// expense. Candidate values win; pending values fill the gaps. If the
// candidate contributes neither amount nor item and the raw message is an
// ambiguous token, the merge is discarded entirely and cleared=true tells
// the caller to drop the pending state: a stray "a" or "spent" must never
// silently continue an old, possibly unrelated expense.
func MergePending(pending *domain.PendingExpense, candidate *domain.SlotSet, raw string) (merged *domain.PendingExpense, cleared bool) {
	merged = &domain.PendingExpense{}
	if pending != nil {
		merged = pending.Clone()
	}

	contributed := false
	if candidate != nil {
		if candidate.Amount != nil && *candidate.Amount > 0 {
			v := *candidate.Amount
			merged.Amount = &v
			contributed = true
		}
		if strings.TrimSpace(candidate.Item) != "" {
			merged.Item = strings.TrimSpace(candidate.Item)
			contributed = true
		}
		if strings.TrimSpace(candidate.Category) != "" {
			merged.Category = strings.TrimSpace(candidate.Category)
		}
	}

	if !contributed && ambiguousToken(raw) {
		return nil, true
	}
	return merged, false
}
