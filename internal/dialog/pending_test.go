package dialog

import (
	"testing"

	"github.com/maazq/expensebot/internal/domain"
)

func fptr(v float64) *float64 { return &v }

func TestMergePending_CandidateFillsGaps(t *testing.T) {
	pending := &domain.PendingExpense{Amount: fptr(900)}
	candidate := &domain.SlotSet{Item: "popcorn"}

	merged, cleared := MergePending(pending, candidate, "popcorn")
	if cleared {
		t.Fatal("Expected merge to succeed, got cleared")
	}
	if merged.Amount == nil || *merged.Amount != 900 {
		t.Errorf("Amount = %v, want 900", merged.Amount)
	}
	if merged.Item != "popcorn" {
		t.Errorf("Item = %q, want %q", merged.Item, "popcorn")
	}
}

func TestMergePending_CandidateWins(t *testing.T) {
	pending := &domain.PendingExpense{Amount: fptr(500), Item: "tea"}
	candidate := &domain.SlotSet{Amount: fptr(750), Item: "coffee"}

	merged, cleared := MergePending(pending, candidate, "no, 750 for coffee")
	if cleared {
		t.Fatal("Expected merge to succeed, got cleared")
	}
	if *merged.Amount != 750 {
		t.Errorf("Amount = %v, want 750", *merged.Amount)
	}
	if merged.Item != "coffee" {
		t.Errorf("Item = %q, want %q", merged.Item, "coffee")
	}
}

func TestMergePending_Idempotent(t *testing.T) {
	pending := &domain.PendingExpense{Amount: fptr(900)}
	candidate := &domain.SlotSet{Item: "popcorn"}

	once, _ := MergePending(pending, candidate, "popcorn")
	twice, _ := MergePending(once, candidate, "popcorn")

	if *once.Amount != *twice.Amount || once.Item != twice.Item || once.Category != twice.Category {
		t.Errorf("Repeated merge changed the result: first %+v, second %+v", once, twice)
	}
}

func TestMergePending_DoesNotMutateInput(t *testing.T) {
	pending := &domain.PendingExpense{Amount: fptr(900)}
	candidate := &domain.SlotSet{Item: "popcorn"}

	MergePending(pending, candidate, "popcorn")

	if pending.Item != "" {
		t.Errorf("Input pending was mutated: Item = %q", pending.Item)
	}
}

func TestMergePending_AmbiguityGuard(t *testing.T) {
	tests := []struct {
		name        string
		pending     *domain.PendingExpense
		raw         string
		wantCleared bool
	}{
		{"stop word clears pending", &domain.PendingExpense{Amount: fptr(900)}, "spent", true},
		{"single letter clears pending", &domain.PendingExpense{Amount: fptr(900)}, "a", true},
		{"short word clears pending", &domain.PendingExpense{Amount: fptr(900)}, "hm", true},
		{"stop word clears even without pending", nil, "i", true},
		{"short number is a slot answer", &domain.PendingExpense{Item: "popcorn"}, "900", false},
		{"k shorthand is a slot answer", &domain.PendingExpense{Item: "shoes"}, "8k", false},
		{"yes token is a slot answer", &domain.PendingExpense{Amount: fptr(900)}, "yes", false},
		{"long word is not ambiguous", &domain.PendingExpense{Amount: fptr(900)}, "popcorn", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No candidate contribution: the guard decides alone.
			var candidate *domain.SlotSet
			if v, ok := ParseAmount(tt.raw); ok {
				candidate = &domain.SlotSet{Amount: &v}
			}

			merged, cleared := MergePending(tt.pending, candidate, tt.raw)
			if cleared != tt.wantCleared {
				t.Fatalf("cleared = %v, want %v", cleared, tt.wantCleared)
			}
			if cleared && merged != nil {
				t.Error("Expected nil merged state when cleared")
			}
		})
	}
}
