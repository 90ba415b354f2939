package dialog

import (
	"testing"

	"github.com/maazq/expensebot/internal/domain"
)

func TestRouter_MultiExpense(t *testing.T) {
	r := NewRouter()
	ext := &domain.Extraction{
		Intent:     domain.IntentLogExpense,
		Confidence: 0.95,
		Multi: []domain.SlotSet{
			{Amount: fptr(8000), Item: "soccer ball"},
			{Amount: fptr(11000), Item: "shoes"},
		},
	}

	d := r.Route("u1", "soccer ball 8k, shoes 11k", ext, nil)
	if d.Op != domain.OpLogMultiExpense {
		t.Fatalf("Op = %v, want %v", d.Op, domain.OpLogMultiExpense)
	}
	if len(d.Multi) != 2 {
		t.Errorf("Multi len = %d, want 2", len(d.Multi))
	}
}

func TestRouter_SingleExpenseMergesPending(t *testing.T) {
	r := NewRouter()
	pending := &domain.PendingExpense{Amount: fptr(900)}
	ext := &domain.Extraction{
		Intent:     domain.IntentLogExpense,
		Confidence: 0.9,
		Slots:      &domain.SlotSet{Item: "popcorn"},
	}

	d := r.Route("u1", "popcorn", ext, pending)
	if d.Op != domain.OpLogExpense {
		t.Fatalf("Op = %v, want %v", d.Op, domain.OpLogExpense)
	}
	if d.Slots == nil || d.Slots.Amount == nil || *d.Slots.Amount != 900 || d.Slots.Item != "popcorn" {
		t.Errorf("Slots = %+v, want amount 900 and item popcorn", d.Slots)
	}
}

func TestRouter_SingleExpenseUsesLoneMultiEntry(t *testing.T) {
	r := NewRouter()
	ext := &domain.Extraction{
		Intent:     domain.IntentLogExpense,
		Confidence: 0.9,
		Multi:      []domain.SlotSet{{Amount: fptr(500), Item: "coffee"}},
	}

	d := r.Route("u1", "500 for coffee", ext, nil)
	if d.Op != domain.OpLogExpense {
		t.Fatalf("Op = %v, want %v", d.Op, domain.OpLogExpense)
	}
	if d.Slots == nil || d.Slots.Item != "coffee" {
		t.Errorf("Slots = %+v, want item coffee", d.Slots)
	}
}

func TestRouter_LedgerReads(t *testing.T) {
	r := NewRouter()
	tests := []struct {
		intent domain.Intent
		wantOp domain.Operation
	}{
		{domain.IntentQuery, domain.OpQuery},
		{domain.IntentBreakdown, domain.OpQuery},
		{domain.IntentTotal, domain.OpTotal},
	}

	for _, tt := range tests {
		ext := &domain.Extraction{Intent: tt.intent, Confidence: 0.9}
		d := r.Route("u1", "how much this week", ext, nil)
		if d.Op != tt.wantOp {
			t.Errorf("intent %v: Op = %v, want %v", tt.intent, d.Op, tt.wantOp)
		}
	}
}

func TestRouter_QueryLeavesPendingAlone(t *testing.T) {
	r := NewRouter()
	pending := &domain.PendingExpense{Amount: fptr(900)}
	ext := &domain.Extraction{Intent: domain.IntentQuery, Confidence: 0.9}

	d := r.Route("u1", "top 5 expenses", ext, pending)
	if d.Op != domain.OpQuery {
		t.Fatalf("Op = %v, want %v", d.Op, domain.OpQuery)
	}
	if d.ClearPending {
		t.Error("Query must not clear pending state")
	}
}

func TestRouter_Greeting(t *testing.T) {
	r := NewRouter()
	ext := &domain.Extraction{Intent: domain.IntentGreeting, Confidence: 0.95}

	d := r.Route("u1", "thanks!", ext, &domain.PendingExpense{Amount: fptr(900)})
	if d.Op != domain.OpGreeting {
		t.Fatalf("Op = %v, want %v", d.Op, domain.OpGreeting)
	}
	if d.ClearPending {
		t.Error("Greeting must not clear pending state")
	}
}

func TestRouter_GreetingOverriddenBySlotAnswer(t *testing.T) {
	// The oracle sometimes labels a bare "900" as small talk. While an
	// expense is pending, the number is the answer to our question.
	r := NewRouter()
	pending := &domain.PendingExpense{Item: "popcorn"}
	ext := &domain.Extraction{Intent: domain.IntentGreeting, Confidence: 0.8}

	d := r.Route("u1", "900", ext, pending)
	if d.Op != domain.OpLogExpense {
		t.Fatalf("Op = %v, want %v", d.Op, domain.OpLogExpense)
	}
	if d.Slots == nil || d.Slots.Amount == nil || *d.Slots.Amount != 900 {
		t.Errorf("Slots = %+v, want amount 900", d.Slots)
	}
}

func TestRouter_LowConfidenceSlotAnswer(t *testing.T) {
	r := NewRouter()
	pending := &domain.PendingExpense{Item: "popcorn"}
	ext := &domain.Extraction{Intent: domain.IntentClarification, Confidence: 0.2}

	d := r.Route("u1", "8k", ext, pending)
	if d.Op != domain.OpLogExpense {
		t.Fatalf("Op = %v, want %v", d.Op, domain.OpLogExpense)
	}
	if d.Slots == nil || d.Slots.Amount == nil || *d.Slots.Amount != 8000 {
		t.Errorf("Slots = %+v, want amount 8000", d.Slots)
	}
}

func TestRouter_ClarificationWithExtractedItem(t *testing.T) {
	r := NewRouter()
	pending := &domain.PendingExpense{Amount: fptr(900)}
	ext := &domain.Extraction{
		Intent:     domain.IntentClarification,
		Confidence: 0.3,
		Slots:      &domain.SlotSet{Item: "popcorn"},
	}

	d := r.Route("u1", "popcorn", ext, pending)
	if d.Op != domain.OpLogExpense {
		t.Fatalf("Op = %v, want %v", d.Op, domain.OpLogExpense)
	}
	if d.Slots == nil || d.Slots.Item != "popcorn" || d.Slots.Amount == nil {
		t.Errorf("Slots = %+v, want merged amount and item", d.Slots)
	}
}

func TestRouter_StopWordClearsPending(t *testing.T) {
	r := NewRouter()
	pending := &domain.PendingExpense{Amount: fptr(900)}
	ext := &domain.Extraction{Intent: domain.IntentClarification, Confidence: 0.1}

	d := r.Route("u1", "spent", ext, pending)
	if d.Op != domain.OpClarify {
		t.Fatalf("Op = %v, want %v", d.Op, domain.OpClarify)
	}
	if !d.ClearPending {
		t.Error("Expected stop word to clear pending state")
	}
}

func TestRouter_UnrelatedMessageKeepsPending(t *testing.T) {
	r := NewRouter()
	pending := &domain.PendingExpense{Amount: fptr(900)}
	ext := &domain.Extraction{Intent: domain.IntentClarification, Confidence: 0.1}

	d := r.Route("u1", "what's the weather like", ext, pending)
	if d.Op != domain.OpClarify {
		t.Fatalf("Op = %v, want %v", d.Op, domain.OpClarify)
	}
	if d.ClearPending {
		t.Error("A full sentence must not clear pending state")
	}
}

func TestRouter_FallbackClarify(t *testing.T) {
	r := NewRouter()
	ext := &domain.Extraction{Intent: domain.IntentClarification, Confidence: 0.1}

	d := r.Route("u1", "asdfghjkl", ext, nil)
	if d.Op != domain.OpClarify {
		t.Fatalf("Op = %v, want %v", d.Op, domain.OpClarify)
	}
}
