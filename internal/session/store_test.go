package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/maazq/expensebot/internal/domain"
)

func turn(msg string) domain.ConversationTurn {
	return domain.ConversationTurn{UserMessage: msg, Timestamp: time.Now()}
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	s := NewStore(10, zerolog.Nop())

	a := s.GetOrCreate("u1")
	b := s.GetOrCreate("u1")

	if a != b {
		t.Error("Expected repeated GetOrCreate to return the same session")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestRecordTurn_BoundedHistory(t *testing.T) {
	s := NewStore(10, zerolog.Nop())

	for i := 0; i < 15; i++ {
		s.RecordTurn("u1", turn(fmt.Sprintf("message %d", i)))
	}

	history := s.GetOrCreate("u1").History()
	if len(history) != 10 {
		t.Fatalf("History = %d turns, want capacity 10", len(history))
	}
	if history[0].UserMessage != "message 5" {
		t.Errorf("Oldest turn = %q, want %q (oldest evicted first)", history[0].UserMessage, "message 5")
	}
	if history[9].UserMessage != "message 14" {
		t.Errorf("Newest turn = %q, want %q", history[9].UserMessage, "message 14")
	}
}

func TestPending_CopySemantics(t *testing.T) {
	s := NewStore(10, zerolog.Nop())
	amount := 900.0
	s.SetPending("u1", &domain.PendingExpense{Amount: &amount, Item: "popcorn"})

	p := s.Pending("u1")
	p.Item = "mutated"

	if s.Pending("u1").Item != "popcorn" {
		t.Error("Mutating the returned pending leaked into the store")
	}

	s.SetPending("u1", nil)
	if s.Pending("u1") != nil {
		t.Error("Expected nil to clear pending")
	}
}

func TestPreferences(t *testing.T) {
	s := NewStore(10, zerolog.Nop())

	if got := s.Preference("u1", "name"); got != "" {
		t.Errorf("Preference = %q, want empty for unset", got)
	}
	s.SetPreference("u1", "name", "Sana")
	if got := s.Preference("u1", "name"); got != "Sana" {
		t.Errorf("Preference = %q, want %q", got, "Sana")
	}
}

func TestSweep_RemovesIdleSessions(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	s := NewStore(10, zerolog.Nop(), WithClock(func() time.Time { return now }))

	s.RecordTurn("idle", turn("old message"))
	now = now.Add(6 * time.Minute)
	s.RecordTurn("active", turn("fresh message"))

	removed := s.Sweep(5 * time.Minute)
	if removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}

	// The idle user's next message starts from a clean slate.
	sess := s.GetOrCreate("idle")
	if len(sess.History()) != 0 {
		t.Error("Expected a fresh session after eviction")
	}
}

func TestSweep_KeepsFreshSessions(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	s := NewStore(10, zerolog.Nop(), WithClock(func() time.Time { return now }))

	s.RecordTurn("u1", turn("hello"))
	now = now.Add(2 * time.Minute)

	if removed := s.Sweep(5 * time.Minute); removed != 0 {
		t.Errorf("Sweep removed %d, want 0", removed)
	}
}

type recordingArchiver struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func (a *recordingArchiver) ArchiveTranscript(userID string, turns []domain.ConversationTurn) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.calls == nil {
		a.calls = make(map[string]int)
	}
	a.calls[userID] += len(turns)
	return a.err
}

func TestSweep_ArchivesTranscript(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	arch := &recordingArchiver{}
	s := NewStore(10, zerolog.Nop(),
		WithClock(func() time.Time { return now }),
		WithArchiver(arch),
	)

	s.RecordTurn("u1", turn("first"))
	s.RecordTurn("u1", turn("second"))
	now = now.Add(10 * time.Minute)

	if removed := s.Sweep(5 * time.Minute); removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if arch.calls["u1"] != 2 {
		t.Errorf("Archived %d turns, want 2", arch.calls["u1"])
	}
}

func TestSweep_ArchiveFailureStillEvicts(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	arch := &recordingArchiver{err: errors.New("bucket unavailable")}
	s := NewStore(10, zerolog.Nop(),
		WithClock(func() time.Time { return now }),
		WithArchiver(arch),
	)

	s.RecordTurn("u1", turn("hello"))
	now = now.Add(10 * time.Minute)

	if removed := s.Sweep(5 * time.Minute); removed != 1 {
		t.Fatalf("Sweep removed %d, want 1 despite archive failure", removed)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestPerUserLocksAreIndependent(t *testing.T) {
	s := NewStore(10, zerolog.Nop())

	s.Lock("u1")
	done := make(chan struct{})
	go func() {
		// A different user must not be blocked by u1's lock.
		s.Lock("u2")
		s.Unlock("u2")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Lock for another user blocked behind u1")
	}
	s.Unlock("u1")
}
