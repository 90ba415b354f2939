// Package memory is the in-memory LedgerStore used in tests and local
// development. Data is lost on restart; production deployments use the
// BigQuery-backed store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maazq/expensebot/internal/domain"
)

type category struct {
	id     string
	userID string
	name   string
}

type expense struct {
	id         string
	userID     string
	categoryID string
	amount     float64
	note       string
	timestamp  time.Time
}

// Store is a mutex-guarded map ledger. It is safe for concurrent use and
// always returns copies, never internal state.
type Store struct {
	mu         sync.RWMutex
	categories map[string]*category // keyed by category id
	expenses   []*expense

	now func() time.Time
}

// NewStore creates an empty in-memory ledger.
func NewStore() *Store {
	return &Store{
		categories: make(map[string]*category),
		now:        time.Now,
	}
}

// WithClock injects the time source used to stamp expenses.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// GetOrCreateCategory finds the user's category by case-insensitive name,
// creating it on first use.
func (s *Store) GetOrCreateCategory(ctx context.Context, userID, name string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("GetOrCreateCategory: user id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("GetOrCreateCategory: category name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.categories {
		if c.userID == userID && strings.EqualFold(c.name, name) {
			return c.id, nil
		}
	}

	c := &category{
		id:     uuid.NewString(),
		userID: userID,
		name:   strings.ToLower(name),
	}
	s.categories[c.id] = c
	return c.id, nil
}

// CreateExpense appends a committed expense row.
func (s *Store) CreateExpense(ctx context.Context, userID, categoryID string, amount float64, note string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("CreateExpense: user id is required")
	}
	if amount <= 0 {
		return "", fmt.Errorf("CreateExpense: amount must be positive, got %v", amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[categoryID]
	if !ok || c.userID != userID {
		return "", fmt.Errorf("CreateExpense: unknown category %q for user %q", categoryID, userID)
	}

	e := &expense{
		id:         uuid.NewString(),
		userID:     userID,
		categoryID: categoryID,
		amount:     amount,
		note:       note,
		timestamp:  s.now(),
	}
	s.expenses = append(s.expenses, e)
	return e.id, nil
}

// SumAmount totals the user's spend inside the window.
func (s *Store) SumAmount(ctx context.Context, userID string, window domain.TimeWindow) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0.0
	for _, e := range s.expenses {
		if e.userID == userID && window.Contains(e.timestamp) {
			total += e.amount
		}
	}
	return total, nil
}

// BreakdownByCategory groups the user's spend inside the window by
// category, largest total first.
func (s *Store) BreakdownByCategory(ctx context.Context, userID string, window domain.TimeWindow) ([]domain.CategoryTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]*domain.CategoryTotal)
	for _, e := range s.expenses {
		if e.userID != userID || !window.Contains(e.timestamp) {
			continue
		}
		name := s.categoryName(e.categoryID)
		row, ok := totals[name]
		if !ok {
			row = &domain.CategoryTotal{Category: name}
			totals[name] = row
		}
		row.Total += e.amount
		row.Count++
	}

	out := make([]domain.CategoryTotal, 0, len(totals))
	for _, row := range totals {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out, nil
}

// ListExpenses returns the user's expenses inside the window, newest
// first.
func (s *Store) ListExpenses(ctx context.Context, userID string, window domain.TimeWindow) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Expense
	for _, e := range s.expenses {
		if e.userID == userID && window.Contains(e.timestamp) {
			out = append(out, s.toDomain(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// TopExpenses returns the user's n largest expenses inside the window.
func (s *Store) TopExpenses(ctx context.Context, userID string, n int, window domain.TimeWindow) ([]domain.Expense, error) {
	out, err := s.ListExpenses(ctx, userID, window)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *Store) categoryName(categoryID string) string {
	if c, ok := s.categories[categoryID]; ok {
		return c.name
	}
	return "unknown"
}

func (s *Store) toDomain(e *expense) domain.Expense {
	return domain.Expense{
		ID:        e.id,
		UserID:    e.userID,
		Category:  s.categoryName(e.categoryID),
		Amount:    e.amount,
		Note:      e.note,
		Timestamp: e.timestamp,
	}
}

// Ensure Store implements the ledger port.
var _ domain.LedgerStore = (*Store)(nil)
