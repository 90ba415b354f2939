// Package bigquery is the production LedgerStore, backed by two BigQuery
// tables: <dataset>.categories and <dataset>.expenses. All queries are
// parameterized and scoped to a single user id.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/maazq/expensebot/internal/domain"
)

const (
	categoriesTable = "categories"
	expensesTable   = "expenses"
)

// CategoryRow is one row of <dataset>.categories.
type CategoryRow struct {
	CategoryID   string    `bigquery:"category_id"`
	UserID       string    `bigquery:"user_id"`
	CategoryName string    `bigquery:"category_name"`
	IsCustom     bool      `bigquery:"is_custom"`
	CreatedTS    time.Time `bigquery:"created_ts"`
}

// ExpenseRow is one row of <dataset>.expenses.
type ExpenseRow struct {
	ExpenseID  string    `bigquery:"expense_id"`
	UserID     string    `bigquery:"user_id"`
	CategoryID string    `bigquery:"category_id"`
	Amount     float64   `bigquery:"amount"`
	Note       string    `bigquery:"note"`
	CreatedTS  time.Time `bigquery:"created_ts"`
}

// Repository implements domain.LedgerStore on a shared BigQuery client,
// avoiding a new connection per operation.
type Repository struct {
	client  *bigquery.Client
	dataset string
	now     func() time.Time
}

// NewRepository creates a ledger repository for the given project and
// dataset.
func NewRepository(ctx context.Context, projectID, dataset string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: bigquery client: %w", err)
	}
	return &Repository{client: client, dataset: dataset, now: time.Now}, nil
}

// Close releases the underlying client.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// GetOrCreateCategory finds the user's category by case-insensitive name,
// inserting it on first use.
func (r *Repository) GetOrCreateCategory(ctx context.Context, userID, name string) (string, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT category_id
		FROM %s.%s
		WHERE user_id = @user_id
		  AND LOWER(category_name) = LOWER(@name)
		LIMIT 1
	`, r.dataset, categoriesTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "name", Value: name},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return "", fmt.Errorf("GetOrCreateCategory: query read: %w", err)
	}

	var row struct {
		CategoryID string `bigquery:"category_id"`
	}
	err = it.Next(&row)
	if err == nil {
		return row.CategoryID, nil
	}
	if err != iterator.Done {
		return "", fmt.Errorf("GetOrCreateCategory: iter next: %w", err)
	}

	newRow := &CategoryRow{
		CategoryID:   uuid.NewString(),
		UserID:       userID,
		CategoryName: name,
		IsCustom:     true,
		CreatedTS:    r.now(),
	}
	inserter := r.client.Dataset(r.dataset).Table(categoriesTable).Inserter()
	if err := inserter.Put(ctx, newRow); err != nil {
		return "", fmt.Errorf("GetOrCreateCategory: inserting row: %w", err)
	}
	return newRow.CategoryID, nil
}

// CreateExpense inserts one committed expense row.
func (r *Repository) CreateExpense(ctx context.Context, userID, categoryID string, amount float64, note string) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("CreateExpense: amount must be positive, got %v", amount)
	}

	row := &ExpenseRow{
		ExpenseID:  uuid.NewString(),
		UserID:     userID,
		CategoryID: categoryID,
		Amount:     amount,
		Note:       note,
		CreatedTS:  r.now(),
	}
	inserter := r.client.Dataset(r.dataset).Table(expensesTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return "", fmt.Errorf("CreateExpense: inserting row: %w", err)
	}
	return row.ExpenseID, nil
}

// SumAmount totals the user's spend inside the window.
func (r *Repository) SumAmount(ctx context.Context, userID string, window domain.TimeWindow) (float64, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT COALESCE(SUM(amount), 0) AS total
		FROM %s.%s
		WHERE user_id = @user_id
		  AND created_ts >= @start_ts
		  AND created_ts < @end_ts
	`, r.dataset, expensesTable))
	q.Parameters = windowParams(userID, window)

	it, err := q.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("SumAmount: query read: %w", err)
	}

	var row struct {
		Total float64 `bigquery:"total"`
	}
	if err := it.Next(&row); err != nil && err != iterator.Done {
		return 0, fmt.Errorf("SumAmount: iter next: %w", err)
	}
	return row.Total, nil
}

// BreakdownByCategory groups the user's spend inside the window by
// category, largest total first.
func (r *Repository) BreakdownByCategory(ctx context.Context, userID string, window domain.TimeWindow) ([]domain.CategoryTotal, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT c.category_name AS category, SUM(e.amount) AS total, COUNT(*) AS item_count
		FROM %[1]s.%[2]s e
		JOIN %[1]s.%[3]s c ON e.category_id = c.category_id
		WHERE e.user_id = @user_id
		  AND e.created_ts >= @start_ts
		  AND e.created_ts < @end_ts
		GROUP BY c.category_name
		ORDER BY total DESC
	`, r.dataset, expensesTable, categoriesTable))
	q.Parameters = windowParams(userID, window)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("BreakdownByCategory: query read: %w", err)
	}

	var out []domain.CategoryTotal
	for {
		var row struct {
			Category  string  `bigquery:"category"`
			Total     float64 `bigquery:"total"`
			ItemCount int64   `bigquery:"item_count"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("BreakdownByCategory: iter next: %w", err)
		}
		out = append(out, domain.CategoryTotal{
			Category: row.Category,
			Total:    row.Total,
			Count:    int(row.ItemCount),
		})
	}
	return out, nil
}

// ListExpenses returns the user's expenses inside the window, newest
// first.
func (r *Repository) ListExpenses(ctx context.Context, userID string, window domain.TimeWindow) ([]domain.Expense, error) {
	return r.queryExpenses(ctx, userID, window, "e.created_ts DESC", 0)
}

// TopExpenses returns the user's n largest expenses inside the window.
func (r *Repository) TopExpenses(ctx context.Context, userID string, n int, window domain.TimeWindow) ([]domain.Expense, error) {
	return r.queryExpenses(ctx, userID, window, "e.amount DESC", n)
}

func (r *Repository) queryExpenses(ctx context.Context, userID string, window domain.TimeWindow, order string, limit int) ([]domain.Expense, error) {
	sql := fmt.Sprintf(`
		SELECT e.expense_id, e.user_id, c.category_name AS category, e.amount, e.note, e.created_ts
		FROM %[1]s.%[2]s e
		JOIN %[1]s.%[3]s c ON e.category_id = c.category_id
		WHERE e.user_id = @user_id
		  AND e.created_ts >= @start_ts
		  AND e.created_ts < @end_ts
		ORDER BY %[4]s
	`, r.dataset, expensesTable, categoriesTable, order)
	if limit > 0 {
		sql += fmt.Sprintf("\nLIMIT %d", limit)
	}

	q := r.client.Query(sql)
	q.Parameters = windowParams(userID, window)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("queryExpenses: query read: %w", err)
	}

	var out []domain.Expense
	for {
		var row struct {
			ExpenseID string    `bigquery:"expense_id"`
			UserID    string    `bigquery:"user_id"`
			Category  string    `bigquery:"category"`
			Amount    float64   `bigquery:"amount"`
			Note      string    `bigquery:"note"`
			CreatedTS time.Time `bigquery:"created_ts"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("queryExpenses: iter next: %w", err)
		}
		out = append(out, domain.Expense{
			ID:        row.ExpenseID,
			UserID:    row.UserID,
			Category:  row.Category,
			Amount:    row.Amount,
			Note:      row.Note,
			Timestamp: row.CreatedTS,
		})
	}
	return out, nil
}

func windowParams(userID string, window domain.TimeWindow) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "start_ts", Value: window.Start},
		{Name: "end_ts", Value: window.End},
	}
}

// Ensure Repository implements the ledger port.
var _ domain.LedgerStore = (*Repository)(nil)
