package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/maazq/expensebot/internal/domain"
	"github.com/maazq/expensebot/internal/logger"
)

// SyncExpenses mirrors the given expenses into a Notion database. Pages
// are deduplicated by the Expense ID title, so repeated syncs over
// overlapping windows are idempotent. When prune is set, Notion pages
// whose expense id is not in the given set are archived.
func SyncExpenses(ctx context.Context, notionClient NotionService, notionDBID string, expenses []domain.Expense, prune, dryRun bool) error {
	log := logger.FromContext(ctx)

	log.Info().
		Int("expense_count", len(expenses)).
		Bool("prune", prune).
		Bool("dry_run", dryRun).
		Msg("Starting expense sync to Notion")

	validIDs := make(map[string]bool, len(expenses))
	for _, e := range expenses {
		validIDs[e.ID] = true
	}

	notionPages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return fmt.Errorf("failed to query Notion pages: %w", err)
	}

	log.Info().Int("notion_page_count", len(notionPages)).Msg("Retrieved existing Notion pages")

	existingIDs := make(map[string]bool)
	for _, page := range notionPages {
		if id := extractExpenseID(page); id != "" {
			existingIDs[id] = true
		}
	}

	var deleted int
	if prune {
		for _, page := range notionPages {
			id := extractExpenseID(page)
			if id != "" && validIDs[id] {
				continue
			}
			if dryRun {
				log.Info().
					Str("expense_id", id).
					Str("page_id", string(page.ID)).
					Msg("[DRY RUN] Would archive stale Notion page")
				deleted++
				continue
			}
			if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
				log.Warn().
					Err(err).
					Str("expense_id", id).
					Str("page_id", string(page.ID)).
					Msg("Failed to archive stale Notion page")
				continue
			}
			deleted++
		}
	}

	var created, skipped int
	for _, e := range expenses {
		if existingIDs[e.ID] {
			skipped++
			continue
		}

		if dryRun {
			log.Info().
				Str("expense_id", e.ID).
				Msg("[DRY RUN] Would create Notion page")
			created++
			continue
		}

		props := ExpenseToNotionProperties(e)
		page, err := notionClient.CreatePage(ctx, notionDBID, props)
		if err != nil {
			log.Warn().
				Err(err).
				Str("expense_id", e.ID).
				Msg("Failed to create Notion page")
			// Continue processing other expenses
			continue
		}
		log.Info().
			Str("expense_id", e.ID).
			Str("page_id", string(page.ID)).
			Msg("Created Notion page")
		created++
	}

	log.Info().
		Int("created", created).
		Int("skipped", skipped).
		Int("deleted", deleted).
		Int("total", len(expenses)).
		Msg("Expense sync completed")

	return nil
}

// queryAllNotionPages queries all pages from a Notion database and returns them.
// Handles pagination automatically.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}

		// Only set StartCursor if we have a cursor value
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
