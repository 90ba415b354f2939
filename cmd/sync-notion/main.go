package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/maazq/expensebot/internal/domain"
	"github.com/maazq/expensebot/internal/ledger/bigquery"
	"github.com/maazq/expensebot/internal/logger"
	"github.com/maazq/expensebot/internal/notionsync"
)

func main() {
	// Parse CLI flags
	userID := flag.String("user", "", "User id (phone number) whose expenses to sync (required)")
	startDateStr := flag.String("start-date", "", "Start date in YYYY-MM-DD format (required)")
	endDateStr := flag.String("end-date", "", "End date in YYYY-MM-DD format (required)")
	projectID := flag.String("project", os.Getenv("BQ_PROJECT"), "BigQuery project id (or set BQ_PROJECT)")
	dataset := flag.String("dataset", "finance", "BigQuery dataset holding the expense tables")
	notionToken := flag.String("notion-token", os.Getenv("NOTION_TOKEN"), "Notion API token (or set NOTION_TOKEN)")
	notionDBID := flag.String("notion-db-id", "", "Notion database ID (required)")
	prune := flag.Bool("prune", false, "Archive Notion pages not present in the synced window")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	// Initialize structured logger
	log := logger.New("expensebot-sync-notion", *logLevel)

	// Validate required flags
	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}
	if *startDateStr == "" {
		log.Fatal().Msg("Error: --start-date is required")
	}
	if *endDateStr == "" {
		log.Fatal().Msg("Error: --end-date is required")
	}
	if *projectID == "" {
		log.Fatal().Msg("Error: --project is required")
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}

	// Parse dates
	startDate, err := time.Parse("2006-01-02", *startDateStr)
	if err != nil {
		log.Fatal().Err(err).Str("start_date", *startDateStr).Msg("Error: invalid start-date format, expected YYYY-MM-DD")
	}

	endDate, err := time.Parse("2006-01-02", *endDateStr)
	if err != nil {
		log.Fatal().Err(err).Str("end_date", *endDateStr).Msg("Error: invalid end-date format, expected YYYY-MM-DD")
	}

	// Validate date range
	if endDate.Before(startDate) {
		log.Fatal().
			Time("start_date", startDate).
			Time("end_date", endDate).
			Msg("Error: end-date must be after start-date")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("user_id", *userID).
		Str("start_date", *startDateStr).
		Str("end_date", *endDateStr).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	// Initialize BigQuery ledger
	repo, err := bigquery.NewRepository(ctx, *projectID, *dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery ledger")
	}
	defer repo.Close()

	// The end date is inclusive on the CLI, the window end is exclusive
	window := domain.TimeWindow{
		Start: startDate,
		End:   endDate.AddDate(0, 0, 1),
		Label: fmt.Sprintf("%s to %s", *startDateStr, *endDateStr),
	}

	expenses, err := repo.ListExpenses(ctx, *userID, window)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list expenses")
	}

	// Initialize Notion client
	notionClient := notionsync.NewNotionClient(*notionToken)

	// Sync expenses
	if err := notionsync.SyncExpenses(ctx, notionClient, *notionDBID, expenses, *prune, *dryRun); err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Println("Sync completed successfully.")
}
