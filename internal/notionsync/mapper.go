package notionsync

import (
	"github.com/jomei/notionapi"

	"github.com/maazq/expensebot/internal/domain"
)

// ExpenseToNotionProperties converts a committed expense to Notion
// properties. The Expense ID title is the dedupe key across syncs.
func ExpenseToNotionProperties(e domain.Expense) notionapi.Properties {
	props := notionapi.Properties{
		"Expense ID": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: e.ID,
					},
				},
			},
		},
		"Amount": notionapi.NumberProperty{
			Number: e.Amount,
		},
	}

	if e.Note != "" {
		props["Item"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: e.Note,
					},
				},
			},
		}
	}

	if e.Category != "" {
		props["Category"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: e.Category,
			},
		}
	}

	if e.UserID != "" {
		props["User"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: e.UserID,
					},
				},
			},
		}
	}

	if !e.Timestamp.IsZero() {
		d := notionapi.Date(e.Timestamp)
		props["Date"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: &d,
			},
		}
	}

	return props
}

// extractExpenseID reads the Expense ID title back off a Notion page.
// Returns "" when the page has no usable title.
func extractExpenseID(page notionapi.Page) string {
	prop, ok := page.Properties["Expense ID"]
	if !ok {
		return ""
	}
	title, ok := prop.(*notionapi.TitleProperty)
	if !ok || len(title.Title) == 0 {
		return ""
	}
	return title.Title[0].PlainText
}
