package oracle

import (
	"fmt"
	"strings"

	"github.com/maazq/expensebot/internal/domain"
)

// buildExtractionPrompt assembles the strict-JSON classification prompt,
// including recent turns and the pending expense so the model can resolve
// follow-up answers like "900" or "popcorn".
func buildExtractionPrompt(req domain.ExtractRequest) string {
	var b strings.Builder

	b.WriteString("You are the NLU component of a WhatsApp expense tracker.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Classify the user's intent as one of: \"log_expense\", \"query\", \"breakdown\", \"get_total\", \"greeting\", \"clarification\".\n")
	b.WriteString("- For log_expense, extract the amount, item and category.\n")
	b.WriteString("- If the message contains several expenses (\"soccer ball 8k, shoes 11k\"), list them all under \"expenses\".\n")
	b.WriteString("- Amounts may use shorthand: \"8k\" means 8000, \"1.5m\" means 1500000.\n")
	b.WriteString("- Leave a field null when the message does not state it. Never invent values.\n\n")

	b.WriteString("Guidelines:\n")
	b.WriteString("- \"query\": specific questions (top 5 expenses, most expensive, breakdown for past week).\n")
	b.WriteString("- \"breakdown\": general breakdown/category summary requests without a time period.\n")
	b.WriteString("- \"get_total\": total spending for a period (today, this week, this month).\n")
	b.WriteString("- \"greeting\": greetings, thanks, acknowledgments, small talk.\n")
	b.WriteString("- \"clarification\": anything you cannot confidently classify.\n\n")

	if len(req.History) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range req.History {
			fmt.Fprintf(&b, "User: %s\n", turn.UserMessage)
			if turn.BotResponse != "" {
				fmt.Fprintf(&b, "Assistant: %s\n", turn.BotResponse)
			}
		}
		b.WriteString("\n")
	}

	if req.Pending != nil {
		b.WriteString("An expense is pending from earlier in the conversation:\n")
		if req.Pending.Amount != nil {
			fmt.Fprintf(&b, "- amount: %.0f\n", *req.Pending.Amount)
		}
		if req.Pending.Item != "" {
			fmt.Fprintf(&b, "- item: %s\n", req.Pending.Item)
		}
		if req.Pending.Category != "" {
			fmt.Fprintf(&b, "- category: %s\n", req.Pending.Category)
		}
		b.WriteString("A bare amount or item in the new message is likely the answer to the question we asked about it.\n\n")
	}

	b.WriteString("Return STRICT JSON only (no comments, no extra text):\n")
	b.WriteString("{\n")
	b.WriteString("  \"intent\": \"log_expense\",\n")
	b.WriteString("  \"confidence\": 0.9,\n")
	b.WriteString("  \"slots\": {\"amount\": 8000, \"item\": \"soccer ball\", \"category\": \"sports\"},\n")
	b.WriteString("  \"expenses\": [{\"amount\": 8000, \"item\": \"soccer ball\", \"category\": \"sports\"}]\n")
	b.WriteString("}\n")
	b.WriteString("Use \"slots\" for a single expense, \"expenses\" only when there are several.\n")
	b.WriteString("Do NOT wrap the response in code fences. Output must begin with \"{\" and end with \"}\".\n\n")

	fmt.Fprintf(&b, "Message: %q\n", req.Message)
	return b.String()
}

// buildRenderPrompt asks the model to rephrase the deterministic reply
// conversationally without changing any figures.
func buildRenderPrompt(intent domain.Intent, result *domain.OperationResult) string {
	var b strings.Builder

	b.WriteString("You are a friendly WhatsApp expense-tracking assistant.\n")
	b.WriteString("Rewrite the draft reply below as a short, natural chat message.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Keep every number, currency amount and list item exactly as given.\n")
	b.WriteString("- Never use technical words like data, query, record or database.\n")
	b.WriteString("- One short message, no markdown, no code fences.\n\n")

	fmt.Fprintf(&b, "Intent: %s\n", intent)
	fmt.Fprintf(&b, "Outcome: %s\n", result.Status)
	if result.Status == domain.StatusError {
		b.WriteString("Something went wrong on our side; be apologetic and suggest retrying.\n")
	}
	fmt.Fprintf(&b, "Draft reply:\n%s\n", result.Reply)
	return b.String()
}
