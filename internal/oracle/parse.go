package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/maazq/expensebot/internal/domain"
)

// extractionWire is the JSON shape the model is instructed to return.
// Amounts arrive as json.Number so both 8000 and "8000" survive decoding.
type extractionWire struct {
	Intent     string     `json:"intent"`
	Confidence float64    `json:"confidence"`
	Slots      *slotWire  `json:"slots"`
	Expenses   []slotWire `json:"expenses"`
}

type slotWire struct {
	Amount   *json.Number `json:"amount"`
	Item     string       `json:"item"`
	Category string       `json:"category"`
}

// decodeExtraction parses raw model output into a domain.Extraction.
func decodeExtraction(raw string) (*domain.Extraction, error) {
	clean := cleanModelJSON(raw)

	dec := json.NewDecoder(strings.NewReader(clean))
	dec.UseNumber()

	var wire extractionWire
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("decodeExtraction: unmarshal JSON: %w", err)
	}

	ext := &domain.Extraction{
		Intent:     normalizeIntent(wire.Intent),
		Confidence: wire.Confidence,
	}
	if wire.Slots != nil {
		s := wire.Slots.toSlotSet()
		if s != nil {
			ext.Slots = s
		}
	}
	for _, w := range wire.Expenses {
		if s := w.toSlotSet(); s != nil {
			ext.Multi = append(ext.Multi, *s)
		}
	}
	return ext, nil
}

func (w *slotWire) toSlotSet() *domain.SlotSet {
	s := &domain.SlotSet{
		Item:     strings.TrimSpace(w.Item),
		Category: strings.TrimSpace(w.Category),
	}
	if w.Amount != nil {
		if v, err := w.Amount.Float64(); err == nil && v > 0 {
			s.Amount = &v
		}
	}
	if s.Amount == nil && s.Item == "" && s.Category == "" {
		return nil
	}
	return s
}

// normalizeIntent maps model output onto the fixed intent set; anything
// unrecognized becomes a clarification so the router never sees garbage.
func normalizeIntent(raw string) domain.Intent {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "log_expense", "log", "expense":
		return domain.IntentLogExpense
	case "query":
		return domain.IntentQuery
	case "breakdown":
		return domain.IntentBreakdown
	case "get_total", "total", "get_total_expenses":
		return domain.IntentTotal
	case "greeting", "chitchat", "thanks", "acknowledgment":
		return domain.IntentGreeting
	default:
		return domain.IntentClarification
	}
}

// cleanModelJSON strips markdown fences and surrounding prose when the
// model ignores the strict-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	// Keep only the outermost JSON object.
	first := strings.IndexByte(s, '{')
	last := strings.LastIndexByte(s, '}')
	if first != -1 && last > first {
		s = s[first : last+1]
	}
	return strings.TrimSpace(s)
}

// cleanRenderedText trims fences and surrounding quotes from a rendered
// reply.
func cleanRenderedText(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}
