package dialog

import "strings"

// categoryTable maps common item words to spending categories. Used only
// when the oracle did not supply a category for a complete expense.
var categoryTable = map[string]string{
	// food
	"breakfast": "food", "lunch": "food", "dinner": "food", "pizza": "food",
	"burger": "food", "sandwich": "food", "coffee": "food", "tea": "food",
	"groceries": "food", "restaurant": "food", "meal": "food",
	"juice": "food", "milkshake": "food", "drinks": "food", "snacks": "food",

	// transportation
	"car": "transportation", "bus": "transportation", "taxi": "transportation",
	"uber": "transportation", "fuel": "transportation", "gas": "transportation",
	"fare": "transportation", "rickshaw": "transportation",

	// electronics
	"phone": "electronics", "laptop": "electronics", "computer": "electronics",
	"charger": "electronics", "headphones": "electronics", "watch": "electronics",

	// communication
	"balance": "communication", "sim": "communication", "internet": "communication",
	"mobile": "communication",

	// stationery
	"notebook": "stationery", "pen": "stationery", "pencil": "stationery",
	"book": "stationery", "paper": "stationery",

	// clothing
	"shirt": "clothing", "pants": "clothing", "shoes": "clothing",
	"dress": "clothing", "jacket": "clothing", "jeans": "clothing",
	"sweater": "clothing", "socks": "clothing",

	// furniture / housing
	"chair": "furniture", "table": "furniture", "bed": "furniture",
	"sofa": "furniture", "desk": "furniture", "lamp": "furniture",
	"rent": "housing", "apartment": "housing",

	// entertainment
	"movie": "entertainment", "cinema": "entertainment", "game": "entertainment",
	"concert": "entertainment", "toy": "entertainment",

	// health
	"medicine": "health", "doctor": "health", "hospital": "health",
	"pharmacy": "health", "vitamins": "health",

	// misc
	"gift": "gift", "donation": "misc", "keychain": "misc",
}

// Categorize maps an item to a category, defaulting to "misc". It matches
// the full item first, then individual words ("leather jacket" hits
// "jacket").
func Categorize(item string) string {
	lower := strings.ToLower(strings.TrimSpace(item))
	if lower == "" {
		return "misc"
	}
	if cat, ok := categoryTable[lower]; ok {
		return cat
	}
	for _, word := range strings.Fields(lower) {
		if cat, ok := categoryTable[word]; ok {
			return cat
		}
	}
	return "misc"
}
