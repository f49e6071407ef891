package numbers

import (
	"fmt"
	"strconv"

	"github.com/deck-auditor/backend/internal/models"
)

// FormatSuggestion renders value the way a deck would print it, using the
// notation implied by the classification of the number being corrected.
func FormatSuggestion(value float64, class models.Classification) string {
	if class == models.ClassPercentage {
		return fmt.Sprintf("%.1f%%", value)
	}

	prefix := ""
	if class == models.ClassCurrency {
		prefix = "₹"
	}

	switch {
	case value >= 1e7:
		return fmt.Sprintf("%s%.1f Cr", prefix, value/1e7)
	case value >= 1e5:
		return fmt.Sprintf("%s%.1f Lac", prefix, value/1e5)
	case value >= 1e3:
		return fmt.Sprintf("%s%.1fK", prefix, value/1e3)
	default:
		return fmt.Sprintf("%s%.0f", prefix, value)
	}
}

// FormatValue prints a float without exponent or trailing zeros.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
