package numbers

import (
	"testing"

	"github.com/deck-auditor/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestFormatSuggestion(t *testing.T) {
	tests := []struct {
		value float64
		class models.Classification
		want  string
	}{
		{10000000, models.ClassCurrency, "₹1.0 Cr"},
		{15250000, models.ClassCurrency, "₹1.5 Cr"},
		{250000, models.ClassCurrency, "₹2.5 Lac"},
		{4500, models.ClassCurrency, "₹4.5K"},
		{999, models.ClassCurrency, "₹999"},
		{32000000, models.ClassMetric, "3.2 Cr"},
		{120000, models.ClassPlain, "1.2 Lac"},
		{1000, models.ClassPlain, "1.0K"},
		{42.4, models.ClassPlain, "42"},
		{12.345, models.ClassPercentage, "12.3%"},
		{15000000, models.ClassPercentage, "15000000.0%"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatSuggestion(tt.value, tt.class))
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "15000000", FormatValue(15000000))
	assert.Equal(t, "1.5", FormatValue(1.5))
}
