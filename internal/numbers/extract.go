// Package numbers mines typed numeric literals out of free text and formats
// values back into the deck's unit vocabulary (Cr, Lac, K, M, B).
package numbers

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/deck-auditor/backend/internal/models"
)

const (
	numberPattern = `\d+(?:,\d+)*(?:\.\d+)?`
	unitPattern   = `(?:crores?|cr|lakhs?|lacs?|k|m|b)\b`
)

// Unit multipliers, keyed by lowercased suffix.
var unitMultipliers = map[string]float64{
	"cr":     1e7,
	"crore":  1e7,
	"crores": 1e7,
	"lac":    1e5,
	"lacs":   1e5,
	"lakh":   1e5,
	"lakhs":  1e5,
	"k":      1e3,
	"m":      1e6,
	"b":      1e9,
}

// matcher is one typed numeric-literal pattern. Lower index means higher priority.
type matcher struct {
	name string
	re   *regexp.Regexp
}

var matchers = []matcher{
	{"currency", regexp.MustCompile(`(?i)(?:₹|\$|\bRs\.?|\bINR)\s*` + numberPattern + `(?:\s*` + unitPattern + `)?`)},
	{"percentage", regexp.MustCompile(numberPattern + `\s*%`)},
	{"unit", regexp.MustCompile(`(?i)` + numberPattern + `\s*` + unitPattern)},
	{"plain", regexp.MustCompile(numberPattern)},
}

var (
	currencyPrefixRe = regexp.MustCompile(`(?i)^(?:₹|\$|Rs\.?|INR)`)
	unitSuffixRe     = regexp.MustCompile(`(?i)(crores?|cr|lakhs?|lacs?|k|m|b)$`)
)

// Match is an extracted token together with its byte span in the source text.
type Match struct {
	Token models.NumericToken
	Start int
	End   int
}

// Extract scans text left to right and returns the numeric tokens it contains.
//
// At each step every matcher proposes its leftmost match at or after the
// cursor. The earliest start wins, ties go to the higher-priority matcher, and
// the cursor jumps to the end of the accepted span so overlapping candidates are
// dropped. Literals that fail to parse are skipped silently.
func Extract(text string) []Match {
	type candidate struct{ start, end int }

	next := make([]candidate, len(matchers))
	for i := range next {
		next[i] = candidate{start: -2}
	}

	var out []Match
	cursor := 0
	for cursor < len(text) {
		best := -1
		for i, m := range matchers {
			c := next[i]
			if c.start == -1 {
				continue // exhausted
			}
			if c.start < cursor {
				loc := m.re.FindStringIndex(text[cursor:])
				if loc == nil {
					next[i] = candidate{start: -1}
					continue
				}
				c = candidate{start: cursor + loc[0], end: cursor + loc[1]}
				next[i] = c
			}
			if best == -1 || c.start < next[best].start {
				best = i
			}
		}
		if best == -1 {
			break
		}

		span := next[best]
		raw := strings.TrimSpace(text[span.start:span.end])
		cursor = span.end

		value, ok := ParseLiteral(raw)
		if !ok {
			continue
		}
		out = append(out, Match{
			Token: models.NumericToken{
				RawText:        raw,
				Value:          value,
				Classification: Classify(raw),
			},
			Start: span.start,
			End:   span.end,
		})
	}
	return out
}

// ExtractTokens is Extract without span information.
func ExtractTokens(text string) []models.NumericToken {
	matches := Extract(text)
	tokens := make([]models.NumericToken, len(matches))
	for i, m := range matches {
		tokens[i] = m.Token
	}
	return tokens
}

// ParseLiteral converts a numeric literal such as "₹1.5 Cr", "12%" or
// "1,50,000" into its unit-expanded value. Percentages keep their face value.
func ParseLiteral(raw string) (float64, bool) {
	s := currencyPrefixRe.ReplaceAllString(strings.TrimSpace(raw), "")
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimSuffix(s, "%")

	multiplier := 1.0
	if m := unitSuffixRe.FindString(s); m != "" {
		multiplier = unitMultipliers[strings.ToLower(m)]
		s = s[:len(s)-len(m)]
	}

	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	v *= multiplier
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Classify derives a literal's classification from the symbols it carries.
func Classify(raw string) models.Classification {
	s := strings.TrimSpace(raw)
	switch {
	case currencyPrefixRe.MatchString(s):
		return models.ClassCurrency
	case strings.Contains(s, "%"):
		return models.ClassPercentage
	case unitSuffixRe.MatchString(strings.Join(strings.Fields(s), "")):
		return models.ClassMetric
	default:
		return models.ClassPlain
	}
}
