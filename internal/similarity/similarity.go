// Package similarity scores how alike two context strings are.
//
// The score is a partial ratio: the shorter normalized string is slid across
// the longer one and each equal-length window is compared with an indel
// (insert/delete only) similarity. A string that appears inside the other
// therefore scores 100 no matter how much extra text surrounds it.
package similarity

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/xrash/smetrics"
)

// Normalize lowercases s, turns punctuation and symbols into spaces and
// collapses whitespace runs.
func Normalize(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(cleaned), " ")
}

// Score normalizes both inputs and returns their partial ratio in [0,100].
// An input that is empty after normalization scores 0.
func Score(a, b string) int {
	return PartialRatio(Normalize(a), Normalize(b))
}

// PartialRatio compares already-normalized strings.
func PartialRatio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}

	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == len(long) {
		return round(ratio(short, long))
	}
	if strings.Contains(long, short) {
		return 100
	}

	// Character overlap between short and a window bounds the window's
	// ratio from above; visit windows best-bound first and stop once no
	// remaining window can beat the current best.
	windows := windowBounds(short, long)
	best := 0.0
	for _, w := range windows {
		if w.bound <= best {
			break
		}
		r := ratio(short, long[w.offset:w.offset+len(short)])
		if r > best {
			best = r
		}
	}
	return round(best)
}

type window struct {
	offset int
	bound  float64
}

func windowBounds(short, long string) []window {
	n := len(short)
	var want, have [256]int
	for i := 0; i < n; i++ {
		want[short[i]]++
	}

	overlap := 0
	add := func(c byte) {
		if have[c] < want[c] {
			overlap++
		}
		have[c]++
	}
	remove := func(c byte) {
		have[c]--
		if have[c] < want[c] {
			overlap--
		}
	}

	for i := 0; i < n; i++ {
		add(long[i])
	}

	windows := make([]window, 0, len(long)-n+1)
	for off := 0; ; off++ {
		windows = append(windows, window{offset: off, bound: 100 * float64(overlap) / float64(n)})
		if off+n >= len(long) {
			break
		}
		remove(long[off])
		add(long[off+n])
	}

	sort.SliceStable(windows, func(i, j int) bool { return windows[i].bound > windows[j].bound })
	return windows
}

// ratio is the indel similarity of a and b in [0,100].
func ratio(a, b string) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	dist := smetrics.WagnerFischer(a, b, 1, 1, 2)
	return 100 * (1 - float64(dist)/float64(total))
}

func round(v float64) int {
	return int(math.Round(v))
}
