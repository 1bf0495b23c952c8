// Package format renders numbers the way the reports show them: rounded to
// a readable magnitude (тыс./млн./млрд./трлн.), spaces between thousand
// groups, comma as the decimal separator.
package format

import (
	"math"
	"strconv"
	"strings"
)

// Smart rounds a number to its display magnitude and returns the pretty
// value plus the magnitude word, e.g. 2863578 -> ("2,9", "млн.").
func Smart(number float64) (pretty, magnitude string) {
	n := int64(number)
	rounded := smartRound(n)
	return Prettify(rounded), digitsText(digitCount(n), true)
}

// Number renders a value with its magnitude word: "15 тыс.", "2,9 млн.".
func Number(number float64) string {
	pretty, magnitude := Smart(number)
	if magnitude == "" {
		return pretty
	}
	return pretty + " " + magnitude
}

// Currency renders a rouble amount: "1,3 млн. руб.".
func Currency(number float64) string {
	return Number(number) + " руб."
}

// Quantity renders a piece count: "15 тыс. шт.".
func Quantity(number float64) string {
	return Number(number) + " шт."
}

// smartRound picks the rounding bucket by digit count:
// 177 -> 180, 2 112 -> 2 100, 15 487 -> 15 (тыс.), 2 863 578 -> 2.9 (млн.),
// 672 934 573 -> 673 (млн.), 72 691 235 664 -> 72.7 (млрд.).
func smartRound(n int64) float64 {
	digits := digitCount(n)
	x := float64(n)

	switch {
	case digits <= 1:
		return math.Round(x)
	case digits <= 3:
		return math.Round(x/10) * 10
	case digits <= 4:
		return math.Round(x/100) * 100
	case digits <= 6:
		return math.Round(x / 1e3)
	case digits <= 8:
		return math.Round(x/1e6*10) / 10
	case digits <= 9:
		return math.Round(x / 1e6)
	case digits <= 11:
		return math.Round(x/1e9*10) / 10
	case digits <= 12:
		return math.Round(x / 1e9)
	case digits <= 14:
		return math.Round(x/1e12*10) / 10
	case digits <= 15:
		return math.Round(x / 1e12)
	default:
		return x
	}
}

func digitCount(n int64) int {
	if n < 0 {
		n = -n
	}
	return len(strconv.FormatInt(n, 10))
}

// digitsText maps a digit count to its magnitude word.
func digitsText(length int, skipThousands bool) string {
	switch {
	case skipThousands && length > 4 && length <= 6:
		return "тыс."
	case !skipThousands && length > 3 && length <= 6:
		return "тыс."
	case length > 6 && length <= 9:
		return "млн."
	case length > 9 && length <= 12:
		return "млрд."
	case length > 12 && length <= 15:
		return "трлн."
	default:
		return ""
	}
}

// Prettify renders a value rounded to two decimals with space thousand
// separators and a comma decimal point.
func Prettify(x float64) string {
	r := math.Round(x*100) / 100
	if r == math.Trunc(r) {
		return groupDigits(int64(r))
	}

	s := strconv.FormatFloat(r, 'f', -1, 64)
	parts := strings.SplitN(s, ".", 2)
	whole, _ := strconv.ParseInt(parts[0], 10, 64)
	return groupDigits(whole) + "," + parts[1]
}

// groupDigits inserts a space between each group of three digits.
func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	var groups []string
	for len(s) > 3 {
		groups = append([]string{s[len(s)-3:]}, groups...)
		s = s[:len(s)-3]
	}
	groups = append([]string{s}, groups...)

	return sign + strings.Join(groups, " ")
}
