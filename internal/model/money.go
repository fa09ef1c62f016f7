package model

import (
	"strconv"
	"strings"
)

// PricePrefix is the currency prefix used by catalog display prices.
const PricePrefix = "$U"

// Money is an amount in whole units of the store currency.
type Money int64

// ParsePrice converts a display price such as "$U 1.450" into Money.
// The currency prefix, whitespace and thousands separators are stripped and
// the remainder must be a non-negative integer.
func ParsePrice(s string) (Money, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimPrefix(v, PricePrefix)
	v = strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', ' ', '\u00a0':
			return -1
		}
		return r
	}, v)
	if v == "" {
		return 0, ErrInvalidPrice
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, ErrInvalidPrice
	}
	return Money(n), nil
}

// Times multiplies the amount by a quantity.
func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

// Display renders the amount the way the storefront shows it, e.g. "$U 1.450".
func (m Money) Display() string {
	neg := m < 0
	if neg {
		m = -m
	}
	digits := strconv.FormatInt(int64(m), 10)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(PricePrefix)
	b.WriteByte(' ')
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return b.String()
}
