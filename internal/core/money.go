// Package core holds the transaction model and the aggregation functions the
// dashboard renders from.
//
// This file contains the amount parsing used at the input boundary. Amounts
// are kept in integer cents so monthly sums are exact.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

const maxAmountUnits = 10_000_000_000_000

// MaxAmount is the largest accepted amount. It keeps the sums of many
// transactions far from the int64 limit.
var MaxAmount = Money{Cents: maxAmountUnits * 100}

// ParseAmount converts a decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Zero is a valid amount; signs,
// NaN, Inf and anything that is not plain digits are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234 cents
//	ParseAmount("12,345") -> 1235 cents (rounds up)
//	ParseAmount("0")      -> 0 cents
//	ParseAmount("-5")     -> validation error
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, invalid("amount", "must not be empty")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "-") {
		return Money{}, invalid("amount", "must not be negative")
	}
	if strings.HasPrefix(s, "+") {
		return Money{}, invalid("amount", "not a number")
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, invalid("amount", "not a number")
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return Money{}, invalid("amount", "not a number")
		}
	}
	intPart = strings.TrimLeft(intPart, "0")
	if len(intPart) > len(strconv.FormatInt(maxAmountUnits, 10)) {
		return Money{}, invalid("amount", "out of range")
	}
	var units int64
	if intPart != "" {
		v, err := strconv.ParseInt(intPart, 10, 64)
		if err != nil {
			return Money{}, invalid("amount", "out of range")
		}
		units = v
	}
	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}
	m := Money{Cents: units*100 + frac}
	if m.Cents > MaxAmount.Cents {
		return Money{}, invalid("amount", "out of range")
	}
	return m, nil
}

// MoneyFromFloat converts a JSON-style number to Money, rounding to the
// nearest cent. NaN, infinities and negative values are rejected.
func MoneyFromFloat(f float64) (Money, error) {
	switch {
	case math.IsNaN(f):
		return Money{}, invalid("amount", "not a number")
	case math.IsInf(f, 0):
		return Money{}, invalid("amount", "must be finite")
	case f < 0:
		return Money{}, invalid("amount", "must not be negative")
	case f > maxAmountUnits:
		return Money{}, invalid("amount", "out of range")
	}
	return Money{Cents: int64(math.Round(f * 100))}, nil
}

// Float returns the amount as a float64 for display purposes.
// Use cents for calculations.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// String formats the amount with two decimals and a dot separator,
// e.g. "-1500.00".
func (m Money) String() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + strconv.FormatInt(cents/100, 10) + "." + leftPad2(cents%100)
}

func leftPad2(v int64) string {
	if v < 10 {
		return "0" + strconv.FormatInt(v, 10)
	}
	return strconv.FormatInt(v, 10)
}
