package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidAmount is returned when a monetary value cannot be parsed
var ErrInvalidAmount = errors.New("invalid amount")

const maxWholeUnits = (1<<63 - 1) / 100

// Money is an amount in minor units (cents). It is rendered as a decimal
// string with two fractional digits and accepts either a JSON number or a
// decimal string on input.
type Money int64

// ParseMoney converts a decimal string such as "12.34" or "12,34" to cents.
// A third fractional digit is rounded half-up; further digits are ignored.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")

	intPart, fracPart, _ := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return 0, ErrInvalidAmount
	}

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || whole > maxWholeUnits {
		return 0, ErrInvalidAmount
	}

	var cents int64
	if len(fracPart) > 0 {
		cents = int64(fracPart[0]-'0') * 10
	}
	if len(fracPart) > 1 {
		cents += int64(fracPart[1] - '0')
	}
	if len(fracPart) > 2 && fracPart[2] >= '5' {
		cents++
	}

	total := whole*100 + cents
	if negative {
		total = -total
	}
	return Money(total), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Abs returns the absolute value
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// String formats the amount as a decimal with two fractional digits
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	frac := strconv.FormatInt(v%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return sign + strconv.FormatInt(v/100, 10) + "." + frac
}

// MarshalJSON renders the amount as a decimal string
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts 12.34 or "12.34"
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ErrInvalidAmount
		}
		data = []byte(s)
	}
	// Exponent notation is not a plain decimal
	if bytes.ContainsAny(data, "eE") {
		return ErrInvalidAmount
	}
	parsed, err := ParseMoney(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
