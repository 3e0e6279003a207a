// Package normalize converts the raw price and condition encodings found in
// scraped listings into the canonical values the marketplace API accepts.
package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Condition is one of the fixed enum values understood by the backend.
type Condition string

const (
	ConditionNew     Condition = "NEW"
	ConditionLikeNew Condition = "LIKE_NEW"
	ConditionGood    Condition = "GOOD"
	ConditionFair    Condition = "FAIR"
	ConditionPoor    Condition = "POOR"
)

var allowedConditions = map[Condition]bool{
	ConditionNew:     true,
	ConditionLikeNew: true,
	ConditionGood:    true,
	ConditionFair:    true,
	ConditionPoor:    true,
}

// conditionAlias maps known off-enum source labels onto the enum.
var conditionAlias = map[string]Condition{
	"EXCELLENT": ConditionLikeNew,
}

// ConditionError reports a condition label with no mapping. An unmapped
// condition means the source schema drifted, so preparation must stop
// rather than default the value.
type ConditionError struct {
	Raw string
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("unsupported condition value: %q", e.Raw)
}

// NormalizeCondition maps a raw condition label onto the fixed enum,
// case-insensitively and via the alias table.
func NormalizeCondition(raw string) (Condition, error) {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if alias, ok := conditionAlias[upper]; ok {
		return alias, nil
	}
	c := Condition(upper)
	if !allowedConditions[c] {
		return "", &ConditionError{Raw: raw}
	}
	return c, nil
}

// Price is a fixed-point amount in cents.
type Price int64

// String formats the price with two decimal places, e.g. "100.00".
func (p Price) String() string {
	return fmt.Sprintf("%d.%02d", int64(p)/100, int64(p)%100)
}

// Amount returns the price as a float for JSON payloads.
func (p Price) Amount() float64 {
	return float64(p) / 100
}

// PriceError reports a price that could not be normalized to a positive
// amount.
type PriceError struct {
	Raw    int64
	Text   string
	Reason string
}

func (e *PriceError) Error() string {
	return fmt.Sprintf("invalid price (raw=%d): %s", e.Raw, e.Reason)
}

var (
	taggedPricePattern = regexp.MustCompile(`¥\s*(\d+(?:\.\d+)?)`)
	numberPattern      = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
)

// ParsePriceFromText extracts the source-currency amount embedded in a
// listing's original free text. The currency-tagged token wins; a bare
// numeric chunk is accepted when the tag is missing. Returns false when
// the text carries no usable number.
func ParsePriceFromText(originalText string) (float64, bool) {
	for _, re := range []*regexp.Regexp{taggedPricePattern, numberPattern} {
		if m := re.FindStringSubmatch(originalText); m != nil {
			v, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

// NormalizePrice converts a raw listing price into target-currency cents.
// When originalText embeds a source-currency amount, that amount is divided
// by exchangeRate; otherwise rawPrice is treated as minor units. Rounds
// half away from zero to two decimals and rejects non-positive results.
func NormalizePrice(rawPrice int64, originalText string, exchangeRate float64) (Price, error) {
	var cents int64
	if amount, ok := ParsePriceFromText(originalText); ok && amount > 0 {
		cents = int64(math.Round(amount / exchangeRate * 100))
	} else {
		cents = rawPrice
	}
	if cents <= 0 {
		return 0, &PriceError{Raw: rawPrice, Text: originalText, Reason: "price must be positive"}
	}
	return Price(cents), nil
}
