package domain

import (
	"errors"
	"strings"
)

// ErrInvalidTaxID reports a company tax id (CNPJ) that fails the length or check-digit test.
var ErrInvalidTaxID = errors.New("invalid tax id")

const taxIDLength = 14

var (
	firstCheckWeights  = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	secondCheckWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// NormalizeTaxID strips punctuation and validates the two check digits.
func NormalizeTaxID(raw string) (string, error) {
	var b strings.Builder
	b.Grow(taxIDLength)
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) != taxIDLength {
		return "", ErrInvalidTaxID
	}
	if strings.Count(digits, digits[:1]) == taxIDLength {
		return "", ErrInvalidTaxID
	}
	if checkDigit(digits[:12], firstCheckWeights) != digits[12] ||
		checkDigit(digits[:13], secondCheckWeights) != digits[13] {
		return "", ErrInvalidTaxID
	}
	return digits, nil
}

func checkDigit(digits string, weights []int) byte {
	sum := 0
	for i := range weights {
		sum += int(digits[i]-'0') * weights[i]
	}
	rem := sum % 11
	if rem < 2 {
		return '0'
	}
	return byte('0' + 11 - rem)
}
