package numwords_test

import (
	"testing"

	"backend/pkg/numwords"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "zero dollars and zero cents"},
		{"0.01", "zero dollars and one cent"},
		{"1", "one dollar and zero cents"},
		{"1.50", "one dollar and fifty cents"},
		{"5.00", "five dollars and zero cents"},
		{"13.05", "thirteen dollars and five cents"},
		{"21.99", "twenty-one dollars and ninety-nine cents"},
		{"150.75", "one hundred fifty dollars and seventy-five cents"},
		{"1000", "one thousand dollars and zero cents"},
		{"1234.56", "one thousand two hundred thirty-four dollars and fifty-six cents"},
		{"1000000", "one million dollars and zero cents"},
		{"2500000.10", "two million five hundred thousand dollars and ten cents"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, numwords.Amount(amt(tc.in)), tc.in)
	}
}

func TestAmount_RoundsToCents(t *testing.T) {
	assert.Equal(t, "one dollar and twenty-three cents", numwords.Amount(amt("1.2349")))
	assert.Equal(t, "one dollar and twenty-four cents", numwords.Amount(amt("1.235")))
}

func TestAmount_Negative(t *testing.T) {
	assert.Equal(t, "minus five dollars and fifty cents", numwords.Amount(amt("-5.50")))
}

func TestCardinal(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "zero"},
		{7, "seven"},
		{14, "fourteen"},
		{20, "twenty"},
		{42, "forty-two"},
		{70, "seventy"},
		{99, "ninety-nine"},
		{100, "one hundred"},
		{101, "one hundred one"},
		{115, "one hundred fifteen"},
		{999, "nine hundred ninety-nine"},
		{1000, "one thousand"},
		{1001, "one thousand one"},
		{12012, "twelve thousand twelve"},
		{1000000, "one million"},
		{1000000000, "one billion"},
		{1000000000000, "one trillion"},
		{-8, "minus eight"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, numwords.Cardinal(tc.in), "%d", tc.in)
	}
}
