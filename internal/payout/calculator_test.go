package payout

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	entitydomain "github.com/studiobill/studiobill/internal/billingentity/domain"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func decPtr(value string) *decimal.Decimal {
	d := dec(value)
	return &d
}

func intPtr(v int) *int {
	return &v
}

func TestComputeFlatWithAttendanceBonus(t *testing.T) {
	cfg := entitydomain.RateConfig{
		Type:            entitydomain.RateTypeFlat,
		BaseRate:        decPtr("45"),
		BonusThreshold:  intPtr(15),
		BonusPerStudent: decPtr("3"),
	}

	result, err := Compute(EventInput{StudentsStudio: 20}, cfg)
	require.NoError(t, err)
	require.True(t, result.Amount.Equal(dec("60")), "got %s", result.Amount)
	require.Empty(t, result.Warning)
}

func TestComputeFlatAtOrBelowBonusThreshold(t *testing.T) {
	cfg := entitydomain.RateConfig{
		Type:            entitydomain.RateTypeFlat,
		BaseRate:        decPtr("45"),
		BonusThreshold:  intPtr(15),
		BonusPerStudent: decPtr("3"),
	}

	for _, students := range []int{0, 1, 15} {
		result, err := Compute(EventInput{StudentsStudio: students}, cfg)
		require.NoError(t, err)
		require.True(t, result.Amount.Equal(dec("45")), "students=%d got %s", students, result.Amount)
	}
}

func TestComputeFlatBelowMinimumThresholdIsNoOp(t *testing.T) {
	cfg := entitydomain.RateConfig{
		Type:             entitydomain.RateTypeFlat,
		BaseRate:         decPtr("45"),
		MinimumThreshold: intPtr(5),
	}

	result, err := Compute(EventInput{StudentsStudio: 2}, cfg)
	require.NoError(t, err)
	require.True(t, result.Amount.Equal(dec("45")), "got %s", result.Amount)
}

func TestComputeTieredSelectsBand(t *testing.T) {
	cfg := entitydomain.RateConfig{
		Type: entitydomain.RateTypeTiered,
		Tiers: []entitydomain.Tier{
			{Min: 0, Max: intPtr(9), Rate: dec("30")},
			{Min: 10, Max: intPtr(15), Rate: dec("40")},
			{Min: 16, Rate: dec("50")},
		},
	}

	cases := []struct {
		students int
		want     string
	}{
		{0, "30"},
		{9, "30"},
		{10, "40"},
		{15, "40"},
		{16, "50"},
		{80, "50"},
	}
	for _, tc := range cases {
		result, err := Compute(EventInput{StudentsStudio: tc.students}, cfg)
		require.NoError(t, err)
		require.True(t, result.Amount.Equal(dec(tc.want)),
			"students=%d got %s want %s", tc.students, result.Amount, tc.want)
		require.Empty(t, result.Warning)
	}
}

func TestComputeTieredGapWarnsAndPaysZero(t *testing.T) {
	cfg := entitydomain.RateConfig{
		Type: entitydomain.RateTypeTiered,
		Tiers: []entitydomain.Tier{
			{Min: 0, Max: intPtr(5), Rate: dec("25")},
			{Min: 10, Max: intPtr(15), Rate: dec("40")},
		},
	}

	result, err := Compute(EventInput{StudentsStudio: 7}, cfg)
	require.NoError(t, err)
	require.True(t, result.Amount.IsZero(), "got %s", result.Amount)
	require.Equal(t, WarningTierGap, result.Warning)
}

func TestComputeTieredMonotonicAcrossHeadcounts(t *testing.T) {
	cfg := entitydomain.RateConfig{
		Type: entitydomain.RateTypeTiered,
		Tiers: []entitydomain.Tier{
			{Min: 0, Max: intPtr(9), Rate: dec("30")},
			{Min: 10, Max: intPtr(15), Rate: dec("40")},
			{Min: 16, Rate: dec("50")},
		},
	}

	prev := decimal.Zero
	for students := 0; students <= 40; students++ {
		result, err := Compute(EventInput{StudentsStudio: students}, cfg)
		require.NoError(t, err)
		require.False(t, result.Amount.LessThan(prev),
			"amount dropped at students=%d: %s < %s", students, result.Amount, prev)
		prev = result.Amount
	}
}

func TestComputePerStudentIgnoresHeadcount(t *testing.T) {
	cfg := entitydomain.RateConfig{
		Type:           entitydomain.RateTypePerStudent,
		RatePerStudent: decPtr("35"),
	}

	for _, students := range []int{0, 1, 12, 60} {
		result, err := Compute(EventInput{StudentsStudio: students}, cfg)
		require.NoError(t, err)
		require.True(t, result.Amount.Equal(dec("35")), "students=%d got %s", students, result.Amount)
	}
}

func TestComputeOnlineBonusWithCeiling(t *testing.T) {
	cfg := entitydomain.RateConfig{
		Type:                  entitydomain.RateTypeFlat,
		BaseRate:              decPtr("40"),
		OnlineBonusPerStudent: decPtr("2.5"),
		OnlineBonusCeiling:    intPtr(5),
	}

	// 8 online students, ceiling 5: bonus is 5 x 2.5 = 12.5.
	result, err := Compute(EventInput{StudentsStudio: 10, StudentsOnline: 8}, cfg)
	require.NoError(t, err)
	require.True(t, result.Amount.Equal(dec("52.5")), "got %s", result.Amount)

	// Below the ceiling the full headcount counts.
	result, err = Compute(EventInput{StudentsStudio: 10, StudentsOnline: 3}, cfg)
	require.NoError(t, err)
	require.True(t, result.Amount.Equal(dec("47.5")), "got %s", result.Amount)
}

func TestComputeFlatMaxDiscountFloorsDeductions(t *testing.T) {
	cfg := entitydomain.RateConfig{
		Type:        entitydomain.RateTypeFlat,
		BaseRate:    decPtr("50"),
		MaxDiscount: decPtr("10"),
	}

	result, err := Compute(EventInput{StudentsStudio: 8, Deductions: dec("15")}, cfg)
	require.NoError(t, err)
	require.True(t, result.Amount.Equal(dec("40")), "got %s", result.Amount)

	// Deductions inside the allowance apply in full.
	result, err = Compute(EventInput{StudentsStudio: 8, Deductions: dec("4")}, cfg)
	require.NoError(t, err)
	require.True(t, result.Amount.Equal(dec("46")), "got %s", result.Amount)
}

func TestComputeNeverNegative(t *testing.T) {
	cfg := entitydomain.RateConfig{
		Type:           entitydomain.RateTypePerStudent,
		RatePerStudent: decPtr("20"),
	}

	result, err := Compute(EventInput{StudentsStudio: 4, Deductions: dec("100")}, cfg)
	require.NoError(t, err)
	require.True(t, result.Amount.IsZero(), "got %s", result.Amount)
}

func TestComputeRejectsNegativeHeadcounts(t *testing.T) {
	cfg := entitydomain.RateConfig{
		Type:           entitydomain.RateTypePerStudent,
		RatePerStudent: decPtr("20"),
	}

	_, err := Compute(EventInput{StudentsStudio: -1}, cfg)
	require.ErrorIs(t, err, ErrInvalidRateConfig)
}

func TestComputeRejectsUnknownType(t *testing.T) {
	_, err := Compute(EventInput{StudentsStudio: 5}, entitydomain.RateConfig{Type: "hourly"})
	require.ErrorIs(t, err, ErrInvalidRateConfig)
}

func TestComputeStableUnderReserialization(t *testing.T) {
	cfg := entitydomain.RateConfig{
		Type:                  entitydomain.RateTypeFlat,
		BaseRate:              decPtr("45"),
		BonusThreshold:        intPtr(15),
		BonusPerStudent:       decPtr("3"),
		OnlineBonusPerStudent: decPtr("2.5"),
		OnlineBonusCeiling:    intPtr(5),
	}
	input := EventInput{StudentsStudio: 20, StudentsOnline: 2}

	first, err := Compute(input, cfg)
	require.NoError(t, err)

	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	var decoded entitydomain.RateConfig
	require.NoError(t, json.Unmarshal(raw, &decoded))

	second, err := Compute(input, decoded)
	require.NoError(t, err)
	require.True(t, first.Amount.Equal(second.Amount),
		"got %s vs %s", first.Amount, second.Amount)
	require.Equal(t, first.Warning, second.Warning)
}
