// Package payout computes the amount owed for a single event under a billing
// entity's rate configuration. Compute is pure: no I/O, no clock, no state.
package payout

import (
	"errors"

	"github.com/shopspring/decimal"
	entitydomain "github.com/studiobill/studiobill/internal/billingentity/domain"
)

// ErrInvalidRateConfig is returned when Compute is handed a config that would
// not pass validation. Callers validate at the boundary; Compute only runs the
// cheap structural checks needed to avoid nil dereferences.
var ErrInvalidRateConfig = errors.New("invalid_rate_config")

// WarningTierGap marks an event whose headcount fell into no configured tier.
const WarningTierGap = "tier_gap"

// EventInput is the slice of an event the calculator needs.
type EventInput struct {
	StudentsStudio int
	StudentsOnline int

	// Deductions is an optional caller-supplied penalty (e.g. a substitute
	// surcharge) subtracted after bonuses. For the flat variant max_discount
	// caps how far it can pull the amount below base_rate.
	Deductions decimal.Decimal
}

// Result carries the computed amount and an optional configuration warning.
type Result struct {
	Amount  decimal.Decimal
	Warning string
}

// Compute resolves the payout for one event. The amount is never negative.
func Compute(ev EventInput, cfg entitydomain.RateConfig) (Result, error) {
	if ev.StudentsStudio < 0 || ev.StudentsOnline < 0 {
		return Result{}, ErrInvalidRateConfig
	}

	var result Result

	switch cfg.Type {
	case entitydomain.RateTypeFlat:
		if cfg.BaseRate == nil {
			return Result{}, ErrInvalidRateConfig
		}
		result.Amount = *cfg.BaseRate
		// Falling below minimum_threshold triggers no reduction; there are
		// no automatic penalties in the current system.
		if cfg.BonusThreshold != nil && ev.StudentsStudio > *cfg.BonusThreshold {
			if cfg.BonusPerStudent == nil {
				return Result{}, ErrInvalidRateConfig
			}
			extra := decimal.NewFromInt(int64(ev.StudentsStudio - *cfg.BonusThreshold))
			result.Amount = result.Amount.Add(extra.Mul(*cfg.BonusPerStudent))
		}

	case entitydomain.RateTypePerStudent:
		if cfg.RatePerStudent == nil {
			return Result{}, ErrInvalidRateConfig
		}
		// Flat per-event amount regardless of headcount; the "rate times
		// headcount" reading was rejected as a product decision.
		result.Amount = *cfg.RatePerStudent

	case entitydomain.RateTypeTiered:
		if len(cfg.Tiers) == 0 {
			return Result{}, ErrInvalidRateConfig
		}
		matched := false
		for _, tier := range cfg.Tiers {
			if tier.Contains(ev.StudentsStudio) {
				result.Amount = tier.Rate
				matched = true
				break
			}
		}
		if !matched {
			// Tiers are expected to be contiguous but gaps are not rejected
			// at write time; surface the hole instead of guessing a rate.
			result.Amount = decimal.Zero
			result.Warning = WarningTierGap
		}

	default:
		return Result{}, ErrInvalidRateConfig
	}

	result.Amount = result.Amount.Add(onlineBonus(ev, cfg))

	if ev.Deductions.IsPositive() {
		result.Amount = result.Amount.Sub(ev.Deductions)
	}
	if cfg.Type == entitydomain.RateTypeFlat && cfg.MaxDiscount != nil {
		floor := cfg.BaseRate.Sub(*cfg.MaxDiscount)
		if result.Amount.LessThan(floor) {
			result.Amount = floor
		}
	}
	if result.Amount.IsNegative() {
		result.Amount = decimal.Zero
	}
	return result, nil
}

func onlineBonus(ev EventInput, cfg entitydomain.RateConfig) decimal.Decimal {
	if cfg.OnlineBonusPerStudent == nil || ev.StudentsOnline == 0 {
		return decimal.Zero
	}
	eligible := ev.StudentsOnline
	if cfg.OnlineBonusCeiling != nil && eligible > *cfg.OnlineBonusCeiling {
		eligible = *cfg.OnlineBonusCeiling
	}
	return decimal.NewFromInt(int64(eligible)).Mul(*cfg.OnlineBonusPerStudent)
}
