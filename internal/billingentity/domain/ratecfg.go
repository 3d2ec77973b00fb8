package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RateType discriminates the rate configuration variants.
type RateType string

const (
	RateTypeFlat       RateType = "flat"
	RateTypePerStudent RateType = "per_student"
	RateTypeTiered     RateType = "tiered"
)

// Tier is one headcount band of a tiered rate. Max is inclusive; a nil Max
// marks the single unbounded tier, which must come last.
type Tier struct {
	Min  int             `json:"min"`
	Max  *int            `json:"max"`
	Rate decimal.Decimal `json:"rate"`
}

// Contains reports whether the studio headcount falls into this tier.
func (t Tier) Contains(students int) bool {
	if students < t.Min {
		return false
	}
	return t.Max == nil || students <= *t.Max
}

// RateConfig is the pricing rule set attached to a billing entity. It is a
// tagged union: the Type field selects the variant and which fields apply.
// Optional fields are pointers so "unset" stays distinguishable from zero.
type RateConfig struct {
	Type RateType `json:"type"`

	// flat variant
	BaseRate         *decimal.Decimal `json:"base_rate,omitempty"`
	MinimumThreshold *int             `json:"minimum_threshold,omitempty"`
	BonusThreshold   *int             `json:"bonus_threshold,omitempty"`
	BonusPerStudent  *decimal.Decimal `json:"bonus_per_student,omitempty"`
	MaxDiscount      *decimal.Decimal `json:"max_discount,omitempty"`

	// per_student variant
	RatePerStudent *decimal.Decimal `json:"rate_per_student,omitempty"`

	// tiered variant
	Tiers []Tier `json:"tiers,omitempty"`

	// common to all variants
	OnlineBonusPerStudent *decimal.Decimal `json:"online_bonus_per_student,omitempty"`
	OnlineBonusCeiling    *int             `json:"online_bonus_ceiling,omitempty"`
}

// RateConfigError reports a rejected rate configuration.
type RateConfigError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RateConfigError) Error() string { return e.Code }

func rateConfigError(field, code, format string, args ...any) *RateConfigError {
	return &RateConfigError{
		Field:   field,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Validate checks the configuration against the variant rules. It must pass
// before the config is persisted or handed to the payout calculator.
func (c RateConfig) Validate() error {
	switch c.Type {
	case RateTypeFlat:
		if err := c.validateFlat(); err != nil {
			return err
		}
	case RateTypePerStudent:
		if c.RatePerStudent == nil || !c.RatePerStudent.IsPositive() {
			return rateConfigError("rate_per_student", "invalid_rate_per_student", "rate_per_student must be > 0")
		}
	case RateTypeTiered:
		if err := c.validateTiers(); err != nil {
			return err
		}
	default:
		return rateConfigError("type", "invalid_rate_type", "unknown rate type %q", c.Type)
	}

	if c.OnlineBonusPerStudent != nil && c.OnlineBonusPerStudent.IsNegative() {
		return rateConfigError("online_bonus_per_student", "invalid_online_bonus", "online_bonus_per_student must be >= 0")
	}
	if c.OnlineBonusCeiling != nil && *c.OnlineBonusCeiling < 0 {
		return rateConfigError("online_bonus_ceiling", "invalid_online_bonus_ceiling", "online_bonus_ceiling must be >= 0")
	}
	return nil
}

func (c RateConfig) validateFlat() error {
	if c.BaseRate == nil || !c.BaseRate.IsPositive() {
		return rateConfigError("base_rate", "invalid_base_rate", "base_rate must be > 0")
	}
	if c.MinimumThreshold != nil && *c.MinimumThreshold < 0 {
		return rateConfigError("minimum_threshold", "invalid_minimum_threshold", "minimum_threshold must be >= 0")
	}
	if c.BonusThreshold != nil {
		if c.MinimumThreshold != nil && *c.BonusThreshold <= *c.MinimumThreshold {
			return rateConfigError("bonus_threshold", "invalid_bonus_threshold", "bonus_threshold must be > minimum_threshold")
		}
		if c.BonusPerStudent == nil {
			return rateConfigError("bonus_per_student", "missing_bonus_per_student", "bonus_per_student is required when bonus_threshold is set")
		}
	}
	if c.BonusPerStudent != nil && c.BonusPerStudent.IsNegative() {
		return rateConfigError("bonus_per_student", "invalid_bonus_per_student", "bonus_per_student must be >= 0")
	}
	if c.MaxDiscount != nil && c.MaxDiscount.IsNegative() {
		return rateConfigError("max_discount", "invalid_max_discount", "max_discount must be >= 0")
	}
	return nil
}

func (c RateConfig) validateTiers() error {
	if len(c.Tiers) == 0 {
		return rateConfigError("tiers", "empty_tiers", "tiered config requires at least one tier")
	}
	for i, tier := range c.Tiers {
		if tier.Min < 0 {
			return rateConfigError("tiers", "invalid_tier_min", "tier %d: min must be >= 0", i)
		}
		if tier.Max != nil && *tier.Max < tier.Min {
			return rateConfigError("tiers", "invalid_tier_max", "tier %d: max must be >= min", i)
		}
		if !tier.Rate.IsPositive() {
			return rateConfigError("tiers", "invalid_tier_rate", "tier %d: rate must be > 0", i)
		}
		if tier.Max == nil && i != len(c.Tiers)-1 {
			return rateConfigError("tiers", "unbounded_tier_not_last", "only the last tier may be unbounded")
		}
		if i == 0 {
			continue
		}
		prev := c.Tiers[i-1]
		if tier.Min <= prev.Min {
			return rateConfigError("tiers", "unsorted_tiers", "tiers must be sorted ascending by min")
		}
		if prev.Max == nil || tier.Min <= *prev.Max {
			return rateConfigError("tiers", "overlapping_tiers", "tier %d overlaps tier %d", i, i-1)
		}
	}
	return nil
}
