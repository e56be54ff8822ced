package rewards

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TierAmount is the informational per-bracket view of a calculation.
type TierAmount struct {
	Label  string
	Amount decimal.Decimal
	Rate   decimal.Decimal
	Reward decimal.Decimal
}

// RatePercent renders the rate as a percentage with two decimals, e.g. "4.50%".
func (t TierAmount) RatePercent() string {
	return t.Rate.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}

// Result holds the rounded total reward and the per-bracket breakdown.
// Breakdown rewards are rounded for display and must not be summed.
type Result struct {
	Total     decimal.Decimal
	Breakdown []TierAmount
}

// Calculate applies the schedule's marginal rates to total. The total reward
// is accumulated unrounded and rounded once to 2 decimals, half away from zero.
func (s *Schedule) Calculate(total decimal.Decimal) (Result, error) {
	if total.IsNegative() {
		return Result{}, fmt.Errorf("%w: purchase total %s is negative", ErrInvalidInput, total)
	}

	result := Result{Total: decimal.Zero, Breakdown: []TierAmount{}}
	remaining := total
	accumulated := decimal.Zero

	for _, b := range s.brackets {
		if !remaining.IsPositive() {
			break
		}

		amount := remaining
		if !b.Unbounded() {
			amount = decimal.Min(remaining, b.Capacity())
		}

		reward := amount.Mul(b.Rate)
		accumulated = accumulated.Add(reward)
		remaining = remaining.Sub(amount)

		result.Breakdown = append(result.Breakdown, TierAmount{
			Label:  b.Label(),
			Amount: amount,
			Rate:   b.Rate,
			Reward: reward.Round(2),
		})
	}

	result.Total = accumulated.Round(2)
	return result, nil
}

// Reward is Calculate without the breakdown.
func (s *Schedule) Reward(total decimal.Decimal) (decimal.Decimal, error) {
	result, err := s.Calculate(total)
	if err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}
