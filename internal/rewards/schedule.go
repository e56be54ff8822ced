// Package rewards computes monthly cash rewards from purchase totals using a
// progressive bracket schedule: each bracket's rate applies only to the part
// of the total that falls inside that bracket.
package rewards

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Bracket is one purchase-value range with its marginal rate.
// A nil Upper marks the final, unbounded bracket.
type Bracket struct {
	Lower decimal.Decimal
	Upper *decimal.Decimal
	Rate  decimal.Decimal
}

// Unbounded reports whether the bracket has no upper limit.
func (b Bracket) Unbounded() bool {
	return b.Upper == nil
}

// Capacity returns the width of a bounded bracket.
func (b Bracket) Capacity() decimal.Decimal {
	if b.Upper == nil {
		return decimal.Zero
	}
	return b.Upper.Sub(b.Lower)
}

// Label renders the bracket range for display, e.g. "0 - 250,000" or "1,000,000+".
func (b Bracket) Label() string {
	if b.Upper == nil {
		return groupThousands(b.Lower) + "+"
	}
	return groupThousands(b.Lower) + " - " + groupThousands(*b.Upper)
}

// Schedule is a validated, ordered set of brackets. Build it with NewSchedule.
type Schedule struct {
	brackets []Bracket
}

// NewSchedule validates the brackets and returns an immutable schedule.
func NewSchedule(brackets []Bracket) (*Schedule, error) {
	if len(brackets) == 0 {
		return nil, fmt.Errorf("%w: no brackets", ErrInvalidSchedule)
	}

	one := decimal.NewFromInt(1)
	for i, b := range brackets {
		if i == 0 && !b.Lower.IsZero() {
			return nil, fmt.Errorf("%w: first bracket must start at 0, got %s", ErrInvalidSchedule, b.Lower)
		}
		if i > 0 {
			prev := brackets[i-1]
			if prev.Upper == nil {
				return nil, fmt.Errorf("%w: bracket %d follows an unbounded bracket", ErrInvalidSchedule, i+1)
			}
			if !prev.Upper.Equal(b.Lower) {
				return nil, fmt.Errorf("%w: bracket %d starts at %s, previous ends at %s", ErrInvalidSchedule, i+1, b.Lower, prev.Upper)
			}
			if b.Rate.LessThan(prev.Rate) {
				return nil, fmt.Errorf("%w: bracket %d rate %s is lower than previous %s", ErrInvalidSchedule, i+1, b.Rate, prev.Rate)
			}
		}
		if b.Upper != nil && !b.Upper.GreaterThan(b.Lower) {
			return nil, fmt.Errorf("%w: bracket %d is empty", ErrInvalidSchedule, i+1)
		}
		if b.Rate.IsNegative() || b.Rate.GreaterThan(one) {
			return nil, fmt.Errorf("%w: bracket %d rate %s outside [0, 1]", ErrInvalidSchedule, i+1, b.Rate)
		}
	}
	if brackets[len(brackets)-1].Upper != nil {
		return nil, fmt.Errorf("%w: last bracket must be unbounded", ErrInvalidSchedule)
	}

	copied := make([]Bracket, len(brackets))
	copy(copied, brackets)
	return &Schedule{brackets: copied}, nil
}

// Brackets returns a copy of the schedule's brackets in ascending order.
func (s *Schedule) Brackets() []Bracket {
	out := make([]Bracket, len(s.brackets))
	copy(out, s.brackets)
	return out
}

// DefaultSchedule returns the standard five-bracket cash reward schedule.
func DefaultSchedule() *Schedule {
	bound := func(v int64) *decimal.Decimal {
		d := decimal.NewFromInt(v)
		return &d
	}
	schedule, err := NewSchedule([]Bracket{
		{Lower: decimal.Zero, Upper: bound(250000), Rate: decimal.RequireFromString("0.045")},
		{Lower: decimal.NewFromInt(250000), Upper: bound(500000), Rate: decimal.RequireFromString("0.050")},
		{Lower: decimal.NewFromInt(500000), Upper: bound(750000), Rate: decimal.RequireFromString("0.055")},
		{Lower: decimal.NewFromInt(750000), Upper: bound(1000000), Rate: decimal.RequireFromString("0.060")},
		{Lower: decimal.NewFromInt(1000000), Rate: decimal.RequireFromString("0.065")},
	})
	if err != nil {
		panic(err)
	}
	return schedule
}

type scheduleFile struct {
	Brackets []struct {
		Lower       float64  `yaml:"lower"`
		Upper       *float64 `yaml:"upper"`
		RatePercent float64  `yaml:"rate_percent"`
	} `yaml:"brackets"`
}

// LoadSchedule reads brackets from a YAML file. An empty path yields DefaultSchedule.
//
//	brackets:
//	  - {lower: 0, upper: 250000, rate_percent: 4.5}
//	  - {lower: 250000, rate_percent: 5}
func LoadSchedule(path string) (*Schedule, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSchedule(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reward schedule: %w", err)
	}

	var file scheduleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse reward schedule: %w", err)
	}

	hundred := decimal.NewFromInt(100)
	brackets := make([]Bracket, 0, len(file.Brackets))
	for _, entry := range file.Brackets {
		b := Bracket{
			Lower: decimal.NewFromFloat(entry.Lower),
			Rate:  decimal.NewFromFloat(entry.RatePercent).Div(hundred),
		}
		if entry.Upper != nil {
			upper := decimal.NewFromFloat(*entry.Upper)
			b.Upper = &upper
		}
		brackets = append(brackets, b)
	}

	return NewSchedule(brackets)
}

func groupThousands(v decimal.Decimal) string {
	str := v.String()
	intPart, frac, hasFrac := strings.Cut(str, ".")

	var result strings.Builder
	length := len(intPart)
	for i, digit := range intPart {
		if i > 0 && (length-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}
	if hasFrac {
		result.WriteString("." + frac)
	}
	return result.String()
}
