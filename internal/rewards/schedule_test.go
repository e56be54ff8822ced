package rewards

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upper(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestDefaultScheduleBrackets(t *testing.T) {
	brackets := DefaultSchedule().Brackets()
	require.Len(t, brackets, 5)

	assert.True(t, brackets[0].Lower.IsZero())
	assert.True(t, brackets[4].Unbounded())
	assert.Equal(t, "250,000 - 500,000", brackets[1].Label())
	assert.True(t, dec("0.065").Equal(brackets[4].Rate))
}

func TestNewScheduleRejectsMisconfiguration(t *testing.T) {
	cases := []struct {
		name     string
		brackets []Bracket
	}{
		{name: "empty", brackets: nil},
		{name: "non-zero start", brackets: []Bracket{
			{Lower: dec("10"), Rate: dec("0.05")},
		}},
		{name: "gap", brackets: []Bracket{
			{Lower: decimal.Zero, Upper: upper("100"), Rate: dec("0.01")},
			{Lower: dec("150"), Rate: dec("0.02")},
		}},
		{name: "overlap", brackets: []Bracket{
			{Lower: decimal.Zero, Upper: upper("100"), Rate: dec("0.01")},
			{Lower: dec("50"), Rate: dec("0.02")},
		}},
		{name: "decreasing rate", brackets: []Bracket{
			{Lower: decimal.Zero, Upper: upper("100"), Rate: dec("0.05")},
			{Lower: dec("100"), Rate: dec("0.04")},
		}},
		{name: "bounded last bracket", brackets: []Bracket{
			{Lower: decimal.Zero, Upper: upper("100"), Rate: dec("0.05")},
		}},
		{name: "unbounded in the middle", brackets: []Bracket{
			{Lower: decimal.Zero, Rate: dec("0.05")},
			{Lower: dec("100"), Rate: dec("0.06")},
		}},
		{name: "empty bracket", brackets: []Bracket{
			{Lower: decimal.Zero, Upper: upper("0"), Rate: dec("0.05")},
			{Lower: decimal.Zero, Rate: dec("0.06")},
		}},
		{name: "rate above one", brackets: []Bracket{
			{Lower: decimal.Zero, Rate: dec("1.5")},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSchedule(tc.brackets)
			assert.ErrorIs(t, err, ErrInvalidSchedule)
		})
	}
}

func TestNewScheduleCopiesInput(t *testing.T) {
	brackets := []Bracket{
		{Lower: decimal.Zero, Upper: upper("100"), Rate: dec("0.01")},
		{Lower: dec("100"), Rate: dec("0.02")},
	}
	schedule, err := NewSchedule(brackets)
	require.NoError(t, err)

	brackets[1].Rate = dec("0.9")
	assert.True(t, dec("0.02").Equal(schedule.Brackets()[1].Rate))
}

func TestLoadScheduleEmptyPathReturnsDefault(t *testing.T) {
	schedule, err := LoadSchedule("")
	require.NoError(t, err)
	assert.Len(t, schedule.Brackets(), 5)
}

func TestLoadScheduleFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.yaml")
	content := `brackets:
  - lower: 0
    upper: 100000
    rate_percent: 2
  - lower: 100000
    rate_percent: 3.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	schedule, err := LoadSchedule(path)
	require.NoError(t, err)

	brackets := schedule.Brackets()
	require.Len(t, brackets, 2)
	assert.True(t, dec("0.02").Equal(brackets[0].Rate))
	assert.True(t, dec("0.035").Equal(brackets[1].Rate))

	got, err := schedule.Reward(dec("200000"))
	require.NoError(t, err)
	assert.True(t, dec("5500").Equal(got), "got %s", got)
}

func TestLoadScheduleRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.yaml")
	content := `brackets:
  - lower: 0
    upper: 100
    rate_percent: 5
  - lower: 200
    rate_percent: 6
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := LoadSchedule(path)
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestLoadScheduleMissingFile(t *testing.T) {
	_, err := LoadSchedule(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
