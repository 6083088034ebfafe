package aggregate

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownGranularity = errors.New("unknown granularity")
	ErrUnknownCalculation = errors.New("unknown calculation")
)

// Granularity is the time-bucket resolution applied before aggregation.
type Granularity int

const (
	Daily Granularity = iota
	Weekly
	Monthly
	Quarterly
)

var granularityTokens = [...]string{
	Daily:     "Daily",
	Weekly:    "Weekly",
	Monthly:   "Monthly",
	Quarterly: "Quarterly",
}

func (g Granularity) String() string {
	if g < 0 || int(g) >= len(granularityTokens) {
		return fmt.Sprintf("Granularity(%d)", int(g))
	}
	return granularityTokens[g]
}

// ParseGranularity accepts only the exact tokens Daily, Weekly, Monthly and
// Quarterly.
func ParseGranularity(token string) (Granularity, error) {
	for g, t := range granularityTokens {
		if t == token {
			return Granularity(g), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownGranularity, token)
}

func (g Granularity) MarshalText() ([]byte, error) {
	if g < 0 || int(g) >= len(granularityTokens) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownGranularity, int(g))
	}
	return []byte(granularityTokens[g]), nil
}

func (g *Granularity) UnmarshalText(b []byte) error {
	parsed, err := ParseGranularity(string(b))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Calculation is the post-aggregation transform applied per dimension group.
type Calculation int

const (
	Total Calculation = iota
	RunningTotal
	MovingAverage3
	MovingAverage7
)

var calculationTokens = [...]string{
	Total:          "Total",
	RunningTotal:   "Running Total",
	MovingAverage3: "Moving Average (3 Period)",
	MovingAverage7: "Moving Average (7 Period)",
}

func (c Calculation) String() string {
	if c < 0 || int(c) >= len(calculationTokens) {
		return fmt.Sprintf("Calculation(%d)", int(c))
	}
	return calculationTokens[c]
}

// ParseCalculation accepts only the exact calculation tokens.
func ParseCalculation(token string) (Calculation, error) {
	for c, t := range calculationTokens {
		if t == token {
			return Calculation(c), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCalculation, token)
}

func (c Calculation) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(calculationTokens) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCalculation, int(c))
	}
	return []byte(calculationTokens[c]), nil
}

func (c *Calculation) UnmarshalText(b []byte) error {
	parsed, err := ParseCalculation(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Window is the moving-average period, or 0 for non-windowed calculations.
func (c Calculation) Window() int {
	switch c {
	case MovingAverage3:
		return 3
	case MovingAverage7:
		return 7
	}
	return 0
}

// Mode selects how rows reduce into a group measure.
type Mode int

const (
	// Count counts rows.
	Count Mode = iota
	// Sum adds each row's Value.
	Sum
)
