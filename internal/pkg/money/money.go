// Package money keeps prices in integer minor units so repeated markup
// recomputation never accumulates floating point drift.
package money

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Cents is an amount in minor currency units.
type Cents int64

// Percent is a percentage expressed in basis points (1500 == 15%).
type Percent int64

const basisPointsPerPercent = 100

// ParseCents parses a decimal string such as "115", "115.5" or "115.50".
// More than two fractional digits are rounded half-up.
func ParseCents(s string) (Cents, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return Cents(roundRat(r.Mul(r, big.NewRat(100, 1)))), nil
}

// FromFloat converts a major-unit float. Only used at the transport edge.
func FromFloat(v float64) Cents {
	r := new(big.Rat)
	r.SetFloat64(v)
	return Cents(roundRat(r.Mul(r, big.NewRat(100, 1))))
}

func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Float64 returns the amount in major units.
func (c Cents) Float64() float64 { return float64(c) / 100 }

func (c Cents) IsNegative() bool { return c < 0 }

func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Cents) UnmarshalJSON(data []byte) error {
	parsed, err := ParseCents(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParsePercent parses "15", "12.5" or "12.75" into basis points.
func ParsePercent(s string) (Percent, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return 0, fmt.Errorf("invalid percentage %q", s)
	}
	return Percent(roundRat(r.Mul(r, big.NewRat(basisPointsPerPercent, 1)))), nil
}

// PercentFromFloat converts a float percentage (15.0 → 1500bp).
func PercentFromFloat(v float64) Percent {
	r := new(big.Rat)
	r.SetFloat64(v)
	return Percent(roundRat(r.Mul(r, big.NewRat(basisPointsPerPercent, 1))))
}

func (p Percent) String() string {
	whole := int64(p) / basisPointsPerPercent
	frac := int64(p) % basisPointsPerPercent
	if frac < 0 {
		frac = -frac
	}
	if frac == 0 {
		return strconv.FormatInt(whole, 10)
	}
	return strings.TrimRight(fmt.Sprintf("%d.%02d", whole, frac), "0")
}

func (p Percent) Float64() float64 { return float64(p) / basisPointsPerPercent }

func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Percent) UnmarshalJSON(data []byte) error {
	parsed, err := ParsePercent(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Of returns base * p / 100, rounded half-up to the nearest cent.
func (p Percent) Of(base Cents) Cents {
	num := new(big.Rat).SetInt64(int64(base))
	num.Mul(num, big.NewRat(int64(p), basisPointsPerPercent*100))
	return Cents(roundRat(num))
}

// roundRat rounds half away from zero.
func roundRat(r *big.Rat) int64 {
	num := new(big.Int).Set(r.Num())
	den := r.Denom()
	neg := num.Sign() < 0
	if neg {
		num.Neg(num)
	}
	q, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if rem.Mul(rem, big.NewInt(2)).Cmp(den) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	if neg {
		q.Neg(q)
	}
	return q.Int64()
}
