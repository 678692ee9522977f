package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"

	"yieldpool/internal/common"
)

// Decimals is the fixed-point precision of every token amount.
const Decimals = 18

const bpsDenominator = 10_000

var maxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Amount is a non-negative token quantity in base units (10^-18 of a token),
// bounded by 2^256-1. The zero value is 0. Amounts are immutable: every
// operation returns a new value.
type Amount struct {
	n *big.Int
}

func Zero() Amount {
	return Amount{}
}

// NewAmount returns base units. It panics on negative input.
func NewAmount(base int64) Amount {
	if base < 0 {
		panic("models: negative amount")
	}
	return Amount{n: big.NewInt(base)}
}

// Tokens returns whole tokens, i.e. n * 10^18 base units.
func Tokens(n int64) Amount {
	a, err := AmountFromBig(new(big.Int).Mul(big.NewInt(n), unit()))
	if err != nil {
		panic(err)
	}
	return a
}

func unit() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)
}

// AmountFromBig range-checks b and copies it.
func AmountFromBig(b *big.Int) (Amount, error) {
	if b == nil {
		return Zero(), nil
	}
	if b.Sign() < 0 || b.Cmp(maxAmount) > 0 {
		return Zero(), fmt.Errorf("%w: %s out of range", common.ErrOverflow, b.String())
	}
	return Amount{n: new(big.Int).Set(b)}, nil
}

// ParseAmount parses a decimal token quantity such as "10" or "0.25".
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero(), common.Invalid("amount %q: %v", s, err)
	}
	if d.Sign() < 0 {
		return Zero(), common.Invalid("amount %q is negative", s)
	}
	base := d.Shift(Decimals)
	if !base.IsInteger() {
		return Zero(), common.Invalid("amount %q has more than %d decimals", s, Decimals)
	}
	return AmountFromBig(base.BigInt())
}

func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseBaseUnits parses an integer count of base units.
func ParseBaseUnits(s string) (Amount, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Zero(), common.Invalid("base units %q", s)
	}
	return AmountFromBig(b)
}

func (a Amount) big() *big.Int {
	if a.n == nil {
		return new(big.Int)
	}
	return a.n
}

// Big returns a copy of the underlying integer.
func (a Amount) Big() *big.Int {
	return new(big.Int).Set(a.big())
}

func (a Amount) IsZero() bool {
	return a.big().Sign() == 0
}

func (a Amount) Cmp(b Amount) int {
	return a.big().Cmp(b.big())
}

func (a Amount) Equal(b Amount) bool {
	return a.Cmp(b) == 0
}

func (a Amount) Add(b Amount) (Amount, error) {
	return AmountFromBig(new(big.Int).Add(a.big(), b.big()))
}

// Sub fails with ErrOverflow when b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	return AmountFromBig(new(big.Int).Sub(a.big(), b.big()))
}

// Half returns floor(a/2).
func (a Amount) Half() Amount {
	return Amount{n: new(big.Int).Rsh(a.big(), 1)}
}

// MulDiv returns floor(a * num / den).
func (a Amount) MulDiv(num, den *big.Int) (Amount, error) {
	if den.Sign() <= 0 || num.Sign() < 0 {
		return Zero(), common.Invalid("muldiv by %s/%s", num, den)
	}
	r := new(big.Int).Mul(a.big(), num)
	return AmountFromBig(r.Quo(r, den))
}

// Bps returns floor(a * bps / 10000).
func (a Amount) Bps(bps int64) (Amount, error) {
	return a.MulDiv(big.NewInt(bps), big.NewInt(bpsDenominator))
}

func MinAmount(a, b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// String renders base units.
func (a Amount) String() string {
	return a.big().String()
}

// Decimal renders whole tokens with up to 18 fractional digits.
func (a Amount) Decimal() string {
	return decimal.NewFromBigInt(a.big(), -Decimals).String()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		s = n.String()
	}
	v, err := ParseBaseUnits(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Value stores the amount as its base-unit decimal string, which both
// NUMERIC and TEXT columns accept.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

func (a *Amount) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*a = Zero()
		return nil
	case []byte:
		s = string(v)
	case string:
		s = v
	case int64:
		s = strconv.FormatInt(v, 10)
	default:
		return fmt.Errorf("models: cannot scan %T into Amount", src)
	}
	v, err := ParseBaseUnits(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
