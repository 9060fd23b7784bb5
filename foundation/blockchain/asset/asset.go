// Package asset provides the token amounts, exchange rates, and wide integer
// math used by the economic state machine.
package asset

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Symbol identifies one of the fungible units tracked by the ledger.
type Symbol uint8

// The set of symbols. The numeric values are part of the canonical encoding
// and must never change.
const (
	HIVE  Symbol = 0 // Native token.
	HBD   Symbol = 1 // Pegged token.
	VESTS Symbol = 2 // Stake units.
)

var symbolNames = map[Symbol]string{
	HIVE:  "HIVE",
	HBD:   "HBD",
	VESTS: "VESTS",
}

var symbolPrecision = map[Symbol]uint8{
	HIVE:  3,
	HBD:   3,
	VESTS: 6,
}

// ParseSymbol converts the display name of a symbol into its value.
func ParseSymbol(name string) (Symbol, error) {
	for sym, n := range symbolNames {
		if n == name {
			return sym, nil
		}
	}
	return 0, fmt.Errorf("unknown symbol %q", name)
}

// String returns the display name of the symbol.
func (s Symbol) String() string {
	if n, exists := symbolNames[s]; exists {
		return n
	}
	return fmt.Sprintf("SYMBOL(%d)", uint8(s))
}

// Precision returns the number of decimal places used to display the symbol.
func (s Symbol) Precision() uint8 {
	return symbolPrecision[s]
}

// =============================================================================

// Amount is a quantity of a specific symbol measured in the smallest unit.
type Amount struct {
	Amount int64
	Symbol Symbol
}

// New constructs an amount of the specified symbol.
func New(amount int64, symbol Symbol) Amount {
	return Amount{Amount: amount, Symbol: symbol}
}

// Hive constructs an amount of native tokens.
func Hive(amount int64) Amount {
	return Amount{Amount: amount, Symbol: HIVE}
}

// HBDs constructs an amount of pegged tokens.
func HBDs(amount int64) Amount {
	return Amount{Amount: amount, Symbol: HBD}
}

// Vests constructs an amount of stake units.
func Vests(amount int64) Amount {
	return Amount{Amount: amount, Symbol: VESTS}
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.Amount == 0
}

// Add returns the sum of two amounts of the same symbol.
func (a Amount) Add(b Amount) Amount {
	return Amount{Amount: a.Amount + b.Amount, Symbol: a.Symbol}
}

// Sub returns the difference of two amounts of the same symbol.
func (a Amount) Sub(b Amount) Amount {
	return Amount{Amount: a.Amount - b.Amount, Symbol: a.Symbol}
}

// String renders the amount in the legacy format, "1.000 HIVE".
func (a Amount) String() string {
	prec := int32(a.Symbol.Precision())
	return decimal.New(a.Amount, -prec).StringFixed(prec) + " " + a.Symbol.String()
}

// Parse converts a legacy formatted amount like "1.000 HIVE" into an Amount.
func Parse(s string) (Amount, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}

	sym, err := ParseSymbol(fields[1])
	if err != nil {
		return Amount{}, err
	}

	d, err := decimal.NewFromString(fields[0])
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	prec := int32(sym.Precision())
	if -d.Exponent() > prec {
		return Amount{}, fmt.Errorf("invalid amount %q: too many decimal places for %s", s, sym)
	}

	units := d.Shift(prec)
	if !units.IsInteger() {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}

	return Amount{Amount: units.IntPart(), Symbol: sym}, nil
}

// =============================================================================

// canonical is the internal JSON shape of an amount.
type canonical struct {
	Amount    string `json:"amount"`
	Precision uint8  `json:"precision"`
	SymbolID  uint8  `json:"symbol_id"`
}

// MarshalJSON implements the json.Marshaler interface using the canonical
// {amount, precision, symbol_id} triple.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(canonical{
		Amount:    fmt.Sprintf("%d", a.Amount),
		Precision: a.Symbol.Precision(),
		SymbolID:  uint8(a.Symbol),
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface. Both the canonical
// triple and the legacy string format are accepted.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		amt, err := Parse(s)
		if err != nil {
			return err
		}
		*a = amt
		return nil
	}

	var c canonical
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}

	sym := Symbol(c.SymbolID)
	if _, exists := symbolNames[sym]; !exists {
		return fmt.Errorf("unknown symbol id %d", c.SymbolID)
	}
	if c.Precision != sym.Precision() {
		return errors.New("precision does not match symbol")
	}

	var v int64
	if _, err := fmt.Sscan(c.Amount, &v); err != nil {
		return fmt.Errorf("invalid amount %q: %w", c.Amount, err)
	}

	*a = Amount{Amount: v, Symbol: sym}
	return nil
}
