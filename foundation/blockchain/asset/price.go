package asset

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Price is an exchange rate between two symbols expressed as base/quote. Feed
// prices are quoted as pegged tokens (base) per native token (quote).
type Price struct {
	Base  Amount `json:"base"`
	Quote Amount `json:"quote"`
}

// NewPrice constructs a price from a base and quote amount.
func NewPrice(base Amount, quote Amount) Price {
	return Price{Base: base, Quote: quote}
}

// IsNull reports whether the price is unset.
func (p Price) IsNull() bool {
	return p.Base.Amount == 0 || p.Quote.Amount == 0
}

// Validate checks the price has positive sides of different symbols.
func (p Price) Validate() error {
	if p.Base.Amount <= 0 || p.Quote.Amount <= 0 {
		return errors.New("price sides must be positive")
	}
	if p.Base.Symbol == p.Quote.Symbol {
		return errors.New("price sides must use different symbols")
	}
	return nil
}

// Invert returns the quote/base form of the price.
func (p Price) Invert() Price {
	return Price{Base: p.Quote, Quote: p.Base}
}

// Convert exchanges the amount into the other side of the price, rounding
// down. The amount's symbol must match one side of the price.
func (p Price) Convert(a Amount) (Amount, error) {
	if p.IsNull() {
		return Amount{}, errors.New("cannot convert with a null price")
	}

	switch a.Symbol {
	case p.Base.Symbol:
		v, err := MulDiv(a.Amount, p.Quote.Amount, p.Base.Amount)
		if err != nil {
			return Amount{}, err
		}
		return Amount{Amount: v, Symbol: p.Quote.Symbol}, nil

	case p.Quote.Symbol:
		v, err := MulDiv(a.Amount, p.Base.Amount, p.Quote.Amount)
		if err != nil {
			return Amount{}, err
		}
		return Amount{Amount: v, Symbol: p.Base.Symbol}, nil
	}

	return Amount{}, fmt.Errorf("amount symbol %s does not match price %s/%s", a.Symbol, p.Base.Symbol, p.Quote.Symbol)
}

// Cmp compares two prices with the same orientation and returns -1, 0, or +1
// depending on whether p is less than, equal to, or greater than o.
func (p Price) Cmp(o Price) int {
	if p.Base.Symbol != o.Base.Symbol {
		o = o.Invert()
	}

	l := new(uint256.Int).Mul(uint256.NewInt(uint64(p.Base.Amount)), uint256.NewInt(uint64(o.Quote.Amount)))
	r := new(uint256.Int).Mul(uint256.NewInt(uint64(o.Base.Amount)), uint256.NewInt(uint64(p.Quote.Amount)))

	return l.Cmp(r)
}

// Less reports whether p is strictly smaller than o.
func (p Price) Less(o Price) bool {
	return p.Cmp(o) < 0
}

// ScaleBase returns the price with the base side scaled by num/den. It is used
// to apply fees and premiums to an exchange rate.
func (p Price) ScaleBase(num int64, den int64) Price {
	return Price{
		Base:  Amount{Amount: MustMulDiv(p.Base.Amount, num, den), Symbol: p.Base.Symbol},
		Quote: p.Quote,
	}
}

// String renders the price in the legacy form.
func (p Price) String() string {
	return fmt.Sprintf("%s/%s", p.Base, p.Quote)
}
