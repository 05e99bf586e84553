package model

import "github.com/shopspring/decimal"

// Equal compares every field by value. Decimals are compared numerically
// and timestamps by instant, so representations decoded from JSON compare
// equal to the original.
func (o *Order) Equal(other *Order) bool {
	if o == nil || other == nil {
		return o == other
	}
	return o.Instrument == other.Instrument &&
		o.Units.Equal(other.Units) &&
		o.Side == other.Side &&
		o.Type == other.Type &&
		nullDecimalEqual(o.Price, other.Price) &&
		nullDecimalEqual(o.PriceBound, other.PriceBound) &&
		o.LastModified.Equal(other.LastModified) &&
		o.TimeInForce == other.TimeInForce &&
		o.GtdTime.Equal(other.GtdTime) &&
		o.PositionFill == other.PositionFill &&
		extensionsEqual(o.ClientExtensions, other.ClientExtensions) &&
		extensionsEqual(o.TradeClientExtensions, other.TradeClientExtensions) &&
		o.TakeProfitOnFill.Equal(other.TakeProfitOnFill) &&
		o.StopLossOnFill.Equal(other.StopLossOnFill) &&
		o.TrailingStopLossOnFill.Equal(other.TrailingStopLossOnFill)
}

func (d *TakeProfitDetails) Equal(other *TakeProfitDetails) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.Price.Equal(other.Price) &&
		d.TimeInForce == other.TimeInForce &&
		d.GtdTime.Equal(other.GtdTime)
}

func (d *StopLossDetails) Equal(other *StopLossDetails) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.Price.Equal(other.Price) &&
		d.TimeInForce == other.TimeInForce &&
		extensionsEqual(d.ClientExtensions, other.ClientExtensions)
}

func (d *TrailingStopLossDetails) Equal(other *TrailingStopLossDetails) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.Distance.Equal(other.Distance) &&
		d.TimeInForce == other.TimeInForce &&
		extensionsEqual(d.ClientExtensions, other.ClientExtensions)
}

func extensionsEqual(a, b *ClientExtensions) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func nullDecimalEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}
