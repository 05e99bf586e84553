package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// IsTriggeredBy reports whether the order would execute at quote q.
// It never mutates the order or the quote.
//
// Buy orders are compared against the ask, sell orders against the bid.
// Limit and market-if-touched orders trigger once the price is at least as
// favorable as Price, stop orders once it breaks through Price. Boundaries
// are inclusive.
func (o *Order) IsTriggeredBy(q *Quote) (bool, error) {
	if q == nil {
		return false, ErrNilQuote
	}

	switch o.Type {
	case OrderTypeMarket:
		return true, nil
	case OrderTypeLimit, OrderTypeMarketIfTouched, OrderTypeStop:
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownOrderType, o.Type)
	}

	v, err := q.Value(o.Instrument)
	if err != nil {
		return false, err
	}
	if !o.Price.Valid {
		return false, fmt.Errorf("%w: %s order on %s", ErrPriceNotSet, o.Type, o.Instrument)
	}

	current, err := o.comparedPrice(v)
	if err != nil {
		return false, err
	}
	price := o.Price.Decimal

	switch o.Type {
	case OrderTypeLimit, OrderTypeMarketIfTouched:
		if o.Side == OrderSideBuy {
			return current.LessThanOrEqual(price), nil
		}
		return current.GreaterThanOrEqual(price), nil
	case OrderTypeStop:
		if o.Side == OrderSideBuy {
			return current.GreaterThanOrEqual(price), nil
		}
		return current.LessThanOrEqual(price), nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownOrderType, o.Type)
	}
}

// comparedPrice picks the side of the quote the order trades against:
// a buyer pays the ask, a seller receives the bid.
func (o *Order) comparedPrice(v PriceValue) (decimal.Decimal, error) {
	switch o.Side {
	case OrderSideBuy:
		return v.Ask, nil
	case OrderSideSell:
		return v.Bid, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownOrderSide, o.Side)
	}
}
