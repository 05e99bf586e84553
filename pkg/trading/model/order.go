package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

func (s OrderSide) Valid() bool {
	switch s {
	case OrderSideBuy, OrderSideSell:
		return true
	}
	return false
}

type OrderType string

const (
	OrderTypeMarket          OrderType = "market"
	OrderTypeLimit           OrderType = "limit"
	OrderTypeStop            OrderType = "stop"
	OrderTypeMarketIfTouched OrderType = "marketIfTouched"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStop, OrderTypeMarketIfTouched:
		return true
	}
	return false
}

type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC" // good till cancelled
	TimeInForceGTD TimeInForce = "GTD" // good till date
	TimeInForceGFD TimeInForce = "GFD" // good for day
	TimeInForceFOK TimeInForce = "FOK"
	TimeInForceIOC TimeInForce = "IOC"
)

func (t TimeInForce) Valid() bool {
	switch t {
	case TimeInForceGTC, TimeInForceGTD, TimeInForceGFD, TimeInForceFOK, TimeInForceIOC:
		return true
	}
	return false
}

type PositionFill string

const (
	PositionFillOpenOnly    PositionFill = "OPEN_ONLY"
	PositionFillReduceFirst PositionFill = "REDUCE_FIRST"
	PositionFillReduceOnly  PositionFill = "REDUCE_ONLY"
	PositionFillDefault     PositionFill = "DEFAULT"
)

func (p PositionFill) Valid() bool {
	switch p {
	case PositionFillOpenOnly, PositionFillReduceFirst, PositionFillReduceOnly, PositionFillDefault:
		return true
	}
	return false
}

// ClientExtensions are free-form labels, they never affect execution.
type ClientExtensions struct {
	ID      string
	Tag     string
	Comment string
}

type TakeProfitDetails struct {
	Price       decimal.Decimal
	TimeInForce TimeInForce
	GtdTime     time.Time
}

type StopLossDetails struct {
	Price            decimal.Decimal
	TimeInForce      TimeInForce
	ClientExtensions *ClientExtensions
}

type TrailingStopLossDetails struct {
	Distance         decimal.Decimal
	TimeInForce      TimeInForce
	ClientExtensions *ClientExtensions
}

// Order is a pending trade instruction.
//
// Price and PriceBound are unset when Valid is false. Zero timestamps are
// unset, nil attachments are absent.
type Order struct {
	// trade parameters
	Instrument string
	Units      decimal.Decimal
	Side       OrderSide
	Type       OrderType
	Price      decimal.NullDecimal
	PriceBound decimal.NullDecimal

	LastModified time.Time

	// duration
	TimeInForce  TimeInForce
	GtdTime      time.Time
	PositionFill PositionFill

	// annotations
	ClientExtensions      *ClientExtensions
	TradeClientExtensions *ClientExtensions

	// attached on fill
	TakeProfitOnFill       *TakeProfitDetails
	StopLossOnFill         *StopLossDetails
	TrailingStopLossOnFill *TrailingStopLossDetails
}

func NewOrder(instrument string, units decimal.Decimal, side OrderSide, orderType OrderType, price decimal.NullDecimal) *Order {
	return &Order{
		Instrument: instrument,
		Units:      units,
		Side:       side,
		Type:       orderType,
		Price:      price,
	}
}

func (o *Order) SetPrice(price decimal.Decimal) {
	o.Price = decimal.NewNullDecimal(price)
}

func (o *Order) SetPriceBound(priceBound decimal.Decimal) {
	o.PriceBound = decimal.NewNullDecimal(priceBound)
}

func (o *Order) IsMarket() bool {
	return o.Type == OrderTypeMarket
}

// Validate checks well-formedness of the order's own fields only.
func (o *Order) Validate() error {
	if !o.Side.Valid() {
		return invalidField(keySide, string(o.Side))
	}
	if !o.Type.Valid() {
		return invalidField(keyType, string(o.Type))
	}
	if o.Instrument == "" {
		return missingField(keyInstrument)
	}
	if !o.IsMarket() && !o.Price.Valid {
		return ErrPriceNotSet
	}
	if err := validateDuration(keyTimeInForce, o.TimeInForce, o.GtdTime); err != nil {
		return err
	}
	if o.PositionFill != "" && !o.PositionFill.Valid() {
		return invalidField(keyPositionFill, string(o.PositionFill))
	}
	if tp := o.TakeProfitOnFill; tp != nil {
		if err := validateDuration(keyTakeProfitOnFill+"."+keyTimeInForce, tp.TimeInForce, tp.GtdTime); err != nil {
			return err
		}
	}
	if sl := o.StopLossOnFill; sl != nil && sl.TimeInForce != "" && !sl.TimeInForce.Valid() {
		return invalidField(keyStopLossOnFill+"."+keyTimeInForce, string(sl.TimeInForce))
	}
	if ts := o.TrailingStopLossOnFill; ts != nil && ts.TimeInForce != "" && !ts.TimeInForce.Valid() {
		return invalidField(keyTrailingStopLossOnFill+"."+keyTimeInForce, string(ts.TimeInForce))
	}
	return nil
}

func validateDuration(field string, tif TimeInForce, gtdTime time.Time) error {
	if tif == "" {
		return nil
	}
	if !tif.Valid() {
		return invalidField(field, string(tif))
	}
	if tif == TimeInForceGTD && gtdTime.IsZero() {
		return ErrGtdTimeNotSet
	}
	return nil
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	c := *o
	c.ClientExtensions = cloneExtensions(o.ClientExtensions)
	c.TradeClientExtensions = cloneExtensions(o.TradeClientExtensions)
	if o.TakeProfitOnFill != nil {
		tp := *o.TakeProfitOnFill
		c.TakeProfitOnFill = &tp
	}
	if o.StopLossOnFill != nil {
		sl := *o.StopLossOnFill
		sl.ClientExtensions = cloneExtensions(sl.ClientExtensions)
		c.StopLossOnFill = &sl
	}
	if o.TrailingStopLossOnFill != nil {
		ts := *o.TrailingStopLossOnFill
		ts.ClientExtensions = cloneExtensions(ts.ClientExtensions)
		c.TrailingStopLossOnFill = &ts
	}
	return &c
}

func cloneExtensions(e *ClientExtensions) *ClientExtensions {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}
