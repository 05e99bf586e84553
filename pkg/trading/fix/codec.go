package fixcodec

import (
	"errors"
	"fmt"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	"github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
	"github.com/shopspring/decimal"

	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

const (
	ordTypeStop            enum.OrdType = "3"
	ordTypeMarketIfTouched enum.OrdType = "J"
)

var errUnsupportedValue = errors.New("unsupported FIX value")

// valueError names the tag whose value could not be mapped.
type valueError struct {
	tag   quickfix.Tag
	value string
}

func (e *valueError) Error() string {
	return fmt.Sprintf("%s: tag %d value %q", errUnsupportedValue, e.tag, e.value)
}

func (e *valueError) Unwrap() error {
	return errUnsupportedValue
}

// scale keeps every digit of d on the wire.
func scale(d decimal.Decimal) int32 {
	if exp := d.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

var (
	ordTypeMapping = map[model.OrderType]enum.OrdType{
		model.OrderTypeMarket:          enum.OrdType_MARKET,
		model.OrderTypeLimit:           enum.OrdType_LIMIT,
		model.OrderTypeStop:            ordTypeStop,
		model.OrderTypeMarketIfTouched: ordTypeMarketIfTouched,
	}

	sideMapping = map[model.OrderSide]enum.Side{
		model.OrderSideBuy:  enum.Side_BUY,
		model.OrderSideSell: enum.Side_SELL,
	}

	timeInForceMapping = map[model.TimeInForce]enum.TimeInForce{
		model.TimeInForceGFD: enum.TimeInForce_DAY,
		model.TimeInForceGTC: enum.TimeInForce_GOOD_TILL_CANCEL,
		model.TimeInForceIOC: enum.TimeInForce_IMMEDIATE_OR_CANCEL,
		model.TimeInForceFOK: enum.TimeInForce_FILL_OR_KILL,
		model.TimeInForceGTD: enum.TimeInForce_GOOD_TILL_DATE,
	}
)

// ToNewOrderSingle converts an order into a FIX 4.4 NewOrderSingle. Stop
// orders carry their level in StopPx, every other priced order in Price.
func ToNewOrderSingle(clOrdID string, order *model.Order, transactTime time.Time) (newordersingle.NewOrderSingle, error) {
	ordType, ok := ordTypeMapping[order.Type]
	if !ok {
		return newordersingle.NewOrderSingle{}, fmt.Errorf("%w: %q", model.ErrUnknownOrderType, order.Type)
	}
	side, ok := sideMapping[order.Side]
	if !ok {
		return newordersingle.NewOrderSingle{}, fmt.Errorf("%w: %q", model.ErrUnknownOrderSide, order.Side)
	}

	msg := newordersingle.New(
		field.NewClOrdID(clOrdID),
		field.NewSide(side),
		field.NewTransactTime(transactTime),
		field.NewOrdType(ordType),
	)
	msg.SetSymbol(order.Instrument)
	msg.SetOrderQty(order.Units, scale(order.Units))

	if order.Price.Valid && !order.IsMarket() {
		price := order.Price.Decimal
		if order.Type == model.OrderTypeStop {
			msg.SetStopPx(price, scale(price))
		} else {
			msg.SetPrice(price, scale(price))
		}
	}
	if order.TimeInForce != "" {
		tif, ok := timeInForceMapping[order.TimeInForce]
		if !ok {
			return newordersingle.NewOrderSingle{}, &valueError{tag: tag.TimeInForce, value: string(order.TimeInForce)}
		}
		msg.SetTimeInForce(tif)
	}
	if !order.GtdTime.IsZero() {
		msg.SetExpireTime(order.GtdTime)
	}
	if ext := order.ClientExtensions; ext != nil && ext.Comment != "" {
		msg.SetText(ext.Comment)
	}
	return msg, nil
}

// FromNewOrderSingle builds an order from an inbound NewOrderSingle.
func FromNewOrderSingle(msg newordersingle.NewOrderSingle) (*model.Order, error) {
	symbol, err := msg.GetSymbol()
	if err != nil {
		return nil, err
	}
	fixSide, err := msg.GetSide()
	if err != nil {
		return nil, err
	}
	fixOrdType, err := msg.GetOrdType()
	if err != nil {
		return nil, err
	}
	qty, err := msg.GetOrderQty()
	if err != nil {
		return nil, err
	}

	side, ok := reverseSide(fixSide)
	if !ok {
		return nil, &valueError{tag: tag.Side, value: string(fixSide)}
	}
	orderType, ok := reverseOrdType(fixOrdType)
	if !ok {
		return nil, &valueError{tag: tag.OrdType, value: string(fixOrdType)}
	}

	order := model.NewOrder(symbol, qty, side, orderType, decimal.NullDecimal{})
	switch orderType {
	case model.OrderTypeStop:
		if msg.HasStopPx() {
			stopPx, err := msg.GetStopPx()
			if err != nil {
				return nil, err
			}
			order.SetPrice(stopPx)
		}
	case model.OrderTypeLimit, model.OrderTypeMarketIfTouched:
		if msg.HasPrice() {
			price, err := msg.GetPrice()
			if err != nil {
				return nil, err
			}
			order.SetPrice(price)
		}
	}

	if msg.HasTimeInForce() {
		fixTif, err := msg.GetTimeInForce()
		if err != nil {
			return nil, err
		}
		tif, ok := reverseTimeInForce(fixTif)
		if !ok {
			return nil, &valueError{tag: tag.TimeInForce, value: string(fixTif)}
		}
		order.TimeInForce = tif
	}
	if msg.HasExpireTime() {
		expireTime, err := msg.GetExpireTime()
		if err != nil {
			return nil, err
		}
		order.GtdTime = expireTime
	}
	if msg.HasText() {
		text, err := msg.GetText()
		if err != nil {
			return nil, err
		}
		order.ClientExtensions = &model.ClientExtensions{Comment: text}
	}
	return order, nil
}

func reverseSide(v enum.Side) (model.OrderSide, bool) {
	for k, s := range sideMapping {
		if s == v {
			return k, true
		}
	}
	return "", false
}

func reverseOrdType(v enum.OrdType) (model.OrderType, bool) {
	for k, t := range ordTypeMapping {
		if t == v {
			return k, true
		}
	}
	return "", false
}

func reverseTimeInForce(v enum.TimeInForce) (model.TimeInForce, bool) {
	for k, t := range timeInForceMapping {
		if t == v {
			return k, true
		}
	}
	return "", false
}
