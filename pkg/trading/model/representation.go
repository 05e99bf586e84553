package model

import (
	"encoding/json"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Representation is the keyed form of an Order used for storage and transfer.
type Representation map[string]interface{}

const (
	keyInstrument             = "instrument"
	keyUnits                  = "units"
	keySide                   = "side"
	keyType                   = "type"
	keyPrice                  = "price"
	keyPriceBound             = "price_bound"
	keyLastModified           = "last_modified"
	keyTimeInForce            = "time_in_force"
	keyGtdTime                = "gtd_time"
	keyPositionFill           = "position_fill"
	keyClientExtensions       = "client_extensions"
	keyTradeClientExtensions  = "trade_client_extensions"
	keyTakeProfitOnFill       = "take_profit_on_fill"
	keyStopLossOnFill         = "stop_loss_on_fill"
	keyTrailingStopLossOnFill = "trailing_stop_loss_on_fill"
	keyDistance               = "distance"
	keyID                     = "id"
	keyTag                    = "tag"
	keyComment                = "comment"
)

// ToRepresentation emits every set field of the order. Unset optional
// values and absent groups are omitted.
func (o *Order) ToRepresentation() Representation {
	r := Representation{
		keyInstrument: o.Instrument,
		keyUnits:      o.Units,
		keySide:       string(o.Side),
		keyType:       string(o.Type),
	}
	if o.Price.Valid {
		r[keyPrice] = o.Price.Decimal
	}
	if o.PriceBound.Valid {
		r[keyPriceBound] = o.PriceBound.Decimal
	}
	putTime(r, keyLastModified, o.LastModified)
	putString(r, keyTimeInForce, string(o.TimeInForce))
	putTime(r, keyGtdTime, o.GtdTime)
	putString(r, keyPositionFill, string(o.PositionFill))

	if o.ClientExtensions != nil {
		r[keyClientExtensions] = extensionsRepresentation(o.ClientExtensions)
	}
	if o.TradeClientExtensions != nil {
		r[keyTradeClientExtensions] = extensionsRepresentation(o.TradeClientExtensions)
	}
	if tp := o.TakeProfitOnFill; tp != nil {
		m := Representation{keyPrice: tp.Price}
		putString(m, keyTimeInForce, string(tp.TimeInForce))
		putTime(m, keyGtdTime, tp.GtdTime)
		r[keyTakeProfitOnFill] = m
	}
	if sl := o.StopLossOnFill; sl != nil {
		m := Representation{keyPrice: sl.Price}
		putString(m, keyTimeInForce, string(sl.TimeInForce))
		if sl.ClientExtensions != nil {
			m[keyClientExtensions] = extensionsRepresentation(sl.ClientExtensions)
		}
		r[keyStopLossOnFill] = m
	}
	if ts := o.TrailingStopLossOnFill; ts != nil {
		m := Representation{keyDistance: ts.Distance}
		putString(m, keyTimeInForce, string(ts.TimeInForce))
		if ts.ClientExtensions != nil {
			m[keyClientExtensions] = extensionsRepresentation(ts.ClientExtensions)
		}
		r[keyTrailingStopLossOnFill] = m
	}
	return r
}

func extensionsRepresentation(e *ClientExtensions) Representation {
	return Representation{
		keyID:      e.ID,
		keyTag:     e.Tag,
		keyComment: e.Comment,
	}
}

func putString(r Representation, key, v string) {
	if v != "" {
		r[key] = v
	}
}

func putTime(r Representation, key string, t time.Time) {
	if !t.IsZero() {
		r[key] = t
	}
}

// FromRepresentation replaces every field of the order with the content of
// data. Keys missing from data leave the field unset. Unknown keys are
// ignored. On error the order is left untouched.
func (o *Order) FromRepresentation(data Representation) error {
	decoded, err := OrderFromRepresentation(data)
	if err != nil {
		return err
	}
	*o = *decoded
	return nil
}

// OrderFromRepresentation builds a new order from data.
func OrderFromRepresentation(data Representation) (*Order, error) {
	o := &Order{}
	var err error

	if o.Instrument, err = requiredString(data, "", keyInstrument); err != nil {
		return nil, err
	}
	side, err := requiredString(data, "", keySide)
	if err != nil {
		return nil, err
	}
	if o.Side = OrderSide(side); !o.Side.Valid() {
		return nil, invalidField(keySide, side)
	}
	orderType, err := requiredString(data, "", keyType)
	if err != nil {
		return nil, err
	}
	if o.Type = OrderType(orderType); !o.Type.Valid() {
		return nil, invalidField(keyType, orderType)
	}

	if v, ok := lookup(data, keyUnits); ok {
		if o.Units, err = toDecimal(keyUnits, v); err != nil {
			return nil, err
		}
	}
	if o.Price, err = optionalDecimal(data, "", keyPrice); err != nil {
		return nil, err
	}
	if o.PriceBound, err = optionalDecimal(data, "", keyPriceBound); err != nil {
		return nil, err
	}
	if o.LastModified, err = optionalTime(data, "", keyLastModified); err != nil {
		return nil, err
	}
	if o.TimeInForce, err = optionalTimeInForce(data, ""); err != nil {
		return nil, err
	}
	if o.GtdTime, err = optionalTime(data, "", keyGtdTime); err != nil {
		return nil, err
	}
	positionFill, err := optionalString(data, "", keyPositionFill)
	if err != nil {
		return nil, err
	}
	if o.PositionFill = PositionFill(positionFill); positionFill != "" && !o.PositionFill.Valid() {
		return nil, invalidField(keyPositionFill, positionFill)
	}

	if o.ClientExtensions, err = optionalExtensions(data, "", keyClientExtensions); err != nil {
		return nil, err
	}
	if o.TradeClientExtensions, err = optionalExtensions(data, "", keyTradeClientExtensions); err != nil {
		return nil, err
	}
	if o.TakeProfitOnFill, err = takeProfitFrom(data); err != nil {
		return nil, err
	}
	if o.StopLossOnFill, err = stopLossFrom(data); err != nil {
		return nil, err
	}
	if o.TrailingStopLossOnFill, err = trailingStopLossFrom(data); err != nil {
		return nil, err
	}
	return o, nil
}

func takeProfitFrom(data Representation) (*TakeProfitDetails, error) {
	m, ok, err := nested(data, "", keyTakeProfitOnFill)
	if err != nil || !ok {
		return nil, err
	}
	path := keyTakeProfitOnFill + "."
	tp := &TakeProfitDetails{}
	if tp.Price, err = requiredDecimal(m, path, keyPrice); err != nil {
		return nil, err
	}
	if tp.TimeInForce, err = optionalTimeInForce(m, path); err != nil {
		return nil, err
	}
	if tp.GtdTime, err = optionalTime(m, path, keyGtdTime); err != nil {
		return nil, err
	}
	return tp, nil
}

func stopLossFrom(data Representation) (*StopLossDetails, error) {
	m, ok, err := nested(data, "", keyStopLossOnFill)
	if err != nil || !ok {
		return nil, err
	}
	path := keyStopLossOnFill + "."
	sl := &StopLossDetails{}
	if sl.Price, err = requiredDecimal(m, path, keyPrice); err != nil {
		return nil, err
	}
	if sl.TimeInForce, err = optionalTimeInForce(m, path); err != nil {
		return nil, err
	}
	if sl.ClientExtensions, err = optionalExtensions(m, path, keyClientExtensions); err != nil {
		return nil, err
	}
	return sl, nil
}

func trailingStopLossFrom(data Representation) (*TrailingStopLossDetails, error) {
	m, ok, err := nested(data, "", keyTrailingStopLossOnFill)
	if err != nil || !ok {
		return nil, err
	}
	path := keyTrailingStopLossOnFill + "."
	ts := &TrailingStopLossDetails{}
	if ts.Distance, err = requiredDecimal(m, path, keyDistance); err != nil {
		return nil, err
	}
	if ts.TimeInForce, err = optionalTimeInForce(m, path); err != nil {
		return nil, err
	}
	if ts.ClientExtensions, err = optionalExtensions(m, path, keyClientExtensions); err != nil {
		return nil, err
	}
	return ts, nil
}

// lookup treats a nil value the same as a missing key.
func lookup(data Representation, key string) (interface{}, bool) {
	v, ok := data[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func nested(data Representation, path, key string) (Representation, bool, error) {
	v, ok := lookup(data, key)
	if !ok {
		return nil, false, nil
	}
	switch m := v.(type) {
	case Representation:
		return m, true, nil
	case map[string]interface{}:
		return Representation(m), true, nil
	}
	return nil, false, invalidField(path+key, v)
}

func optionalString(data Representation, path, key string) (string, error) {
	v, ok := lookup(data, key)
	if !ok {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", invalidField(path+key, v)
	}
	return s, nil
}

func requiredString(data Representation, path, key string) (string, error) {
	s, err := optionalString(data, path, key)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", missingField(path + key)
	}
	return s, nil
}

func optionalTimeInForce(data Representation, path string) (TimeInForce, error) {
	s, err := optionalString(data, path, keyTimeInForce)
	if err != nil {
		return "", err
	}
	tif := TimeInForce(s)
	if s != "" && !tif.Valid() {
		return "", invalidField(path+keyTimeInForce, s)
	}
	return tif, nil
}

func optionalExtensions(data Representation, path, key string) (*ClientExtensions, error) {
	m, ok, err := nested(data, path, key)
	if err != nil || !ok {
		return nil, err
	}
	path = path + key + "."
	e := &ClientExtensions{}
	if e.ID, err = optionalString(m, path, keyID); err != nil {
		return nil, err
	}
	if e.Tag, err = optionalString(m, path, keyTag); err != nil {
		return nil, err
	}
	if e.Comment, err = optionalString(m, path, keyComment); err != nil {
		return nil, err
	}
	return e, nil
}

func optionalDecimal(data Representation, path, key string) (decimal.NullDecimal, error) {
	v, ok := lookup(data, key)
	if !ok {
		return decimal.NullDecimal{}, nil
	}
	d, err := toDecimal(path+key, v)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func requiredDecimal(data Representation, path, key string) (decimal.Decimal, error) {
	v, ok := lookup(data, key)
	if !ok {
		return decimal.Zero, missingField(path + key)
	}
	return toDecimal(path+key, v)
}

// toDecimal accepts the numeric shapes produced by ToRepresentation and by
// JSON decoding. Booleans, non-numeric strings and other types are rejected.
func toDecimal(field string, v interface{}) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case *decimal.Decimal:
		if x != nil {
			return *x, nil
		}
	case string:
		d, err := decimal.NewFromString(x)
		if err == nil {
			return d, nil
		}
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err == nil {
			return d, nil
		}
	case float64:
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			return decimal.NewFromFloat(x), nil
		}
	case float32:
		f := float64(x)
		if !math.IsNaN(f) && !math.IsInf(f, 0) {
			return decimal.NewFromFloat32(x), nil
		}
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int32:
		return decimal.NewFromInt32(x), nil
	case int64:
		return decimal.NewFromInt(x), nil
	}
	return decimal.Zero, invalidField(field, v)
}

func optionalTime(data Representation, path, key string) (time.Time, error) {
	v, ok := lookup(data, key)
	if !ok {
		return time.Time{}, nil
	}
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case *time.Time:
		if x != nil {
			return *x, nil
		}
	case string:
		t, err := time.Parse(time.RFC3339Nano, x)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalidField(path+key, v)
}
