package riskrule

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

// PriceBand bounds trigger prices. A zero bound is open.
type PriceBand struct {
	Floor decimal.Decimal `yaml:"floor"`
	Ceil  decimal.Decimal `yaml:"ceil"`
}

type PriceBandRule struct {
	bands map[string]PriceBand
}

func NewPriceBandRule(bands map[string]PriceBand) *PriceBandRule {
	return &PriceBandRule{bands: bands}
}

func (r *PriceBandRule) Check(order *model.Order) error {
	band, ok := r.bands[order.Instrument]
	if !ok || !order.Price.Valid {
		return nil
	}
	price := order.Price.Decimal
	if !band.Floor.IsZero() && price.LessThan(band.Floor) {
		return fmt.Errorf("%w: %s < %s", ErrPriceBand, price, band.Floor)
	}
	if !band.Ceil.IsZero() && price.GreaterThan(band.Ceil) {
		return fmt.Errorf("%w: %s > %s", ErrPriceBand, price, band.Ceil)
	}
	return nil
}
