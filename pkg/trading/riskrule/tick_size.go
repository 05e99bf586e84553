package riskrule

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

// TickSizeRule holds the price step of each instrument; instruments without
// one are not checked.
type TickSizeRule struct {
	steps map[string]decimal.Decimal
}

func NewTickSizeRule(steps map[string]string) (*TickSizeRule, error) {
	r := &TickSizeRule{steps: make(map[string]decimal.Decimal, len(steps))}
	for instrument, s := range steps {
		step, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("tick size of %s: %w", instrument, err)
		}
		if !step.IsPositive() {
			return nil, fmt.Errorf("tick size of %s must be positive, got %s", instrument, s)
		}
		r.steps[instrument] = step
	}
	return r, nil
}

func (r *TickSizeRule) Check(order *model.Order) error {
	step, ok := r.steps[order.Instrument]
	if !ok || !order.Price.Valid {
		return nil
	}
	if !order.Price.Decimal.Mod(step).IsZero() {
		return fmt.Errorf("%w: %s step %s", ErrTickSize, order.Price.Decimal, step)
	}
	return nil
}
