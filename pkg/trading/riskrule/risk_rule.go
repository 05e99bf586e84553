package riskrule

import (
	"errors"

	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

var (
	ErrPriceBand = errors.New("price outside allowed band")
	ErrTickSize  = errors.New("price is not a multiple of the tick size")
)

// RiskRule vets an order before it is accepted as pending.
type RiskRule interface {
	Check(order *model.Order) error
}

type Config struct {
	PriceBands map[string]PriceBand `yaml:"price_bands"`
	TickSizes  map[string]string    `yaml:"tick_sizes"`
}

// FromConfig builds the rules named in cfg. A nil cfg yields no rules.
func FromConfig(cfg *Config) ([]RiskRule, error) {
	if cfg == nil {
		return nil, nil
	}
	var rules []RiskRule
	if len(cfg.PriceBands) > 0 {
		rules = append(rules, NewPriceBandRule(cfg.PriceBands))
	}
	if len(cfg.TickSizes) > 0 {
		r, err := NewTickSizeRule(cfg.TickSizes)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func CheckAll(rules []RiskRule, order *model.Order) error {
	for _, r := range rules {
		if err := r.Check(order); err != nil {
			return err
		}
	}
	return nil
}
