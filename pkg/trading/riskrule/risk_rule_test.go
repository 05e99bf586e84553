package riskrule

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

func order(instrument, price string) *model.Order {
	o := model.NewOrder(instrument, decimal.NewFromInt(1), model.OrderSideBuy, model.OrderTypeLimit, decimal.NullDecimal{})
	if price != "" {
		o.SetPrice(decimal.RequireFromString(price))
	}
	return o
}

func TestFromConfig(t *testing.T) {
	var cfg Config
	err := yaml.Unmarshal([]byte(`
price_bands:
  EURJPY:
    floor: "90"
    ceil: "150"
tick_sizes:
  EURJPY: "0.005"
`), &cfg)
	if err != nil {
		t.Fatal(err)
	}
	rules, err := FromConfig(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}

	tests := []struct {
		name  string
		order *model.Order
		want  error
	}{
		{"inside band on tick", order("EURJPY", "120.005"), nil},
		{"below floor", order("EURJPY", "89.995"), ErrPriceBand},
		{"above ceil", order("EURJPY", "150.005"), ErrPriceBand},
		{"off tick", order("EURJPY", "120.003"), ErrTickSize},
		{"no price", order("EURJPY", ""), nil},
		{"other instrument", order("USDJPY", "1.001"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckAll(rules, tt.order)
			if tt.want == nil && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNewTickSizeRuleRejectsBadSteps(t *testing.T) {
	if _, err := NewTickSizeRule(map[string]string{"EURJPY": "abc"}); err == nil {
		t.Errorf("expected parse error")
	}
	if _, err := NewTickSizeRule(map[string]string{"EURJPY": "0"}); err == nil {
		t.Errorf("expected error for zero step")
	}
	if rules, err := FromConfig(nil); err != nil || rules != nil {
		t.Errorf("expected no rules for nil config, got %v %v", rules, err)
	}
}
