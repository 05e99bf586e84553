package repo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ToyotakaTanaka/jiji2/pkg/trading/book"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

func TestOrderRecordRoundTrip(t *testing.T) {
	order := model.NewOrder("EURJPY", decimal.NewFromInt(10_000), model.OrderSideBuy, model.OrderTypeStop,
		decimal.NewNullDecimal(decimal.RequireFromString("123.45")))
	order.TimeInForce = model.TimeInForceGTD
	order.GtdTime = time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	order.StopLossOnFill = &model.StopLossDetails{
		Price:            decimal.RequireFromString("120"),
		TimeInForce:      model.TimeInForceGTC,
		ClientExtensions: &model.ClientExtensions{ID: "sl", Tag: "t"},
	}

	record, err := NewOrderRecord("O1", order, OrderStatusPending)
	if err != nil {
		t.Fatal(err)
	}
	if record.Instrument != "EURJPY" || record.Side != "buy" || record.Type != "stop" || record.Status != OrderStatusPending {
		t.Errorf("unexpected record columns %+v", record)
	}

	decoded, err := record.ToOrder()
	if err != nil {
		t.Fatal(err)
	}
	if !decoded.Equal(order) {
		t.Errorf("expected equal order, payload %s", record.Payload)
	}
}

func TestOrderRecordBadPayload(t *testing.T) {
	record := &OrderRecord{ID: "O1", Payload: `{"instrument":"EURJPY","side":"buy","type":"limit","price":"x"}`}
	if _, err := record.ToOrder(); err == nil {
		t.Errorf("expected error for non-numeric price")
	}
}

func TestNewTriggerEventRecord(t *testing.T) {
	observedAt := time.Date(2015, 5, 1, 0, 0, 0, 0, time.UTC)
	quote := model.NewQuote(map[string]model.PriceValue{
		"EURJPY": model.NewPriceValue(decimal.NewFromInt(100), decimal.RequireFromString("100.03")),
	}, observedAt)
	order := model.NewOrder("EURJPY", decimal.NewFromInt(1), model.OrderSideSell, model.OrderTypeLimit,
		decimal.NewNullDecimal(decimal.NewFromInt(100)))

	record, err := NewTriggerEventRecord(&book.Trigger{
		EventID:     "E1",
		OrderID:     "O1",
		Order:       order,
		Quote:       quote,
		TriggeredAt: observedAt,
	})
	if err != nil {
		t.Fatal(err)
	}
	if record.OrderID != "O1" || !record.Bid.Equal(decimal.NewFromInt(100)) || !record.Ask.Equal(decimal.RequireFromString("100.03")) {
		t.Errorf("unexpected record %+v", record)
	}
	if !record.ObservedAt.Equal(observedAt) {
		t.Errorf("expected observed at %v, got %v", observedAt, record.ObservedAt)
	}
}
