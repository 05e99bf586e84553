package repo

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ToyotakaTanaka/jiji2/pkg/trading/book"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusTriggered OrderStatus = "triggered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderRecord is one row of the orders table. Payload holds the JSON
// representation of the order, the other columns are copies for querying.
type OrderRecord struct {
	ID         string      `gorm:"column:id;primaryKey"`
	Instrument string      `gorm:"column:instrument"`
	Side       string      `gorm:"column:side"`
	Type       string      `gorm:"column:type"`
	Status     OrderStatus `gorm:"column:status"`
	Payload    string      `gorm:"column:payload"`
	CreatedAt  time.Time   `gorm:"column:created_at"`
	UpdatedAt  time.Time   `gorm:"column:updated_at"`
}

func (OrderRecord) TableName() string {
	return "orders"
}

func NewOrderRecord(id string, order *model.Order, status OrderStatus) (*OrderRecord, error) {
	payload, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}
	return &OrderRecord{
		ID:         id,
		Instrument: order.Instrument,
		Side:       string(order.Side),
		Type:       string(order.Type),
		Status:     status,
		Payload:    string(payload),
	}, nil
}

func (r *OrderRecord) ToOrder() (*model.Order, error) {
	order := &model.Order{}
	if err := json.Unmarshal([]byte(r.Payload), order); err != nil {
		return nil, err
	}
	return order, nil
}

type TriggerEventRecord struct {
	EventID     string          `gorm:"column:event_id;primaryKey"`
	OrderID     string          `gorm:"column:order_id"`
	Instrument  string          `gorm:"column:instrument"`
	Bid         decimal.Decimal `gorm:"column:bid;type:numeric"`
	Ask         decimal.Decimal `gorm:"column:ask;type:numeric"`
	ObservedAt  time.Time       `gorm:"column:observed_at"`
	TriggeredAt time.Time       `gorm:"column:triggered_at"`
}

func (TriggerEventRecord) TableName() string {
	return "trigger_events"
}

func NewTriggerEventRecord(t *book.Trigger) (*TriggerEventRecord, error) {
	v, err := t.Quote.Value(t.Order.Instrument)
	if err != nil && !t.Order.IsMarket() {
		return nil, err
	}
	return &TriggerEventRecord{
		EventID:     t.EventID,
		OrderID:     t.OrderID,
		Instrument:  t.Order.Instrument,
		Bid:         v.Bid,
		Ask:         v.Ask,
		ObservedAt:  t.Quote.ObservedAt(),
		TriggeredAt: t.TriggeredAt,
	}, nil
}
