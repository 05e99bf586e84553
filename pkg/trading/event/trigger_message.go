package event

import (
	"errors"
	"time"

	"github.com/ToyotakaTanaka/jiji2/pkg/trading/book"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/repo"
)

const TopicOrderTriggers = "order.triggers"

var errIncompleteMessage = errors.New("trigger message without order or quote")

// TriggerMessage is the wire form of a trigger published to the broker.
type TriggerMessage struct {
	EventID     string       `json:"event_id"`
	OrderID     string       `json:"order_id"`
	Instrument  string       `json:"instrument"`
	Order       *model.Order `json:"order"`
	Quote       *model.Quote `json:"quote"`
	TriggeredAt time.Time    `json:"triggered_at"`
}

func NewTriggerMessage(t *book.Trigger) *TriggerMessage {
	return &TriggerMessage{
		EventID:     t.EventID,
		OrderID:     t.OrderID,
		Instrument:  t.Order.Instrument,
		Order:       t.Order,
		Quote:       t.Quote,
		TriggeredAt: t.TriggeredAt,
	}
}

func (m *TriggerMessage) Trigger() *book.Trigger {
	return &book.Trigger{
		EventID:     m.EventID,
		OrderID:     m.OrderID,
		Order:       m.Order,
		Quote:       m.Quote,
		TriggeredAt: m.TriggeredAt,
	}
}

func (m *TriggerMessage) Record() (*repo.TriggerEventRecord, error) {
	if m.Order == nil || m.Quote == nil {
		return nil, errIncompleteMessage
	}
	return repo.NewTriggerEventRecord(m.Trigger())
}
