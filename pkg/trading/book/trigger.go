package book

import (
	"fmt"
	"time"

	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

type PendingOrder struct {
	ID      string
	Order   *model.Order
	AddedAt time.Time
}

// Trigger is emitted once for an order when a quote first satisfies it.
type Trigger struct {
	EventID     string
	OrderID     string
	Order       *model.Order
	Quote       *model.Quote
	TriggeredAt time.Time
}

func newTrigger(p *PendingOrder, q *model.Quote) *Trigger {
	return &Trigger{
		EventID:     NewEventID(p.ID, q.ObservedAt()),
		OrderID:     p.ID,
		Order:       p.Order,
		Quote:       q,
		TriggeredAt: q.ObservedAt(),
	}
}

func NewEventID(orderID string, ts time.Time) string {
	return fmt.Sprintf("%s-triggered-%d", orderID, ts.UnixNano())
}
