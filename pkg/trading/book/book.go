package book

import (
	"sync"
	"time"

	"github.com/gammazero/deque"
	"go.uber.org/zap"

	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

// instrumentBook keeps the pending orders of one instrument in arrival order.
type instrumentBook struct {
	instrument string

	orders      deque.Deque[*PendingOrder]
	lastQuoteAt time.Time

	mu sync.Mutex
}

func newInstrumentBook(instrument string) *instrumentBook {
	return &instrumentBook{
		instrument: instrument,
	}
}

func (b *instrumentBook) add(p *PendingOrder) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.orders.PushBack(p)
}

func (b *instrumentBook) remove(orderID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.orders.Index(func(p *PendingOrder) bool { return p.ID == orderID })
	if i < 0 {
		return false
	}
	b.orders.Remove(i)
	return true
}

func (b *instrumentBook) snapshot() []*PendingOrder {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*PendingOrder, 0, b.orders.Len())
	for i := 0; i < b.orders.Len(); i++ {
		p := b.orders.At(i)
		out = append(out, &PendingOrder{ID: p.ID, Order: p.Order.Clone(), AddedAt: p.AddedAt})
	}
	return out
}

// evaluate pops every triggered order and keeps the rest in FIFO order.
func (b *instrumentBook) evaluate(q *model.Quote, rejectStale bool) ([]*Trigger, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if q.ObservedAt().Before(b.lastQuoteAt) {
		if rejectStale {
			return nil, errStaleQuote
		}
	} else {
		b.lastQuoteAt = q.ObservedAt()
	}

	var results []*Trigger
	n := b.orders.Len()
	for i := 0; i < n; i++ {
		p := b.orders.PopFront()

		triggered, err := p.Order.IsTriggeredBy(q)
		if err != nil {
			zap.S().Errorw("evaluate order fail",
				"order_id", p.ID,
				"instrument", b.instrument,
				"err", err,
			)
		}
		if triggered {
			results = append(results, newTrigger(p, q))
			continue
		}
		b.orders.PushBack(p)
	}

	return results, nil
}
