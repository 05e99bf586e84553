package book

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

type BookManagerConfig struct {
	RejectStaleQuotes bool `yaml:"reject_stale_quotes"`
}

// BookManager holds pending orders of every instrument and evaluates them
// against incoming quotes.
type BookManager struct {
	books sync.Map // instrument -> *instrumentBook

	mu      sync.RWMutex
	orderIx map[string]string // orderID -> instrument

	cbMu      sync.RWMutex
	callbacks []func([]*Trigger)

	cfg *BookManagerConfig
}

func NewBookManager(cfg *BookManagerConfig) *BookManager {
	if cfg == nil {
		cfg = &BookManagerConfig{}
	}
	return &BookManager{
		orderIx: make(map[string]string),
		cfg:     cfg,
	}
}

// CheckOrder validates order and resolves its id the way AddOrder would,
// without storing anything. An empty id gets a generated one.
func (s *BookManager) CheckOrder(id string, order *model.Order) (string, error) {
	if order == nil {
		return "", errNilOrder
	}
	if err := order.Validate(); err != nil {
		return "", fmt.Errorf("invalid order: %w", err)
	}
	if id == "" {
		return uuid.NewString(), nil
	}

	s.mu.RLock()
	_, ok := s.orderIx[id]
	s.mu.RUnlock()
	if ok {
		return "", errDuplicateOrder
	}
	return id, nil
}

// AddOrder stores a copy of order as pending. An empty id gets a generated one.
func (s *BookManager) AddOrder(id string, order *model.Order) (string, error) {
	id, err := s.CheckOrder(id, order)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if _, ok := s.orderIx[id]; ok {
		s.mu.Unlock()
		return "", errDuplicateOrder
	}
	s.orderIx[id] = order.Instrument
	s.mu.Unlock()

	s.getOrCreateBook(order.Instrument).add(&PendingOrder{
		ID:      id,
		Order:   order.Clone(),
		AddedAt: time.Now(),
	})

	zap.S().Debugw("order pending", "order_id", id, "instrument", order.Instrument, "type", order.Type)
	return id, nil
}

func (s *BookManager) CancelOrder(id string) error {
	s.mu.Lock()
	instrument, ok := s.orderIx[id]
	if ok {
		delete(s.orderIx, id)
	}
	s.mu.Unlock()
	if !ok {
		return errOrderNotFound
	}

	if !s.getOrCreateBook(instrument).remove(id) {
		return errOrderNotFound
	}
	return nil
}

// GetOrder returns a copy of a pending order.
func (s *BookManager) GetOrder(id string) (*model.Order, error) {
	s.mu.RLock()
	instrument, ok := s.orderIx[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errOrderNotFound
	}

	for _, p := range s.getOrCreateBook(instrument).snapshot() {
		if p.ID == id {
			return p.Order, nil
		}
	}
	return nil, errOrderNotFound
}

func (s *BookManager) PendingOrders(instrument string) []*PendingOrder {
	return s.getOrCreateBook(instrument).snapshot()
}

func (s *BookManager) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.orderIx)
}

// OnQuote evaluates the pending orders of every instrument in q. Triggered
// orders leave the book and are passed to the registered callbacks.
func (s *BookManager) OnQuote(q *model.Quote) ([]*Trigger, error) {
	if q == nil {
		return nil, model.ErrNilQuote
	}

	var results []*Trigger
	var evalErr error
	for _, instrument := range q.Instruments() {
		book, ok := s.loadBook(instrument)
		if !ok {
			continue
		}

		triggers, err := book.evaluate(q, s.cfg.RejectStaleQuotes)
		if err != nil {
			evalErr = fmt.Errorf("%s: %w", instrument, err)
			break
		}
		results = append(results, triggers...)
	}

	if len(results) == 0 {
		return nil, evalErr
	}

	s.mu.Lock()
	for _, r := range results {
		delete(s.orderIx, r.OrderID)
	}
	s.mu.Unlock()

	s.cbMu.RLock()
	callbacks := s.callbacks
	s.cbMu.RUnlock()
	for _, cb := range callbacks {
		cb(results)
	}

	return results, evalErr
}

func (s *BookManager) RegisterTriggerCallback(cb func([]*Trigger)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()

	s.callbacks = append(s.callbacks, cb)
}

func (s *BookManager) loadBook(instrument string) (*instrumentBook, bool) {
	val, ok := s.books.Load(instrument)
	if !ok {
		return nil, false
	}
	return val.(*instrumentBook), true
}

func (s *BookManager) getOrCreateBook(instrument string) *instrumentBook {
	if book, ok := s.loadBook(instrument); ok {
		return book
	}

	actual, _ := s.books.LoadOrStore(instrument, newInstrumentBook(instrument))
	return actual.(*instrumentBook)
}
