package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ToyotakaTanaka/jiji2/pkg/logging"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/book"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/event"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/feed"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/repo"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/riskrule"
)

type SnapshotStore interface {
	SaveOrder(id string, order *model.Order) error
	DeleteOrder(id string) error
	LoadOrders() (map[string]*model.Order, error)
}

type OrderCache interface {
	Set(ctx context.Context, id string, order *model.Order) error
	Get(ctx context.Context, id string) (*model.Order, error)
	Delete(ctx context.Context, id string) error
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, topic string, key string, v any, headers map[string]string) error
}

// Dependencies left nil are skipped.
type Config struct {
	Snapshot  SnapshotStore
	Repo      repo.IRepo
	Cache     OrderCache
	Publisher EventPublisher
	RiskRules []riskrule.RiskRule
}

// Engine keeps the pending book in sync with the snapshot store, the
// database, the cache and the event stream.
type Engine struct {
	book      *book.BookManager
	snapshot  SnapshotStore
	repo      repo.IRepo
	cache     OrderCache
	publisher EventPublisher
	rules     []riskrule.RiskRule

	mu         sync.Mutex
	submitting map[string]struct{}
}

func NewEngine(bm *book.BookManager, cfg Config) *Engine {
	return &Engine{
		book:      bm,
		snapshot:  cfg.Snapshot,
		repo:      cfg.Repo,
		cache:     cfg.Cache,
		publisher: cfg.Publisher,
		rules:     cfg.RiskRules,

		submitting: make(map[string]struct{}),
	}
}

// Restore reloads pending orders from the snapshot store, falling back to the
// database when the snapshot is empty. It returns the number of orders loaded.
func (e *Engine) Restore(ctx context.Context) (int, error) {
	var orders map[string]*model.Order
	var err error
	if e.snapshot != nil {
		if orders, err = e.snapshot.LoadOrders(); err != nil {
			return 0, fmt.Errorf("load snapshot: %w", err)
		}
	}
	if len(orders) == 0 && e.repo != nil {
		if orders, err = e.repo.Order().ListPending(ctx, ""); err != nil {
			return 0, fmt.Errorf("load pending orders: %w", err)
		}
	}

	n := 0
	for id, order := range orders {
		if _, err := e.book.AddOrder(id, order); err != nil {
			zap.S().Warnw("skip order on restore", "order_id", id, "err", err)
			continue
		}
		n++
	}
	return n, nil
}

// SubmitOrder persists a new order and then registers it as pending, so a
// quote can only trigger orders whose records already exist.
func (e *Engine) SubmitOrder(ctx context.Context, id string, order *model.Order) (string, error) {
	logger, ctx := logging.GetLogger(ctx)

	id, err := e.book.CheckOrder(id, order)
	if err != nil {
		return "", err
	}
	if err := riskrule.CheckAll(e.rules, order); err != nil {
		logger.Info(ctx, "order rejected", zap.String("order_id", id), zap.Error(err))
		return "", err
	}

	if err := e.claim(id); err != nil {
		return "", err
	}
	defer e.release(id)

	if err := e.persist(ctx, id, order); err != nil {
		logger.Error(ctx, "persist order fail", zap.String("order_id", id), zap.Error(err))
		return "", err
	}
	if e.cache != nil {
		if err := e.cache.Set(ctx, id, order); err != nil {
			logger.Warn(ctx, "cache order fail", zap.String("order_id", id), zap.Error(err))
		}
	}

	if _, err := e.book.AddOrder(id, order); err != nil {
		e.unpersist(ctx, id)
		e.dropCache(ctx, id)
		return "", err
	}

	logger.Info(ctx, "order submitted",
		zap.String("order_id", id),
		zap.String("instrument", order.Instrument),
		zap.String("side", string(order.Side)),
		zap.String("type", string(order.Type)),
	)
	return id, nil
}

// claim reserves id while its records are written.
func (e *Engine) claim(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.submitting[id]; ok {
		return fmt.Errorf("order %s: %w", id, ErrDuplicateOrder)
	}
	if _, err := e.book.GetOrder(id); err == nil {
		return fmt.Errorf("order %s: %w", id, ErrDuplicateOrder)
	}
	e.submitting[id] = struct{}{}
	return nil
}

func (e *Engine) release(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.submitting, id)
}

func (e *Engine) persist(ctx context.Context, id string, order *model.Order) error {
	if e.repo != nil {
		if err := e.repo.Order().Save(ctx, id, order); err != nil {
			return err
		}
	}
	if e.snapshot != nil {
		if err := e.snapshot.SaveOrder(id, order); err != nil {
			if e.repo != nil {
				if delErr := e.repo.Order().Delete(ctx, id); delErr != nil {
					zap.S().Warnw("delete order record fail", "order_id", id, "err", delErr)
				}
			}
			return err
		}
	}
	return nil
}

func (e *Engine) unpersist(ctx context.Context, id string) {
	if e.snapshot != nil {
		if err := e.snapshot.DeleteOrder(id); err != nil {
			zap.S().Warnw("delete snapshot fail", "order_id", id, "err", err)
		}
	}
	if e.repo != nil {
		if err := e.repo.Order().Delete(ctx, id); err != nil {
			zap.S().Warnw("delete order record fail", "order_id", id, "err", err)
		}
	}
}

// AddOrder lets the engine receive orders from the FIX intake.
func (e *Engine) AddOrder(id string, order *model.Order) (string, error) {
	return e.SubmitOrder(logging.WithRequestID(context.Background(), id), id, order)
}

func (e *Engine) CancelOrder(ctx context.Context, id string) error {
	logger, ctx := logging.GetLogger(ctx)

	if err := e.book.CancelOrder(id); err != nil {
		return err
	}
	if e.snapshot != nil {
		if err := e.snapshot.DeleteOrder(id); err != nil {
			logger.Warn(ctx, "delete snapshot fail", zap.String("order_id", id), zap.Error(err))
		}
	}
	if e.repo != nil {
		if err := e.repo.Order().UpdateStatus(ctx, id, repo.OrderStatusCancelled); err != nil {
			return err
		}
	}
	e.dropCache(ctx, id)

	logger.Info(ctx, "order cancelled", zap.String("order_id", id))
	return nil
}

// GetOrder looks up a pending order, then the cache, then the database.
func (e *Engine) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	order, err := e.book.GetOrder(id)
	if err == nil {
		return order, nil
	}
	if !book.IsOrderNotFound(err) {
		return nil, err
	}

	if e.cache != nil {
		if order, err := e.cache.Get(ctx, id); err == nil {
			return order, nil
		}
	}
	if e.repo != nil {
		order, err := e.repo.Order().Get(ctx, id)
		if errors.Is(err, repo.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return order, err
	}
	return nil, ErrOrderNotFound
}

// HandleQuote evaluates q against the book and records every trigger. A
// cancelled ctx stops it before the book is touched.
func (e *Engine) HandleQuote(ctx context.Context, q *model.Quote) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", feed.ErrNotEvaluated, err)
	}
	_, err := e.Evaluate(ctx, q)
	return err
}

func (e *Engine) Evaluate(ctx context.Context, q *model.Quote) ([]*book.Trigger, error) {
	logger, ctx := logging.GetLogger(ctx)

	triggers, err := e.book.OnQuote(q)
	if len(triggers) > 0 {
		if recordErr := e.recordTriggers(ctx, triggers); recordErr != nil {
			logger.Error(ctx, "record triggers fail", zap.Int("count", len(triggers)), zap.Error(recordErr))
			err = errors.Join(err, recordErr)
		}
	}
	return triggers, err
}

func (e *Engine) recordTriggers(ctx context.Context, triggers []*book.Trigger) error {
	logger, ctx := logging.GetLogger(ctx)

	var errs []error
	records := make([]*repo.TriggerEventRecord, 0, len(triggers))
	for _, t := range triggers {
		logger.Info(ctx, "order triggered",
			zap.String("order_id", t.OrderID),
			zap.String("instrument", t.Order.Instrument),
			zap.Time("triggered_at", t.TriggeredAt),
		)

		if e.snapshot != nil {
			if err := e.snapshot.DeleteOrder(t.OrderID); err != nil {
				errs = append(errs, err)
			}
		}
		if e.repo != nil {
			if err := e.repo.Order().UpdateStatus(ctx, t.OrderID, repo.OrderStatusTriggered); err != nil {
				errs = append(errs, fmt.Errorf("order %s: %w", t.OrderID, err))
			}
			record, err := repo.NewTriggerEventRecord(t)
			if err != nil {
				errs = append(errs, err)
			} else {
				records = append(records, record)
			}
		}
		e.dropCache(ctx, t.OrderID)

		if e.publisher != nil {
			msg := event.NewTriggerMessage(t)
			if err := e.publisher.PublishJSON(ctx, event.TopicOrderTriggers, t.OrderID, msg, map[string]string{
				"instrument": t.Order.Instrument,
			}); err != nil {
				errs = append(errs, fmt.Errorf("publish %s: %w", t.EventID, err))
			}
		}
	}

	if e.repo != nil && len(records) > 0 {
		if _, err := e.repo.TriggerEvent().BulkCreate(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) dropCache(ctx context.Context, id string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Delete(ctx, id); err != nil {
		zap.S().Warnw("drop cached order fail", "order_id", id, "err", err)
	}
}

func (e *Engine) PendingCount() int {
	return e.book.Len()
}
