package feed

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/ToyotakaTanaka/jiji2/pkg/trading/book"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

var errMissingObservedAt = errors.New("quote has no observation time")

// ErrNotEvaluated marks handler failures that happened before the quote
// reached the book. Only those quotes are redelivered.
var ErrNotEvaluated = errors.New("quote not evaluated")

const (
	StreamName     = "QUOTES"
	SubjectPattern = "QUOTES.*"
)

type NatsConfig struct {
	URL       string `yaml:"url"`
	Subject   string `yaml:"subject"`
	Durable   string `yaml:"durable"`
	FetchSize int    `yaml:"fetch_size"`
}

// QuoteHandler consumes decoded quotes in arrival order.
type QuoteHandler interface {
	HandleQuote(ctx context.Context, q *model.Quote) error
}

type QuoteSubscriber struct {
	js      nats.JetStreamContext
	cfg     *NatsConfig
	handler QuoteHandler
}

func NewQuoteSubscriber(js nats.JetStreamContext, cfg *NatsConfig, handler QuoteHandler) *QuoteSubscriber {
	if cfg.Subject == "" {
		cfg.Subject = SubjectPattern
	}
	if cfg.FetchSize <= 0 {
		cfg.FetchSize = 10
	}
	return &QuoteSubscriber{
		js:      js,
		cfg:     cfg,
		handler: handler,
	}
}

// EnsureStream creates the quote stream when it does not exist yet.
func EnsureStream(js nats.JetStreamContext) error {
	_, err := js.StreamInfo(StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectPattern},
	})
	return err
}

// Start pulls quotes until ctx is done. A quote is redelivered only when the
// handler reports ErrNotEvaluated. Every other message is acked once.
func (s *QuoteSubscriber) Start(ctx context.Context) error {
	sub, err := s.js.PullSubscribe(s.cfg.Subject, s.cfg.Durable)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe() // nolint

	for {
		if ctx.Err() != nil {
			return nil
		}

		fetchCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		msgs, err := sub.Fetch(s.cfg.FetchSize, nats.Context(fetchCtx))
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.Canceled) {
				continue
			}
			zap.S().Errorw("fetch quotes fail", "subject", s.cfg.Subject, "err", err)
			continue
		}

		for _, msg := range msgs {
			s.process(ctx, msg.Subject, msg.Data, msg)
		}
	}
}

type acker interface {
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
}

// process settles one message. Evaluation moves orders out of the book, so a
// quote that was evaluated, even with errors, is never evaluated again.
func (s *QuoteSubscriber) process(ctx context.Context, subject string, data []byte, msg acker) {
	q, err := DecodeQuote(data)
	if err != nil {
		zap.S().Warnw("drop undecodable quote", "subject", subject, "err", err)
		_ = msg.Ack()
		return
	}

	err = s.handler.HandleQuote(ctx, q)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotEvaluated):
		zap.S().Warnw("quote left for redelivery", "subject", subject, "err", err)
		_ = msg.Nak()
		return
	case book.IsStaleQuote(err):
		zap.S().Warnw("drop stale quote", "subject", subject, "observed_at", q.ObservedAt(), "err", err)
	default:
		zap.S().Errorw("handle quote fail", "subject", subject, "err", err)
	}
	_ = msg.Ack()
}

func DecodeQuote(data []byte) (*model.Quote, error) {
	q := &model.Quote{}
	if err := json.Unmarshal(data, q); err != nil {
		return nil, err
	}
	if q.ObservedAt().IsZero() {
		return nil, errMissingObservedAt
	}
	return q, nil
}

// PublishQuote sends q on QUOTES.<instrument> when it quotes a single
// instrument and on QUOTES.ALL otherwise.
func PublishQuote(js nats.JetStreamContext, q *model.Quote) error {
	data, err := json.Marshal(q)
	if err != nil {
		return err
	}
	instruments := q.Instruments()
	subject := StreamName + ".ALL"
	if len(instruments) == 1 {
		subject = StreamName + "." + instruments[0]
	}
	_, err = js.Publish(subject, data)
	return err
}
