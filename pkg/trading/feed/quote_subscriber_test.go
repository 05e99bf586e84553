package feed

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"

	"github.com/ToyotakaTanaka/jiji2/pkg/trading/book"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

func TestDecodeQuote(t *testing.T) {
	q, err := DecodeQuote([]byte(`{"observed_at":"2015-05-01T00:00:00Z","values":{"EURJPY":{"bid":"100","ask":"100.03"}}}`))
	if err != nil {
		t.Fatal(err)
	}
	v, err := q.Value("EURJPY")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Ask.Equal(decimal.RequireFromString("100.03")) {
		t.Errorf("expected ask 100.03, got %s", v.Ask)
	}
}

func TestDecodeQuoteErrors(t *testing.T) {
	for _, data := range []string{
		`not json`,
		`{"values":{"EURJPY":{"bid":"100","ask":"100.03"}}}`,
		`{"observed_at":"2015-05-01T00:00:00Z","values":{"EURJPY":{"bid":"abc","ask":"1"}}}`,
	} {
		if _, err := DecodeQuote([]byte(data)); err == nil {
			t.Errorf("expected error for %s", data)
		}
	}
}

type fakeAcker struct {
	acks, naks int
}

func (a *fakeAcker) Ack(...nats.AckOpt) error { a.acks++; return nil }
func (a *fakeAcker) Nak(...nats.AckOpt) error { a.naks++; return nil }

type handlerFunc func(ctx context.Context, q *model.Quote) error

func (f handlerFunc) HandleQuote(ctx context.Context, q *model.Quote) error { return f(ctx, q) }

func TestProcessSettlesOnce(t *testing.T) {
	quote := []byte(`{"observed_at":"2015-05-01T00:00:00Z","values":{"EURJPY":{"bid":"100","ask":"100.03"}}}`)

	// A book that rejects stale quotes produces a real stale error.
	bm := book.NewBookManager(&book.BookManagerConfig{RejectStaleQuotes: true})
	bm.AddOrder("S1", model.NewOrder("EURJPY", decimal.NewFromInt(1), model.OrderSideSell, model.OrderTypeLimit,
		decimal.NewNullDecimal(decimal.NewFromInt(200))))
	later, err := DecodeQuote([]byte(`{"observed_at":"2015-05-01T00:01:00Z","values":{"EURJPY":{"bid":"100","ask":"100.03"}}}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := bm.OnQuote(later); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		data    []byte
		handler handlerFunc
		acks    int
		naks    int
	}{
		{"handled", quote, func(context.Context, *model.Quote) error { return nil }, 1, 0},
		{"undecodable", []byte(`{}`), func(context.Context, *model.Quote) error {
			t.Error("handler called for undecodable quote")
			return nil
		}, 1, 0},
		{"stale", quote, func(_ context.Context, q *model.Quote) error {
			_, err := bm.OnQuote(q)
			return err
		}, 1, 0},
		{"triggers not recorded", quote, func(context.Context, *model.Quote) error {
			return errors.New("publish E1: broker down")
		}, 1, 0},
		{"not evaluated", quote, func(context.Context, *model.Quote) error {
			return fmt.Errorf("%w: %w", ErrNotEvaluated, context.Canceled)
		}, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewQuoteSubscriber(nil, &NatsConfig{}, tt.handler)
			a := &fakeAcker{}
			s.process(context.Background(), "QUOTES.EURJPY", tt.data, a)
			if a.acks != tt.acks || a.naks != tt.naks {
				t.Errorf("expected %d ack %d nak, got %d ack %d nak", tt.acks, tt.naks, a.acks, a.naks)
			}
		})
	}
}
