package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PriceValue is the two-sided price of one instrument.
type PriceValue struct {
	Bid decimal.Decimal `json:"bid"`
	Ask decimal.Decimal `json:"ask"`
}

func NewPriceValue(bid, ask decimal.Decimal) PriceValue {
	return PriceValue{Bid: bid, Ask: ask}
}

// Quote is an immutable price observation for one or more instruments.
type Quote struct {
	values     map[string]PriceValue
	observedAt time.Time
}

// NewQuote copies values, later changes to the map do not affect the quote.
func NewQuote(values map[string]PriceValue, observedAt time.Time) *Quote {
	copied := make(map[string]PriceValue, len(values))
	for instrument, v := range values {
		copied[instrument] = v
	}

	return &Quote{
		values:     copied,
		observedAt: observedAt,
	}
}

func (q *Quote) ObservedAt() time.Time {
	return q.observedAt
}

// Value returns the price of instrument or ErrInstrumentNotFound.
func (q *Quote) Value(instrument string) (PriceValue, error) {
	v, ok := q.values[instrument]
	if !ok {
		return PriceValue{}, fmt.Errorf("%w: %s", ErrInstrumentNotFound, instrument)
	}
	return v, nil
}

func (q *Quote) Has(instrument string) bool {
	_, ok := q.values[instrument]
	return ok
}

// Instruments returns the quoted symbols in lexical order.
func (q *Quote) Instruments() []string {
	instruments := make([]string, 0, len(q.values))
	for instrument := range q.values {
		instruments = append(instruments, instrument)
	}
	sort.Strings(instruments)
	return instruments
}

type quoteJSON struct {
	ObservedAt time.Time             `json:"observed_at"`
	Values     map[string]PriceValue `json:"values"`
}

func (q *Quote) MarshalJSON() ([]byte, error) {
	return json.Marshal(quoteJSON{
		ObservedAt: q.observedAt,
		Values:     q.values,
	})
}

func (q *Quote) UnmarshalJSON(data []byte) error {
	var raw quoteJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*q = *NewQuote(raw.Values, raw.ObservedAt)
	return nil
}
