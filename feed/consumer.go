// Package feed applies quote updates streamed from Kafka.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/meenmo/ycurve/logger"
)

// QuoteUpdate is the message payload: one instrument quote in wire units
// (percent for rates, price for futures).
type QuoteUpdate struct {
	Curve      string          `json:"curve"`
	Instrument string          `json:"instrument"`
	Quote      decimal.Decimal `json:"quote"`
	TS         time.Time       `json:"ts,omitempty"`
}

// Reader is the subset of *kafka.Reader the consumer needs.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Applier receives decoded updates.
type Applier interface {
	UpdateQuote(curve, instrument string, v decimal.Decimal) (bool, error)
}

type Consumer struct {
	Reader Reader
	Svc    Applier
	Logger zerolog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, svc Applier) *Consumer {
	return &Consumer{
		Reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
			MaxWait:  500 * time.Millisecond,
		}),
		Svc:    svc,
		Logger: logger.Component("feed"),
	}
}

// Run consumes until ctx is cancelled or the reader fails. Malformed or
// unknown updates are logged and skipped.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.Reader.Close()
	for {
		m, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return err
		}
		var u QuoteUpdate
		if err := json.Unmarshal(m.Value, &u); err != nil {
			c.Logger.Warn().Err(err).Int64("offset", m.Offset).Msg("bad message")
			continue
		}
		if u.Curve == "" || u.Instrument == "" {
			c.Logger.Warn().Int64("offset", m.Offset).Msg("update without curve or instrument")
			continue
		}
		changed, err := c.Svc.UpdateQuote(u.Curve, u.Instrument, u.Quote)
		if err != nil {
			c.Logger.Warn().Err(err).Str("curve", u.Curve).Str("instrument", u.Instrument).Msg("apply quote")
			continue
		}
		c.Logger.Debug().
			Str("curve", u.Curve).
			Str("instrument", u.Instrument).
			Str("quote", u.Quote.String()).
			Bool("changed", changed).
			Msg("quote applied")
	}
}
