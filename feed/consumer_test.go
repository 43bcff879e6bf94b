package feed

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// fakeReader replays messages, then blocks until the context ends.
type fakeReader struct {
	msgs   []kafka.Message
	closed bool
	err    error
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if r.err != nil {
		return kafka.Message{}, r.err
	}
	if len(r.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) Close() error { r.closed = true; return nil }

type applied struct {
	curve, instrument string
	v                 decimal.Decimal
}

type fakeApplier struct {
	mu      sync.Mutex
	updates []applied
	done    chan struct{}
	want    int
}

func (a *fakeApplier) UpdateQuote(curve, instrument string, v decimal.Decimal) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if instrument == "UNKNOWN" {
		return false, errors.New("no such instrument")
	}
	a.updates = append(a.updates, applied{curve, instrument, v})
	if len(a.updates) == a.want {
		close(a.done)
	}
	return true, nil
}

func msg(offset int64, v string) kafka.Message {
	return kafka.Message{Offset: offset, Value: []byte(v)}
}

func TestConsumerAppliesUpdates(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		msg(1, `{"curve":"EUR","instrument":"SWAP 5Y","quote":"2.55"}`),
		msg(2, `not json`),
		msg(3, `{"curve":"EUR","quote":1}`),
		msg(4, `{"curve":"EUR","instrument":"UNKNOWN","quote":1}`),
		msg(5, `{"curve":"USD","instrument":"SR3 H6","quote":96.125,"ts":"2025-01-02T10:00:00Z"}`),
	}}
	app := &fakeApplier{done: make(chan struct{}), want: 2}
	var logs bytes.Buffer
	c := &Consumer{Reader: reader, Svc: app, Logger: zerolog.New(&logs)}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx) }()

	<-app.done
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v", err)
	}
	if !reader.closed {
		t.Fatalf("reader not closed")
	}

	if len(app.updates) != 2 {
		t.Fatalf("applied %d updates", len(app.updates))
	}
	first := app.updates[0]
	if first.curve != "EUR" || first.instrument != "SWAP 5Y" || !first.v.Equal(decimal.RequireFromString("2.55")) {
		t.Fatalf("unexpected first update %+v", first)
	}
	if !app.updates[1].v.Equal(decimal.RequireFromString("96.125")) {
		t.Fatalf("unexpected futures update %+v", app.updates[1])
	}

	out := logs.String()
	if strings.Count(out, `"level":"warn"`) != 3 {
		t.Fatalf("expected three warnings, got log:\n%s", out)
	}
}

func TestConsumerReturnsReaderError(t *testing.T) {
	boom := errors.New("broker gone")
	c := &Consumer{Reader: &fakeReader{err: boom}, Svc: &fakeApplier{}, Logger: zerolog.Nop()}
	if err := c.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected reader error, got %v", err)
	}
}
