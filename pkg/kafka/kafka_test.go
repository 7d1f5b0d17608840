package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"tourhub/pkg/logger"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestMessageBuilder(t *testing.T) {
	msg, err := NewMessage().
		WithKey("665f1c2e9b1d4a0012ab34cd").
		WithEventType("booking.created").
		WithCorrelationID("req-12345678").
		WithValue(map[string]any{"reference": "TB-AB12CD34"}).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.EventID() == "" {
		t.Error("event id should be generated")
	}
	if msg.Headers[HeaderTimestamp] == "" {
		t.Error("timestamp header should be set")
	}
	var payload map[string]string
	if err := msg.DecodeValue(&payload); err != nil || payload["reference"] != "TB-AB12CD34" {
		t.Errorf("unexpected payload %v (%v)", payload, err)
	}

	_, err = NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	if err == nil {
		t.Error("expected encode error")
	}
}

func TestMessage_RetryCount(t *testing.T) {
	msg := Message{}
	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	if msg.RetryCount() != 12 {
		t.Errorf("RetryCount() = %d, want 12", msg.RetryCount())
	}
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "tourhub.bookings")

	var seenTopic string
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		seenTopic = msg.Topic
		return next(ctx, msg)
	})

	msg, _ := NewMessage().WithKey("b1").WithEventType("booking.created").WithValue("x").Build()
	if err := p.Publish(context.Background(), msg); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if seenTopic != "tourhub.bookings" {
		t.Errorf("middleware saw topic %q", seenTopic)
	}
	if len(w.messages) != 1 || string(w.messages[0].Key) != "b1" {
		t.Fatalf("unexpected writes %+v", w.messages)
	}

	if err := p.Publish(context.Background(), Message{Value: []byte("x")}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}

	_ = p.Close()
	if err := p.Publish(context.Background(), msg); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("expected ErrProducerClosed, got %v", err)
	}
	if !w.closed {
		t.Error("writer should be closed")
	}
}

func TestConsumer_RetriesTransientThenSucceeds(t *testing.T) {
	attempts := 0
	c := newConsumer(&fakeReader{}, "tourhub.bookings", "group", 3, func(context.Context, Message) error {
		attempts++
		if attempts < 3 {
			return NewTransientError("mongo unavailable", errors.New("connection refused"))
		}
		return nil
	}, logger.Nop())
	c.backoff = time.Millisecond

	if err := c.process(context.Background(), Message{Headers: map[string]string{}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestConsumer_PermanentErrorGoesToDLQ(t *testing.T) {
	dlq := &fakeWriter{}
	attempts := 0
	c := newConsumer(&fakeReader{}, "tourhub.bookings", "group", 3, func(context.Context, Message) error {
		attempts++
		return NewPermanentError("bad payload", nil)
	}, logger.Nop())
	c.dlqWriter = dlq
	c.backoff = time.Millisecond

	msg := Message{Topic: "tourhub.bookings", Key: "b1", Value: []byte("{"), Headers: map[string]string{HeaderEventID: "e1"}}
	if err := c.process(context.Background(), msg); err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("permanent errors must not be retried, attempts = %d", attempts)
	}
	if len(dlq.messages) != 1 {
		t.Fatalf("expected one DLQ message, got %d", len(dlq.messages))
	}
	headers := fromKafkaMessage(dlq.messages[0]).Headers
	if headers[HeaderOriginalTopic] != "tourhub.bookings" || headers[HeaderDLQError] == "" {
		t.Errorf("missing DLQ headers: %v", headers)
	}
}

func TestConsumer_StartCommitsAndStops(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		{Topic: "tourhub.bookings", Key: []byte("a"), Value: []byte("{}")},
		{Topic: "tourhub.bookings", Key: []byte("b"), Value: []byte("{}")},
	}}
	var mu sync.Mutex
	var handled []string
	c := newConsumer(reader, "tourhub.bookings", "group", 0, func(_ context.Context, m Message) error {
		mu.Lock()
		handled = append(handled, m.Key)
		mu.Unlock()
		return nil
	}, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		reader.mu.Lock()
		n := len(reader.committed)
		reader.mu.Unlock()
		if n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("messages were not committed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Start returned %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 2 || handled[0] != "a" {
		t.Errorf("unexpected handled keys %v", handled)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorType
	}{
		{nil, ErrorTypeUnknown},
		{context.DeadlineExceeded, ErrorTypeTransient},
		{errors.New("dial tcp: Connection Refused"), ErrorTypeTransient},
		{errors.New("invalid character"), ErrorTypePermanent},
		{NewTransientError("x", nil), ErrorTypeTransient},
	}
	for _, tt := range tests {
		if got := ClassifyError(tt.err); got != tt.want {
			t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
