package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	domhistory "github.com/kailas-cloud/unisearch/internal/domain/history"
)

// --- Mocks ---

type mockWriter struct {
	msgs []kafka.Message
	err  error
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.msgs = append(m.msgs, msgs...)
	return m.err
}

func (m *mockWriter) Close() error { return nil }

// mockReader serves queued messages, then blocks until ctx is done.
type mockReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
}

func (m *mockReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	if len(m.queue) > 0 {
		msg := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		return msg, nil
	}
	m.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *mockReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		m.committed = append(m.committed, msg.Offset)
	}
	return nil
}

func (m *mockReader) Close() error { return nil }

type handlerFunc func(ctx context.Context, e domhistory.Event) error

func (f handlerFunc) Handle(ctx context.Context, e domhistory.Event) error { return f(ctx, e) }

// --- Tests ---

func TestProducer_Handle(t *testing.T) {
	w := &mockWriter{}
	p := &Producer{writer: w, logger: zap.NewNop()}

	at := time.UnixMilli(1700000000000).UTC()
	if err := p.Handle(context.Background(), domhistory.Event{UserID: "A", Query: "ivy", At: at}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "A" {
		t.Errorf("key = %q, want user id", w.msgs[0].Key)
	}
	var got domhistory.Event
	if err := json.Unmarshal(w.msgs[0].Value, &got); err != nil {
		t.Fatal(err)
	}
	if got.Query != "ivy" || !got.At.Equal(at) {
		t.Errorf("event = %+v", got)
	}
}

func TestProducer_WriteError(t *testing.T) {
	p := &Producer{writer: &mockWriter{err: errors.New("leader not available")}, logger: zap.NewNop()}
	if err := p.Handle(context.Background(), domhistory.Event{UserID: "A", Query: "ivy"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestConsumer_Run(t *testing.T) {
	good, _ := json.Marshal(domhistory.Event{UserID: "A", Query: "calculus"})
	failing, _ := json.Marshal(domhistory.Event{UserID: "B", Query: "boom"})
	r := &mockReader{queue: []kafka.Message{
		{Offset: 1, Value: good},
		{Offset: 2, Value: []byte("{not json")},
		{Offset: 3, Value: failing},
	}}

	var mu sync.Mutex
	var handled []string
	h := handlerFunc(func(_ context.Context, e domhistory.Event) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, e.Query)
		if e.Query == "boom" {
			return errors.New("store down")
		}
		return nil
	})
	c := &Consumer{reader: r, handler: h, logger: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	deadline := time.After(time.Second)
	for {
		r.mu.Lock()
		drained := len(r.queue) == 0
		r.mu.Unlock()
		mu.Lock()
		n := len(handled)
		mu.Unlock()
		if drained && n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("consumer did not drain the queue")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.committed) != 2 || r.committed[0] != 1 || r.committed[1] != 2 {
		t.Errorf("committed = %v, want [1 2]", r.committed)
	}
}
