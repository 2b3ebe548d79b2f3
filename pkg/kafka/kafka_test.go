package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeReader struct {
	queue     []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(context.Context) (kafka.Message, error) {
	if len(r.queue) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type sample struct {
	Query string `json:"query"`
	Hits  int    `json:"hits"`
}

func TestProducerPublishBatch(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "ir.query-events")

	err := p.PublishBatch(context.Background(), []Event{
		{Key: "ranked", Value: sample{Query: "cat dog", Hits: 3}},
		{Key: "boolean", Value: sample{Query: "cat sat", Hits: 1}},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "ranked", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"query":"cat dog","hits":3}`, string(w.msgs[0].Value))

	require.NoError(t, p.PublishBatch(context.Background(), nil))
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducerErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newProducer(w, "t")
	assert.Error(t, p.Publish(context.Background(), Event{Key: "k", Value: 1}))

	p = newProducer(&fakeWriter{}, "t")
	assert.Error(t, p.Publish(context.Background(), Event{Key: "k", Value: make(chan int)}))
}

func TestConsumerCommitsHandledMessages(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{
		{Offset: 1, Value: []byte(`{"query":"a","hits":1}`)},
		{Offset: 2, Value: []byte(`not json`)},
		{Offset: 3, Value: []byte(`{"query":"b","hits":0}`)},
	}}
	var seen []string
	c := newConsumer(r, "t", func(_ context.Context, _ []byte, value []byte) error {
		s, err := DecodeJSON[sample](value)
		if err != nil {
			return err
		}
		seen = append(seen, s.Query)
		return nil
	})

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Equal(t, []int64{1, 3}, r.committed)
}
