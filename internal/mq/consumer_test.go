package mq

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAcknowledger struct {
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	f.nacked = append(f.nacked, tag)
	f.requeue = append(f.requeue, requeue)
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func TestConsumer_ProcessMessage_AcksOnSuccess(t *testing.T) {
	var got []byte
	c := &Consumer{queue: "q", logger: zap.NewNop(), handler: func(_ context.Context, body []byte) error {
		got = body
		return nil
	}}
	ack := &fakeAcknowledger{}

	c.processMessage(context.Background(), amqp.Delivery{
		Acknowledger: ack, DeliveryTag: 7, RoutingKey: "meal.created", Body: []byte(`{"x":1}`),
	})

	require.Equal(t, []byte(`{"x":1}`), got)
	require.Equal(t, []uint64{7}, ack.acked)
	require.Empty(t, ack.nacked)
}

func TestConsumer_ProcessMessage_DeadLettersOnError(t *testing.T) {
	c := &Consumer{queue: "q", logger: zap.NewNop(), handler: func(context.Context, []byte) error {
		return errors.New("meal not found")
	}}
	ack := &fakeAcknowledger{}

	c.processMessage(context.Background(), amqp.Delivery{Acknowledger: ack, DeliveryTag: 9, RoutingKey: "meal.updated"})

	require.Empty(t, ack.acked)
	require.Equal(t, []uint64{9}, ack.nacked)
	require.Equal(t, []bool{false}, ack.requeue)
}

func TestConsumer_Loop_StopsWhenChannelCloses(t *testing.T) {
	calls := 0
	c := &Consumer{queue: "q", logger: zap.NewNop(), handler: func(context.Context, []byte) error {
		calls++
		return nil
	}}
	ack := &fakeAcknowledger{}
	msgs := make(chan amqp.Delivery, 2)
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1}
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2}
	close(msgs)

	c.loop(context.Background(), msgs)

	require.Equal(t, 2, calls)
	require.Equal(t, []uint64{1, 2}, ack.acked)
}

func TestConsumer_Loop_StopsOnCancel(t *testing.T) {
	c := &Consumer{queue: "q", logger: zap.NewNop(), handler: func(context.Context, []byte) error { return nil }}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// never fed; returns because the context is done
	c.loop(ctx, make(chan amqp.Delivery))
}

func TestConsumer_ProcessMessage_RequeuesWhenInterrupted(t *testing.T) {
	c := &Consumer{queue: "q", logger: zap.NewNop(), handler: func(context.Context, []byte) error {
		return fmt.Errorf("failed to save daily stats: %w", context.Canceled)
	}}
	ack := &fakeAcknowledger{}

	c.processMessage(context.Background(), amqp.Delivery{Acknowledger: ack, DeliveryTag: 4, RoutingKey: "meal.created"})

	require.Empty(t, ack.acked)
	require.Equal(t, []uint64{4}, ack.nacked)
	require.Equal(t, []bool{true}, ack.requeue)
}

func TestConsumer_Stop_FinishesInFlightMessage(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var handlerErr error
	c := &Consumer{queue: "q", logger: zap.NewNop(), handler: func(ctx context.Context, _ []byte) error {
		close(started)
		<-release
		handlerErr = ctx.Err()
		return handlerErr
	}}
	ack := &fakeAcknowledger{}
	msgs := make(chan amqp.Delivery, 1)
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, RoutingKey: "meal.updated"}

	ctx, cancel := context.WithCancel(context.Background())
	c.run(ctx, msgs)
	<-started
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer waitCancel()
	require.ErrorIs(t, c.Wait(waitCtx), context.DeadlineExceeded, "loop returned while a message was in flight")

	close(release)
	require.NoError(t, c.Wait(context.Background()))
	require.NoError(t, handlerErr)
	require.Equal(t, []uint64{3}, ack.acked)
	require.Empty(t, ack.nacked)
}

func TestConsumer_Wait_NotStarted(t *testing.T) {
	c := &Consumer{queue: "q", logger: zap.NewNop()}
	require.NoError(t, c.Wait(context.Background()))
}
