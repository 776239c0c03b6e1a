package sideeffect

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher is the slice of mq.Publisher the dispatcher needs.
type Publisher interface {
	PublishJSON(ctx context.Context, key, messageID string, v any) error
}

// AMQPDispatcher publishes tasks to the broker, routed by kind, for the
// worker command to consume.
type AMQPDispatcher struct {
	pub Publisher
}

func NewAMQPDispatcher(pub Publisher) *AMQPDispatcher {
	return &AMQPDispatcher{pub: pub}
}

func (d *AMQPDispatcher) Dispatch(ctx context.Context, task Task) error {
	if err := d.pub.PublishJSON(ctx, string(task.Kind), task.ID.String(), task); err != nil {
		return fmt.Errorf("publish %s task: %w", task.Kind, err)
	}
	return nil
}

// RoutingKeys are the bindings the side-effect queue needs.
var RoutingKeys = []string{"referral.*", "loyalty.*", "analytics.*", "cart.*"}

// Consumer feeds broker deliveries to a TaskRunner. Malformed messages are
// dead-lettered; failed tasks are requeued once and dead-lettered after.
type Consumer struct {
	runner TaskRunner
	log    *zap.Logger
}

func NewConsumer(runner TaskRunner, log *zap.Logger) *Consumer {
	return &Consumer{
		runner: runner,
		log:    log.With(zap.String("worker", "consumer")),
	}
}

// Run processes deliveries until ctx is done or the channel closes.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.Handle(ctx, d)
		}
	}
}

func (c *Consumer) Handle(ctx context.Context, d amqp.Delivery) {
	var task Task
	if err := json.Unmarshal(d.Body, &task); err != nil {
		c.log.Error("Malformed side effect message",
			zap.Error(err),
			zap.String("routing_key", d.RoutingKey),
			zap.String("message_id", d.MessageId),
		)
		_ = d.Nack(false, false)
		return
	}

	if err := c.runner.Run(ctx, task); err != nil {
		requeue := !d.Redelivered
		c.log.Error("Side effect failed",
			zap.Error(err),
			zap.String("task_id", task.ID.String()),
			zap.String("kind", string(task.Kind)),
			zap.Bool("requeue", requeue),
		)
		_ = d.Nack(false, requeue)
		return
	}

	_ = d.Ack(false)
}
