package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// message is the wire envelope for a task.
type message struct {
	Task string            `json:"task"`
	Args map[string]string `json:"args"`
}

// Producer publishes tasks to a Kafka topic.
type Producer struct {
	w *kafka.Writer
}

// NewProducer creates a producer with reliability settings:
// hash balancing on the message key keeps tasks for one order on one
// partition, RequireAll waits for ISR acknowledgement.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  5,
			WriteTimeout: 5 * time.Second,
			ReadTimeout:  5 * time.Second,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Close releases the writer.
func (p *Producer) Close() error { return p.w.Close() }

// Enqueue publishes a task. The order_id argument, when present, is used as
// the partition key.
func (p *Producer) Enqueue(ctx context.Context, task string, args map[string]string) error {
	b, err := json.Marshal(message{Task: task, Args: args})
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", task, err)
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(args["order_id"]),
		Value: b,
	})
}

// Verify interface compliance at compile time.
var _ Queue = (*Producer)(nil)

// Consumer reads tasks from a Kafka topic and dispatches them to registered
// handlers by task name.
type Consumer struct {
	r        *kafka.Reader
	handlers map[string]Handler
	logger   *log.Logger
}

// NewConsumer creates a consumer in the given consumer group.
func NewConsumer(brokers []string, topic, groupID string, logger *log.Logger) *Consumer {
	if logger == nil {
		logger = log.Default()
	}
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Handle registers a handler for a task name. Must be called before Run.
func (c *Consumer) Handle(task string, h Handler) {
	c.handlers[task] = h
}

// Close releases the reader.
func (c *Consumer) Close() error { return c.r.Close() }

// Run consumes tasks until ctx is cancelled or the reader fails. Handler
// errors are logged and the message is not redelivered within this group;
// handlers retry through their own persistence, not the broker.
func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			return // ctx cancelled or connection lost
		}

		var msg message
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			c.logger.Printf("taskqueue: unmarshal message: %v", err)
			continue
		}

		h, ok := c.handlers[msg.Task]
		if !ok {
			c.logger.Printf("taskqueue: no handler for task %q", msg.Task)
			continue
		}

		if err := h(ctx, msg.Args); err != nil {
			c.logger.Printf("taskqueue: task %q failed: %v", msg.Task, err)
		}
	}
}
