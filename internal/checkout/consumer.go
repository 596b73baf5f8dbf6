package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// CartClearer is the part of the cart store the consumer needs.
type CartClearer interface {
	Clear()
}

type completedEvent struct {
	CheckoutID string `json:"checkout_id"`
	UserID     string `json:"user_id"`
}

// Consumer empties the local cart once a checkout for its owner completes.
type Consumer struct {
	reader  MessageReader
	cart    CartClearer
	ownerID string
	logger  *slog.Logger
}

func NewConsumer(cart CartClearer, ownerID, topic, groupID string, logger *slog.Logger, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(reader, cart, ownerID, logger)
}

func newConsumer(reader MessageReader, cart CartClearer, ownerID string, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		reader:  reader,
		cart:    cart,
		ownerID: ownerID,
		logger:  logger.With("component", "checkout.consumer"),
	}
}

// Run consumes until ctx is cancelled or the reader is closed.
func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return
			}
			c.logger.ErrorContext(ctx, "error reading message", "error", err)
			continue
		}
		c.handle(ctx, m)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("error closing reader", "error", err)
	}
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	var ev completedEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		c.logger.WarnContext(ctx, "error parsing message", "offset", m.Offset, "error", err)
		return
	}
	if ev.UserID == "" {
		c.logger.WarnContext(ctx, "missing or invalid user_id", "offset", m.Offset)
		return
	}
	if ev.UserID != c.ownerID {
		return
	}

	c.cart.Clear()
	c.logger.InfoContext(ctx, "cart cleared after checkout", "checkout_id", ev.CheckoutID)
}
