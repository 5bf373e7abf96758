package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/benjhiman/stockledger/internal/domain"
	pkgkafka "github.com/benjhiman/stockledger/pkg/kafka"
)

// Kafka topic constants for stock ledger domain events.
var (
	TopicStockUpdated     = pkgkafka.Topic("stock", "updated")
	TopicStockReserved    = pkgkafka.Topic("stock", "reserved")
	TopicStockReleased    = pkgkafka.Topic("stock", "released")
	TopicStockSold        = pkgkafka.Topic("stock", "sold")
	TopicPurchaseReceived = pkgkafka.Topic("purchase", "received")
)

// Aggregate type constant.
const AggregateTypeStockItem = "stock_item"

// Source identifier for events originating from the stock ledger.
const SourceStockLedger = "stockledger-service"

// StockUpdatedData is the payload for a stock.updated event. It carries the
// item's post-movement counters so consumers never have to read them back.
type StockUpdatedData struct {
	ItemID      string    `json:"item_id"`
	ModelName   string    `json:"model_name"`
	Condition   string    `json:"condition"`
	Quantity    int       `json:"quantity"`
	Reserved    int       `json:"reserved"`
	Available   int       `json:"available"`
	Status      string    `json:"status"`
	MovementSeq int64     `json:"movement_seq"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StockReservedData is the payload for a stock.reserved event.
type StockReservedData struct {
	ReservationID string    `json:"reservation_id"`
	ItemID        string    `json:"item_id"`
	Quantity      int       `json:"quantity"`
	ExpiresAt     time.Time `json:"expires_at"`
	Available     int       `json:"available"`
}

// StockReleasedData is the payload for a stock.released event. Status tells
// consumers whether the hold was cancelled or expired.
type StockReleasedData struct {
	ReservationID string `json:"reservation_id"`
	ItemID        string `json:"item_id"`
	Quantity      int    `json:"quantity"`
	Status        string `json:"status"`
	Available     int    `json:"available"`
}

// StockSoldData is the payload for a stock.sold event.
type StockSoldData struct {
	ReservationID string `json:"reservation_id"`
	ItemID        string `json:"item_id"`
	Quantity      int    `json:"quantity"`
	Remaining     int    `json:"remaining"`
}

// Producer publishes stock ledger domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the stock ledger.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishStockUpdated publishes a stock.updated event with the item's
// current counters.
func (p *Producer) PublishStockUpdated(ctx context.Context, item *domain.StockItem) error {
	data := StockUpdatedData{
		ItemID:      item.ID,
		ModelName:   item.ModelName,
		Condition:   item.Condition,
		Quantity:    item.Quantity,
		Reserved:    item.Reserved,
		Available:   item.Available(),
		Status:      item.Status,
		MovementSeq: item.MovementSeq,
		UpdatedAt:   item.UpdatedAt,
	}

	event, err := pkgkafka.NewEvent(TopicStockUpdated, item.ID, AggregateTypeStockItem, SourceStockLedger, data)
	if err != nil {
		return fmt.Errorf("create stock.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicStockUpdated, event); err != nil {
		return fmt.Errorf("publish stock.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published stock.updated event",
		slog.String("item_id", item.ID),
		slog.Int("quantity", item.Quantity),
	)

	return nil
}

// PublishStockReserved publishes a stock.reserved event.
func (p *Producer) PublishStockReserved(ctx context.Context, res *domain.Reservation, item *domain.StockItem) error {
	data := StockReservedData{
		ReservationID: res.ID,
		ItemID:        res.ItemID,
		Quantity:      res.Quantity,
		ExpiresAt:     res.ExpiresAt,
		Available:     item.Available(),
	}

	event, err := pkgkafka.NewEvent(TopicStockReserved, item.ID, AggregateTypeStockItem, SourceStockLedger, data)
	if err != nil {
		return fmt.Errorf("create stock.reserved event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicStockReserved, event); err != nil {
		return fmt.Errorf("publish stock.reserved event: %w", err)
	}

	p.logger.DebugContext(ctx, "published stock.reserved event",
		slog.String("reservation_id", res.ID),
		slog.String("item_id", res.ItemID),
	)

	return nil
}

// PublishStockReleased publishes a stock.released event for a cancelled or
// expired hold.
func (p *Producer) PublishStockReleased(ctx context.Context, res *domain.Reservation, item *domain.StockItem) error {
	data := StockReleasedData{
		ReservationID: res.ID,
		ItemID:        res.ItemID,
		Quantity:      res.Quantity,
		Status:        res.Status,
		Available:     item.Available(),
	}

	event, err := pkgkafka.NewEvent(TopicStockReleased, item.ID, AggregateTypeStockItem, SourceStockLedger, data)
	if err != nil {
		return fmt.Errorf("create stock.released event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicStockReleased, event); err != nil {
		return fmt.Errorf("publish stock.released event: %w", err)
	}

	p.logger.DebugContext(ctx, "published stock.released event",
		slog.String("reservation_id", res.ID),
		slog.String("status", res.Status),
	)

	return nil
}

// PublishStockSold publishes a stock.sold event for a confirmed hold.
func (p *Producer) PublishStockSold(ctx context.Context, res *domain.Reservation, item *domain.StockItem) error {
	data := StockSoldData{
		ReservationID: res.ID,
		ItemID:        res.ItemID,
		Quantity:      res.Quantity,
		Remaining:     item.Quantity,
	}

	event, err := pkgkafka.NewEvent(TopicStockSold, item.ID, AggregateTypeStockItem, SourceStockLedger, data)
	if err != nil {
		return fmt.Errorf("create stock.sold event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicStockSold, event); err != nil {
		return fmt.Errorf("publish stock.sold event: %w", err)
	}

	p.logger.DebugContext(ctx, "published stock.sold event",
		slog.String("reservation_id", res.ID),
		slog.String("item_id", res.ItemID),
	)

	return nil
}
