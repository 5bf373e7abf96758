package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/benjhiman/stockledger/internal/domain"
	pkgkafka "github.com/benjhiman/stockledger/pkg/kafka"
)

// PurchaseService defines the interface required by the event consumer.
type PurchaseService interface {
	ApplyPurchase(ctx context.Context, purchaseID string, lines []domain.PurchaseLine, actor string) (*domain.PurchaseApplication, error)
}

// PurchaseLineData is one line of a purchase.received event payload.
type PurchaseLineData struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// PurchaseReceivedData is the expected payload of a purchase.received event.
type PurchaseReceivedData struct {
	PurchaseID string             `json:"purchase_id"`
	Lines      []PurchaseLineData `json:"lines"`
}

// Consumer processes incoming Kafka events for the stock ledger.
type Consumer struct {
	logger  *slog.Logger
	service PurchaseService
}

// NewConsumer creates a new event consumer for the stock ledger.
func NewConsumer(service PurchaseService, logger *slog.Logger) *Consumer {
	return &Consumer{
		service: service,
		logger:  logger,
	}
}

// HandlePurchaseReceived processes purchase.received events by applying the
// received units to stock. A purchase that was already applied counts as
// success so redelivered events commit cleanly.
func (c *Consumer) HandlePurchaseReceived(ctx context.Context, event *pkgkafka.Event) error {
	var data PurchaseReceivedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal purchase.received data: %w", err)
	}

	c.logger.InfoContext(ctx, "processing purchase.received event",
		slog.String("purchase_id", data.PurchaseID),
		slog.Int("lines", len(data.Lines)),
	)

	lines := make([]domain.PurchaseLine, 0, len(data.Lines))
	for _, l := range data.Lines {
		lines = append(lines, domain.PurchaseLine{ItemID: l.ItemID, Quantity: l.Quantity})
	}

	actor := event.Source
	if actor == "" {
		actor = "consumer"
	}

	if _, err := c.service.ApplyPurchase(ctx, data.PurchaseID, lines, actor); err != nil {
		if errors.Is(err, domain.ErrAlreadyApplied) {
			c.logger.InfoContext(ctx, "purchase already applied, skipping",
				slog.String("purchase_id", data.PurchaseID),
			)
			return nil
		}
		return fmt.Errorf("apply purchase %s: %w", data.PurchaseID, err)
	}

	c.logger.InfoContext(ctx, "purchase applied to stock",
		slog.String("purchase_id", data.PurchaseID),
	)

	return nil
}
