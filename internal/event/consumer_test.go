package event

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/benjhiman/stockledger/internal/domain"
	pkgkafka "github.com/benjhiman/stockledger/pkg/kafka"
	"github.com/benjhiman/stockledger/pkg/logger"
)

type mockPurchaseService struct {
	mock.Mock
}

func (m *mockPurchaseService) ApplyPurchase(ctx context.Context, purchaseID string, lines []domain.PurchaseLine, actor string) (*domain.PurchaseApplication, error) {
	args := m.Called(ctx, purchaseID, lines, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PurchaseApplication), args.Error(1)
}

func purchaseReceivedEvent(t *testing.T) *pkgkafka.Event {
	t.Helper()
	evt, err := pkgkafka.NewEvent(
		TopicPurchaseReceived, "po-1001", "purchase", "procurement-service",
		PurchaseReceivedData{
			PurchaseID: "po-1001",
			Lines: []PurchaseLineData{
				{ItemID: "item-1", Quantity: 5},
			},
		},
	)
	require.NoError(t, err)
	return evt
}

func TestHandlePurchaseReceived_Success(t *testing.T) {
	svc := new(mockPurchaseService)
	consumer := NewConsumer(svc, logger.NewWithWriter("test", "error", io.Discard))

	expectedLines := []domain.PurchaseLine{{ItemID: "item-1", Quantity: 5}}
	svc.On("ApplyPurchase", mock.Anything, "po-1001", expectedLines, "procurement-service").
		Return(&domain.PurchaseApplication{PurchaseID: "po-1001"}, nil)

	err := consumer.HandlePurchaseReceived(context.Background(), purchaseReceivedEvent(t))

	require.NoError(t, err)
	svc.AssertExpectations(t)
}

func TestHandlePurchaseReceived_AlreadyAppliedIsSuccess(t *testing.T) {
	svc := new(mockPurchaseService)
	consumer := NewConsumer(svc, logger.NewWithWriter("test", "error", io.Discard))

	svc.On("ApplyPurchase", mock.Anything, "po-1001", mock.Anything, mock.Anything).
		Return(nil, domain.AlreadyAppliedError("po-1001"))

	err := consumer.HandlePurchaseReceived(context.Background(), purchaseReceivedEvent(t))

	// Redelivered events commit cleanly instead of retrying forever.
	require.NoError(t, err)
	svc.AssertExpectations(t)
}

func TestHandlePurchaseReceived_ServiceError(t *testing.T) {
	svc := new(mockPurchaseService)
	consumer := NewConsumer(svc, logger.NewWithWriter("test", "error", io.Discard))

	svc.On("ApplyPurchase", mock.Anything, "po-1001", mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	err := consumer.HandlePurchaseReceived(context.Background(), purchaseReceivedEvent(t))

	assert.Error(t, err)
}

func TestHandlePurchaseReceived_MalformedPayload(t *testing.T) {
	svc := new(mockPurchaseService)
	consumer := NewConsumer(svc, logger.NewWithWriter("test", "error", io.Discard))

	evt := &pkgkafka.Event{Data: []byte("{not json")}

	err := consumer.HandlePurchaseReceived(context.Background(), evt)

	assert.Error(t, err)
	svc.AssertNotCalled(t, "ApplyPurchase")
}
