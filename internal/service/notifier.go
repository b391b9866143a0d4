package service

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/totegamma/lngateway/internal/domain"
)

// Publisher is the publish side of the signal service.
type Publisher interface {
	Publish(ctx context.Context, channel string, event any) error
}

// SettlementNotifier publishes settlement events over the signal service.
// Delivery to the user's own relays is the consumer's job; the gateway only
// guarantees the event reaches the channel.
type SettlementNotifier struct {
	signal Publisher
}

func NewSettlementNotifier(signal Publisher) *SettlementNotifier {
	return &SettlementNotifier{signal: signal}
}

func (n *SettlementNotifier) Notify(ctx context.Context, invoice domain.Invoice) error {
	event := domain.SettlementEvent{
		OperationID:  invoice.OperationID,
		FederationID: invoice.FederationID,
		UserID:       invoice.UserID,
		Amount:       invoice.Amount,
		State:        invoice.State.String(),
	}

	if err := n.signal.Publish(ctx, SettledChannel, event); err != nil {
		return errors.Wrap(err, "failed to publish settlement event")
	}

	slog.InfoContext(
		ctx, "settlement notification published",
		slog.String("opID", invoice.OperationID),
		slog.Int64("amount", invoice.Amount),
		slog.String("module", "notifier"),
	)

	return nil
}
