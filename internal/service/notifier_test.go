package service

import (
	"context"
	"errors"
	"testing"

	"github.com/totegamma/lngateway/internal/domain"
)

type fakePublisher struct {
	err     error
	channel string
	event   any
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, event any) error {
	if p.err != nil {
		return p.err
	}
	p.channel = channel
	p.event = event
	return nil
}

func TestNotifyPublishesSettlementEvent(t *testing.T) {
	publisher := &fakePublisher{}
	notifier := NewSettlementNotifier(publisher)

	invoice := domain.Invoice{
		OperationID:  "op-1",
		FederationID: testFederationID,
		UserID:       1,
		Amount:       21000,
		State:        domain.InvoiceStateSettled,
	}
	if err := notifier.Notify(context.Background(), invoice); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	if publisher.channel != SettledChannel {
		t.Errorf("expected channel %s, got %s", SettledChannel, publisher.channel)
	}
	event, ok := publisher.event.(domain.SettlementEvent)
	if !ok {
		t.Fatalf("expected a settlement event, got %T", publisher.event)
	}
	if event.OperationID != "op-1" || event.Amount != 21000 || event.State != "settled" {
		t.Errorf("unexpected event %+v", event)
	}
}

func TestNotifyPropagatesPublishFailure(t *testing.T) {
	sentinel := errors.New("redis gone")
	notifier := NewSettlementNotifier(&fakePublisher{err: sentinel})

	err := notifier.Notify(context.Background(), domain.Invoice{OperationID: "op-1"})
	if !errors.Is(err, sentinel) {
		t.Errorf("expected publish failure to propagate, got %v", err)
	}
}
