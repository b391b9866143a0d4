package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/totegamma/lngateway/internal/domain"
)

func pendingInvoice(opID string) domain.Invoice {
	return domain.Invoice{
		OperationID:  opID,
		FederationID: testFederationID,
		UserID:       1,
		Bolt11:       "lnbc1" + opID,
		Amount:       21000,
		Tweak:        1,
		State:        domain.InvoiceStatePending,
	}
}

func TestTrackerClaimedSettlesAndNotifies(t *testing.T) {
	invoices := newMockInvoiceRepo(pendingInvoice("op-1"))
	backend := newMockBackend(testFederationID)
	notifier := &mockNotifier{}
	tracker := NewTracker(context.Background(), invoices, notifier)

	stored, _ := invoices.GetByOperationID(context.Background(), "op-1")
	if err := tracker.Watch(context.Background(), backend, stored); err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	backend.push("op-1", domain.PaymentUpdate{Status: domain.PaymentStatusWaitingForPayment})
	backend.push("op-1", domain.PaymentUpdate{Status: domain.PaymentStatusFunded})
	backend.push("op-1", domain.PaymentUpdate{Status: domain.PaymentStatusClaimed})
	tracker.Wait()

	if state := invoices.stateOf("op-1"); state != domain.InvoiceStateSettled {
		t.Errorf("expected settled, got %v", state)
	}
	if notifier.count() != 1 {
		t.Errorf("expected exactly one notification, got %d", notifier.count())
	}
	if tracker.Watching("op-1") {
		t.Errorf("subscription should be released after terminal state")
	}
}

func TestTrackerCanceledPersistsCancelled(t *testing.T) {
	invoices := newMockInvoiceRepo(pendingInvoice("op-1"))
	backend := newMockBackend(testFederationID)
	notifier := &mockNotifier{}
	tracker := NewTracker(context.Background(), invoices, notifier)

	stored, _ := invoices.GetByOperationID(context.Background(), "op-1")
	if err := tracker.Watch(context.Background(), backend, stored); err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	backend.push("op-1", domain.PaymentUpdate{Status: domain.PaymentStatusCanceled, Reason: "invoice expired"})
	tracker.Wait()

	if state := invoices.stateOf("op-1"); state != domain.InvoiceStateCancelled {
		t.Errorf("expected cancelled, got %v", state)
	}
	if notifier.count() != 0 {
		t.Errorf("cancellation must not notify, got %d", notifier.count())
	}
}

func TestTrackerStreamClosedStaysPending(t *testing.T) {
	invoices := newMockInvoiceRepo(pendingInvoice("op-1"))
	backend := newMockBackend(testFederationID)
	tracker := NewTracker(context.Background(), invoices, &mockNotifier{})

	stored, _ := invoices.GetByOperationID(context.Background(), "op-1")
	if err := tracker.Watch(context.Background(), backend, stored); err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	backend.push("op-1", domain.PaymentUpdate{Status: domain.PaymentStatusWaitingForPayment})
	backend.finish("op-1")
	tracker.Wait()

	if state := invoices.stateOf("op-1"); state != domain.InvoiceStatePending {
		t.Errorf("expected pending after transport loss, got %v", state)
	}
	if tracker.Watching("op-1") {
		t.Errorf("subscription should be released after stream close")
	}
}

func TestTrackerWatchDeduplicates(t *testing.T) {
	invoices := newMockInvoiceRepo(pendingInvoice("op-1"))
	backend := newMockBackend(testFederationID)
	tracker := NewTracker(context.Background(), invoices, &mockNotifier{})

	stored, _ := invoices.GetByOperationID(context.Background(), "op-1")
	for i := 0; i < 3; i++ {
		if err := tracker.Watch(context.Background(), backend, stored); err != nil {
			t.Fatalf("watch failed: %v", err)
		}
	}

	if got := backend.subscribeCount("op-1"); got != 1 {
		t.Errorf("expected one subscription, got %d", got)
	}
	if tracker.ActiveCount() != 1 {
		t.Errorf("expected one active tracker, got %d", tracker.ActiveCount())
	}

	backend.push("op-1", domain.PaymentUpdate{Status: domain.PaymentStatusClaimed})
	tracker.Wait()
}

func TestTrackerSkipsNonPending(t *testing.T) {
	invoices := newMockInvoiceRepo()
	backend := newMockBackend(testFederationID)
	tracker := NewTracker(context.Background(), invoices, &mockNotifier{})

	settled := pendingInvoice("op-1")
	settled.State = domain.InvoiceStateSettled
	if err := tracker.Watch(context.Background(), backend, settled); err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	if got := backend.subscribeCount("op-1"); got != 0 {
		t.Errorf("terminal invoice must not subscribe, got %d", got)
	}
}

func TestTrackerSubscribeFailureReleases(t *testing.T) {
	invoices := newMockInvoiceRepo(pendingInvoice("op-1"))
	backend := newMockBackend(testFederationID)
	backend.subscribeErr = domain.ErrBackendUnavailable
	tracker := NewTracker(context.Background(), invoices, &mockNotifier{})

	stored, _ := invoices.GetByOperationID(context.Background(), "op-1")
	err := tracker.Watch(context.Background(), backend, stored)
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}

	if tracker.Watching("op-1") {
		t.Errorf("failed subscription must not stay registered")
	}
	if state := invoices.stateOf("op-1"); state != domain.InvoiceStatePending {
		t.Errorf("expected pending, got %v", state)
	}
}

func TestTrackerPersistFailureSkipsNotification(t *testing.T) {
	invoices := newMockInvoiceRepo(pendingInvoice("op-1"))
	invoices.updateErr = errors.New("database gone")
	backend := newMockBackend(testFederationID)
	notifier := &mockNotifier{}
	tracker := NewTracker(context.Background(), invoices, notifier)

	stored, _ := invoices.GetByOperationID(context.Background(), "op-1")
	if err := tracker.Watch(context.Background(), backend, stored); err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	backend.push("op-1", domain.PaymentUpdate{Status: domain.PaymentStatusClaimed})
	tracker.Wait()

	if notifier.count() != 0 {
		t.Errorf("notification must not fire when settlement is not durable")
	}
	if state := invoices.stateOf("op-1"); state != domain.InvoiceStatePending {
		t.Errorf("expected pending, got %v", state)
	}
}
