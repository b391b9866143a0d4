package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/totegamma/lngateway/internal/domain"
)

// Tracker drives the lifecycle of issued invoices. Each watched invoice gets
// one goroutine that consumes the backend's update stream and persists the
// terminal state when it arrives. The registry of live subscriptions
// guarantees at most one stream per operation id, which keeps recovery
// idempotent.
type Tracker struct {
	ctx      context.Context
	invoices InvoiceRepository
	notifier Notifier

	mu     sync.Mutex
	active map[string]struct{}
	wg     sync.WaitGroup
}

// NewTracker creates a tracker. ctx is the service root context: trackers
// outlive the requests that start them, so they must not run on a
// request-scoped context.
func NewTracker(ctx context.Context, invoices InvoiceRepository, notifier Notifier) *Tracker {
	return &Tracker{
		ctx:      ctx,
		invoices: invoices,
		notifier: notifier,
		active:   make(map[string]struct{}),
	}
}

// Watch subscribes to the invoice's receive stream and spawns the monitoring
// goroutine. Watching an invoice that already has a live subscription is a
// no-op. A subscription failure leaves the invoice untouched; it stays
// Pending and is picked up by the next recovery pass.
func (t *Tracker) Watch(ctx context.Context, backend LightningBackend, invoice domain.Invoice) error {
	if invoice.State != domain.InvoiceStatePending {
		return nil
	}

	t.mu.Lock()
	if _, ok := t.active[invoice.OperationID]; ok {
		t.mu.Unlock()
		slog.DebugContext(
			ctx, "invoice already watched",
			slog.String("opID", invoice.OperationID),
			slog.String("module", "tracker"),
		)
		return nil
	}
	t.active[invoice.OperationID] = struct{}{}
	t.mu.Unlock()

	// The subscription runs on the tracker's root context: it must outlive
	// the request that started it.
	updates, err := backend.SubscribeReceive(t.ctx, invoice.OperationID)
	if err != nil {
		t.release(invoice.OperationID)
		return errors.Wrap(err, "failed to subscribe to invoice")
	}

	t.wg.Add(1)
	go t.run(invoice, updates)

	return nil
}

// Watching reports whether the invoice currently has a live subscription.
func (t *Tracker) Watching(opID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[opID]
	return ok
}

// ActiveCount returns the number of live subscriptions.
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// Wait blocks until every tracker goroutine has finished. Shutdown does not
// need to drain trackers (recovery re-derives pending work), but callers get
// a supervision point.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

func (t *Tracker) release(opID string) {
	t.mu.Lock()
	delete(t.active, opID)
	t.mu.Unlock()
}

func (t *Tracker) run(invoice domain.Invoice, updates <-chan domain.PaymentUpdate) {
	defer t.wg.Done()
	defer t.release(invoice.OperationID)

	slog.Info(
		"monitoring invoice",
		slog.String("opID", invoice.OperationID),
		slog.String("federation", invoice.FederationID),
		slog.String("module", "tracker"),
	)

	for update := range updates {
		switch update.Status {
		case domain.PaymentStatusCanceled:
			slog.Error(
				"invoice canceled",
				slog.String("opID", invoice.OperationID),
				slog.String("reason", update.Reason),
				slog.String("module", "tracker"),
			)
			// A failed write is logged and the tracker stops; the invoice
			// stays Pending until the next recovery pass.
			if err := t.invoices.UpdateState(t.ctx, invoice.ID, domain.InvoiceStateCancelled); err != nil {
				slog.Error(
					"failed to persist cancellation",
					slog.String("opID", invoice.OperationID),
					slog.String("error", err.Error()),
					slog.String("module", "tracker"),
				)
			}
			return

		case domain.PaymentStatusClaimed:
			if err := t.invoices.UpdateState(t.ctx, invoice.ID, domain.InvoiceStateSettled); err != nil {
				slog.Error(
					"failed to persist settlement",
					slog.String("opID", invoice.OperationID),
					slog.String("error", err.Error()),
					slog.String("module", "tracker"),
				)
				return
			}

			invoice.State = domain.InvoiceStateSettled
			if err := t.notifier.Notify(t.ctx, invoice); err != nil {
				slog.Error(
					"failed to notify settlement",
					slog.String("opID", invoice.OperationID),
					slog.String("error", err.Error()),
					slog.String("module", "tracker"),
				)
			}

			slog.Info(
				"invoice claimed",
				slog.String("opID", invoice.OperationID),
				slog.String("module", "tracker"),
			)
			return

		default:
			// Intermediate state, keep waiting.
		}
	}

	// Stream closed without a terminal update (transport loss). The invoice
	// remains Pending and is re-attached on the next recovery pass.
	slog.Debug(
		"update stream closed before terminal state",
		slog.String("opID", invoice.OperationID),
		slog.String("module", "tracker"),
	)
}
