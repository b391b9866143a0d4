package usecase

import (
	"context"
	"log/slog"

	"github.com/totegamma/lngateway/internal/domain"
)

// RecoveryUsecase re-attaches lifecycle subscriptions for invoices left
// Pending by a previous run. It runs once at boot, before the service is
// considered ready.
type RecoveryUsecase struct {
	invoices  InvoiceRepository
	directory Directory
	tracker   *Tracker
}

func NewRecoveryUsecase(invoices InvoiceRepository, directory Directory, tracker *Tracker) *RecoveryUsecase {
	return &RecoveryUsecase{
		invoices:  invoices,
		directory: directory,
		tracker:   tracker,
	}
}

// RecoverPending loads every Pending invoice, partitions them by federation
// and re-subscribes each one. Failures are contained: an unregistered
// federation skips its whole partition, an individual subscription failure
// skips that invoice, and both stay Pending for the next restart. The
// returned count is the number of subscriptions created by this call.
func (uc *RecoveryUsecase) RecoverPending(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Recovery.Usecase.RecoverPending")
	defer span.End()

	pending, err := uc.invoices.ListByState(ctx, domain.InvoiceStatePending)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	partitions := make(map[string][]domain.Invoice)
	for _, invoice := range pending {
		partitions[invoice.FederationID] = append(partitions[invoice.FederationID], invoice)
	}

	count := 0
	for federationID, invoices := range partitions {
		backend, err := uc.directory.Lookup(ctx, federationID)
		if err != nil {
			slog.ErrorContext(
				ctx, "skipping federation partition",
				slog.String("federation", federationID),
				slog.Int("invoices", len(invoices)),
				slog.String("error", err.Error()),
				slog.String("module", "recovery"),
			)
			continue
		}

		slog.InfoContext(
			ctx, "recovering pending invoices",
			slog.String("federation", federationID),
			slog.Int("invoices", len(invoices)),
			slog.String("module", "recovery"),
		)

		for _, invoice := range invoices {
			if invoice.OperationID == "" {
				slog.ErrorContext(
					ctx, "skipping invoice",
					slog.Int("id", invoice.ID),
					slog.String("error", domain.ErrMalformedOperationID.Error()),
					slog.String("module", "recovery"),
				)
				continue
			}

			if uc.tracker.Watching(invoice.OperationID) {
				continue
			}

			if err := uc.tracker.Watch(ctx, backend, invoice); err != nil {
				slog.ErrorContext(
					ctx, "failed to re-subscribe invoice",
					slog.String("opID", invoice.OperationID),
					slog.String("error", err.Error()),
					slog.String("module", "recovery"),
				)
				continue
			}
			count++
		}
	}

	return count, nil
}
