package usecase

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/lngateway/internal/domain"
)

var tracer = otel.Tracer("invoice")

const (
	// maxTweakAttempts bounds the duplicate-tweak retry loop; each retry is
	// a full round-trip to the federation.
	maxTweakAttempts = 64

	defaultDescription = "lightning address payment"
)

// InvoiceUsecase issues invoices and exposes the read side of the store.
type InvoiceUsecase struct {
	users     UserRepository
	invoices  InvoiceRepository
	directory Directory
	tracker   *Tracker
}

func NewInvoiceUsecase(
	users UserRepository,
	invoices InvoiceRepository,
	directory Directory,
	tracker *Tracker,
) *InvoiceUsecase {
	return &InvoiceUsecase{
		users:     users,
		invoices:  invoices,
		directory: directory,
		tracker:   tracker,
	}
}

// Issue creates a new invoice for the named user. Tweak allocation is
// serialized through the user store: every attempt claims a fresh index
// atomically, so concurrent calls for one user can never pick the same
// tweak, and a claimed index is never handed out again even when the
// backend call fails afterwards.
func (uc *InvoiceUsecase) Issue(ctx context.Context, username string, amountMsat int64, comment string) (domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "Invoice.Usecase.Issue")
	defer span.End()

	user, err := uc.users.GetByName(ctx, username)
	if err != nil {
		span.RecordError(err)
		return domain.Invoice{}, err
	}

	federationID, backend, err := uc.directory.Resolve(ctx, user)
	if err != nil {
		span.RecordError(err)
		return domain.Invoice{}, err
	}

	description := comment
	if description == "" {
		description = defaultDescription
	}

	var (
		opID   string
		bolt11 string
		tweak  int64
	)
	for attempt := 0; ; attempt++ {
		if attempt >= maxTweakAttempts {
			span.RecordError(domain.ErrTweakExhausted)
			return domain.Invoice{}, domain.ErrTweakExhausted
		}

		tweak, err = uc.users.ClaimNextTweak(ctx, user.ID)
		if err != nil {
			span.RecordError(errors.Wrap(err, "failed to claim tweak"))
			return domain.Invoice{}, err
		}

		opID, bolt11, err = backend.CreateTweakedInvoice(ctx, user.Pubkey, uint64(tweak), amountMsat, description)
		if errors.Is(err, domain.ErrDuplicateTweak) {
			slog.DebugContext(
				ctx, "tweak collision, claiming next index",
				slog.String("user", user.Name),
				slog.Int64("tweak", tweak),
				slog.String("module", "invoice"),
			)
			continue
		}
		if err != nil {
			span.RecordError(errors.Wrap(err, "invoice creation failed"))
			return domain.Invoice{}, err
		}
		break
	}

	invoice, err := uc.invoices.Create(ctx, domain.Invoice{
		OperationID:  opID,
		FederationID: federationID,
		UserID:       user.ID,
		Bolt11:       bolt11,
		Amount:       amountMsat,
		Tweak:        tweak,
		State:        domain.InvoiceStatePending,
	})
	if err != nil {
		span.RecordError(errors.Wrap(err, "failed to persist invoice"))
		return domain.Invoice{}, err
	}

	// Subscription failure is contained: the invoice is durable and Pending,
	// and the next recovery pass re-attaches it.
	if err := uc.tracker.Watch(ctx, backend, invoice); err != nil {
		slog.ErrorContext(
			ctx, "failed to watch new invoice",
			slog.String("opID", invoice.OperationID),
			slog.String("error", err.Error()),
			slog.String("module", "invoice"),
		)
	}

	slog.InfoContext(
		ctx, "invoice issued",
		slog.String("user", user.Name),
		slog.String("opID", invoice.OperationID),
		slog.Int64("amount", amountMsat),
		slog.Int64("tweak", tweak),
		slog.String("module", "invoice"),
	)

	return invoice, nil
}

func (uc *InvoiceUsecase) GetByOperationID(ctx context.Context, opID string) (domain.Invoice, error) {
	return uc.invoices.GetByOperationID(ctx, opID)
}

func (uc *InvoiceUsecase) ListByState(ctx context.Context, state domain.InvoiceState) ([]domain.Invoice, error) {
	return uc.invoices.ListByState(ctx, state)
}
