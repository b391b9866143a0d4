package usecase

import (
	"context"

	"github.com/totegamma/lngateway/internal/domain"
)

// LightningBackend is the narrow contract of one federation's payment
// backend. Implementations are shared read-only across trackers and issuer
// calls; only the backend itself mutates federation state.
type LightningBackend interface {
	// FederationID returns the id of the federation this handle talks to.
	FederationID() string

	// CreateTweakedInvoice asks the federation to issue an invoice bound to
	// the key derived from (pubkey, tweak). It returns
	// domain.ErrDuplicateTweak when the derived key is already in use and
	// domain.ErrBackendUnavailable on transport failure.
	CreateTweakedInvoice(ctx context.Context, pubkey string, tweak uint64, amountMsat int64, description string) (opID string, bolt11 string, err error)

	// SubscribeReceive opens the finite, ordered update stream for one
	// operation. The returned channel closes after a terminal update or on
	// transport loss. Unknown operation ids yield domain.ErrNotFound.
	SubscribeReceive(ctx context.Context, opID string) (<-chan domain.PaymentUpdate, error)

	// Info reports the federation's current metadata.
	Info(ctx context.Context) (domain.FederationInfo, error)
}

// Directory resolves users to their primary federation's backend handle.
type Directory interface {
	Resolve(ctx context.Context, user domain.User) (string, LightningBackend, error)
	Lookup(ctx context.Context, federationID string) (LightningBackend, error)
	Register(ctx context.Context, descriptor domain.InviteDescriptor) error
	List(ctx context.Context) []LightningBackend
}

// InvoiceRepository defines the durable invoice store.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice domain.Invoice) (domain.Invoice, error)
	GetByOperationID(ctx context.Context, opID string) (domain.Invoice, error)
	ListByState(ctx context.Context, state domain.InvoiceState) ([]domain.Invoice, error)
	UpdateState(ctx context.Context, id int, state domain.InvoiceState) error
}

// UserRepository defines lookup and tweak allocation for users.
type UserRepository interface {
	Get(ctx context.Context, id int) (domain.User, error)
	GetByName(ctx context.Context, name string) (domain.User, error)
	ClaimNextTweak(ctx context.Context, userID int) (int64, error)
}

// Notifier delivers settlement notifications. Best effort: failures are
// logged by the caller and never roll back a persisted settlement.
type Notifier interface {
	Notify(ctx context.Context, invoice domain.Invoice) error
}
