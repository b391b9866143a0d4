package domain

import "fmt"

// InvoiceState is the lifecycle state of an issued invoice. The integer
// values are persisted, so they must stay stable.
type InvoiceState int

const (
	InvoiceStatePending   InvoiceState = 0
	InvoiceStateSettled   InvoiceState = 1
	InvoiceStateCancelled InvoiceState = 2
)

func (s InvoiceState) String() string {
	switch s {
	case InvoiceStatePending:
		return "pending"
	case InvoiceStateSettled:
		return "settled"
	case InvoiceStateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Terminal reports whether no further transition is allowed from s.
func (s InvoiceState) Terminal() bool {
	return s == InvoiceStateSettled || s == InvoiceStateCancelled
}

// CanTransition reports whether from→to is a legal lifecycle edge.
// The only legal edges are Pending→Settled and Pending→Cancelled.
func CanTransition(from, to InvoiceState) bool {
	return from == InvoiceStatePending && to.Terminal()
}

// Invoice is one issued lightning invoice. OperationID is assigned by the
// federation backend and globally unique. State is the only field that
// changes after creation.
type Invoice struct {
	ID           int
	OperationID  string
	FederationID string
	UserID       int
	Bolt11       string
	Amount       int64
	Tweak        int64
	State        InvoiceState
}
