package domain

// PaymentStatus is one observation from a federation backend's receive
// stream for a single operation.
type PaymentStatus int

const (
	PaymentStatusCreated PaymentStatus = iota
	PaymentStatusWaitingForPayment
	PaymentStatusFunded
	PaymentStatusAwaitingFunds
	PaymentStatusClaimed
	PaymentStatusCanceled
)

func (s PaymentStatus) String() string {
	switch s {
	case PaymentStatusCreated:
		return "created"
	case PaymentStatusWaitingForPayment:
		return "waiting-for-payment"
	case PaymentStatusFunded:
		return "funded"
	case PaymentStatusAwaitingFunds:
		return "awaiting-funds"
	case PaymentStatusClaimed:
		return "claimed"
	case PaymentStatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the backend pushes no further updates after s.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusClaimed || s == PaymentStatusCanceled
}

// PaymentUpdate is one element of a receive stream. Reason is set only for
// canceled updates.
type PaymentUpdate struct {
	Status PaymentStatus
	Reason string
}

// InviteDescriptor identifies a federation and how to reach its gateway.
type InviteDescriptor struct {
	FederationID string `yaml:"federationID"`
	Endpoint     string `yaml:"endpoint"`
}

// FederationInfo is the metadata a federation gateway reports about itself.
type FederationInfo struct {
	FederationID string `json:"federationId"`
	Name         string `json:"name"`
	BlockHeight  int64  `json:"blockHeight"`
}
