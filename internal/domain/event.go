package domain

// SettlementEvent is published when an invoice reaches Settled. Consumers
// (the realtime websocket surface, external relays) receive it over the
// signal channel.
type SettlementEvent struct {
	OperationID  string `json:"opID"`
	FederationID string `json:"federationID"`
	UserID       int    `json:"userID"`
	Amount       int64  `json:"amount"`
	State        string `json:"state"`
}
