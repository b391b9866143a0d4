package domain

// User is a registered lightning-address owner. FederationIDs is ordered,
// the first entry is the user's primary federation. LastTweak is the highest
// tweak index ever allocated for the user and only ever grows.
type User struct {
	ID            int
	Name          string
	Pubkey        string
	Relays        []string
	FederationIDs []string
	LastTweak     int64
}

// PrimaryFederation returns the user's primary federation id, or "" when the
// user has none configured.
func (u User) PrimaryFederation() string {
	if len(u.FederationIDs) == 0 {
		return ""
	}
	return u.FederationIDs[0]
}
