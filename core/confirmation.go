package core

// Confirmation represents one pending mobile confirmation entry. The
// tokens are reissued by the provider on every page load, so a
// Confirmation is only valid within the discovery call that fetched it.
type Confirmation struct {
	ID     string // numeric id suffix of the list entry
	ConfID string // data-confid tamper token
	Key    string // data-key tamper token
}

// ConfirmationKind selects which business identifier a confirmation
// detail page is matched against.
type ConfirmationKind int

const (
	// ConfirmationTradeOffer matches against a pending trade offer id
	ConfirmationTradeOffer ConfirmationKind = iota

	// ConfirmationSellListing matches against a market listing asset id
	ConfirmationSellListing
)
