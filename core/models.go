package core

// GameOptions identifies an app/context pair for inventory and market
// operations.
type GameOptions struct {
	AppID     string
	ContextID string
}

var (
	GameCSGO  = GameOptions{AppID: "730", ContextID: "2"}
	GameTF2   = GameOptions{AppID: "440", ContextID: "2"}
	GameDota2 = GameOptions{AppID: "570", ContextID: "2"}
)

// Currency is the wallet currency code used by market endpoints.
type Currency int

const (
	CurrencyUSD Currency = 1
	CurrencyGBP Currency = 2
	CurrencyEUR Currency = 3
	CurrencyCHF Currency = 4
)

// TradeOfferState mirrors the provider's trade offer state enum.
type TradeOfferState int

const (
	TradeOfferInvalid              TradeOfferState = 1
	TradeOfferActive               TradeOfferState = 2
	TradeOfferAccepted             TradeOfferState = 3
	TradeOfferCountered            TradeOfferState = 4
	TradeOfferExpired              TradeOfferState = 5
	TradeOfferCanceled             TradeOfferState = 6
	TradeOfferDeclined             TradeOfferState = 7
	TradeOfferInvalidItems         TradeOfferState = 8
	TradeOfferConfirmationNeed     TradeOfferState = 9
	TradeOfferCanceledBySecondFact TradeOfferState = 10
	TradeOfferStateInEscrow        TradeOfferState = 11
)

// Asset identifies a single inventory item in a trade offer.
type Asset struct {
	AssetID string
	Game    GameOptions
	Amount  int
}

// ToMap renders the asset in the wire shape the trade offer endpoint
// expects.
func (a Asset) ToMap() map[string]interface{} {
	amount := a.Amount
	if amount == 0 {
		amount = 1
	}
	return map[string]interface{}{
		"appid":     a.Game.AppID,
		"contextid": a.Game.ContextID,
		"amount":    amount,
		"assetid":   a.AssetID,
	}
}
