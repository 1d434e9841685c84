package steamauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tradegate/steamauth/core"
)

// TradeOffer is the subset of a provider trade offer this client acts
// on.
type TradeOffer struct {
	TradeOfferID   string               `json:"tradeofferid"`
	AccountIDOther int64                `json:"accountid_other"`
	Message        string               `json:"message"`
	ExpirationTime int64                `json:"expiration_time"`
	State          core.TradeOfferState `json:"trade_offer_state"`
	IsOurOffer     bool                 `json:"is_our_offer"`
	TimeCreated    int64                `json:"time_created"`
	TimeUpdated    int64                `json:"time_updated"`
}

// TradeOffers groups active offers by direction.
type TradeOffers struct {
	Received []TradeOffer
	Sent     []TradeOffer
}

// GetTradeOffersSummary returns the provider's pending offer counters.
func (c *Client) GetTradeOffersSummary(ctx context.Context) (map[string]interface{}, error) {
	body, err := c.apiCall(ctx, http.MethodGet, "IEconService", "GetTradeOffersSummary", "v1", url.Values{
		"key": {c.apiKey},
	})
	if err != nil {
		return nil, err
	}

	var summary map[string]interface{}
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// GetTradeOffers lists sent and received offers, filtered down to the
// active ones.
func (c *Client) GetTradeOffers(ctx context.Context) (TradeOffers, error) {
	body, err := c.apiCall(ctx, http.MethodGet, "IEconService", "GetTradeOffers", "v1", url.Values{
		"key":                    {c.apiKey},
		"get_sent_offers":        {"1"},
		"get_received_offers":    {"1"},
		"get_descriptions":       {"1"},
		"language":               {"english"},
		"active_only":            {"1"},
		"historical_only":        {"0"},
		"time_historical_cutoff": {""},
	})
	if err != nil {
		return TradeOffers{}, err
	}

	var response struct {
		Response struct {
			Received []TradeOffer `json:"trade_offers_received"`
			Sent     []TradeOffer `json:"trade_offers_sent"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return TradeOffers{}, err
	}

	return TradeOffers{
		Received: filterActiveOffers(response.Response.Received),
		Sent:     filterActiveOffers(response.Response.Sent),
	}, nil
}

// filterActiveOffers drops every offer that is not in the active state.
func filterActiveOffers(offers []TradeOffer) []TradeOffer {
	var active []TradeOffer
	for _, offer := range offers {
		if offer.State == core.TradeOfferActive {
			active = append(active, offer)
		}
	}
	return active
}

// GetTradeOffer fetches a single offer by id.
func (c *Client) GetTradeOffer(ctx context.Context, tradeOfferID string) (TradeOffer, error) {
	body, err := c.apiCall(ctx, http.MethodGet, "IEconService", "GetTradeOffer", "v1", url.Values{
		"key":          {c.apiKey},
		"tradeofferid": {tradeOfferID},
		"language":     {"english"},
	})
	if err != nil {
		return TradeOffer{}, err
	}

	var response struct {
		Response struct {
			Offer TradeOffer `json:"offer"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return TradeOffer{}, err
	}
	return response.Response.Offer, nil
}

// GetTradeHistory returns completed trades. An ordinary blocking call
// like every other wrapper here.
func (c *Client) GetTradeHistory(ctx context.Context, maxTrades int) (map[string]interface{}, error) {
	body, err := c.apiCall(ctx, http.MethodGet, "IEconService", "GetTradeHistory", "v1", url.Values{
		"key":              {c.apiKey},
		"max_trades":       {strconv.Itoa(maxTrades)},
		"get_descriptions": {"true"},
		"navigating_back":  {"true"},
		"include_failed":   {"true"},
		"include_total":    {"true"},
	})
	if err != nil {
		return nil, err
	}

	var history map[string]interface{}
	if err := json.Unmarshal(body, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// GetTradeReceipt scrapes the item payloads from a completed trade's
// receipt page.
func (c *Client) GetTradeReceipt(ctx context.Context, tradeID string) ([]map[string]interface{}, error) {
	if err := c.checkSession(); err != nil {
		return nil, err
	}

	resp, err := c.get(ctx, c.communityURL+"/trade/"+tradeID+"/receipt", nil, nil)
	if err != nil {
		return nil, err
	}
	body, err := drainBody(resp)
	if err != nil {
		return nil, err
	}

	var items []map[string]interface{}
	for _, raw := range textsBetween(string(body), "oItem = ", ";\r\n\toItem") {
		var item map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// AcceptTradeOffer accepts a received offer and, when the provider asks
// for a mobile confirmation, resolves it through the confirmation
// engine.
func (c *Client) AcceptTradeOffer(ctx context.Context, tradeOfferID string) (map[string]interface{}, error) {
	if err := c.checkSession(); err != nil {
		return nil, err
	}

	offer, err := c.GetTradeOffer(ctx, tradeOfferID)
	if err != nil {
		return nil, err
	}
	if offer.State != core.TradeOfferActive {
		return nil, fmt.Errorf("invalid trade offer state: %d", offer.State)
	}

	partnerID, err := c.fetchTradePartnerID(ctx, tradeOfferID)
	if err != nil {
		return nil, err
	}
	sessionID, err := c.SessionID()
	if err != nil {
		return nil, err
	}

	offerURL := c.communityURL + "/tradeoffer/" + tradeOfferID
	data := url.Values{
		"sessionid":    {sessionID},
		"tradeofferid": {tradeOfferID},
		"serverid":     {"1"},
		"partner":      {partnerID},
		"captcha":      {""},
	}
	resp, err := c.postForm(ctx, offerURL+"/accept", data, map[string]string{"Referer": offerURL})
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := decodeJSON(resp, &result); err != nil {
		return nil, err
	}

	if needsConfirmation(result) {
		confirmed, err := c.ConfirmTradeOffer(ctx, tradeOfferID)
		if err != nil {
			return nil, err
		}
		result["confirmation_status"] = confirmed.Status
	}
	return result, nil
}

// fetchTradePartnerID scrapes the partner's account id off the offer
// page and detects the new-device trade hold.
func (c *Client) fetchTradePartnerID(ctx context.Context, tradeOfferID string) (string, error) {
	resp, err := c.get(ctx, c.communityURL+"/tradeoffer/"+tradeOfferID, nil, nil)
	if err != nil {
		return "", err
	}
	body, err := drainBody(resp)
	if err != nil {
		return "", err
	}

	page := string(body)
	if strings.Contains(page, "You have logged in from a new device. In order to protect the items") {
		return "", ErrSevenDaysHold
	}
	return textBetween(page, "var g_ulTradePartnerSteamID = '", "';")
}

// DeclineTradeOffer declines a received offer.
func (c *Client) DeclineTradeOffer(ctx context.Context, tradeOfferID string) (map[string]interface{}, error) {
	return c.tradeOfferAction(ctx, "DeclineTradeOffer", tradeOfferID)
}

// CancelTradeOffer cancels a sent offer.
func (c *Client) CancelTradeOffer(ctx context.Context, tradeOfferID string) (map[string]interface{}, error) {
	return c.tradeOfferAction(ctx, "CancelTradeOffer", tradeOfferID)
}

func (c *Client) tradeOfferAction(ctx context.Context, apiMethod, tradeOfferID string) (map[string]interface{}, error) {
	body, err := c.apiCall(ctx, http.MethodPost, "IEconService", apiMethod, "v1", url.Values{
		"key":          {c.apiKey},
		"tradeofferid": {tradeOfferID},
	})
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// MakeOffer creates a trade offer against a partner and resolves the
// mobile confirmation when the provider requires one.
func (c *Client) MakeOffer(ctx context.Context, itemsFromMe, itemsFromThem []core.Asset, partnerSteamID, message string) (map[string]interface{}, error) {
	if err := c.checkSession(); err != nil {
		return nil, err
	}

	partnerAccountID, err := steamIDToAccountID(partnerSteamID)
	if err != nil {
		return nil, err
	}

	referer := c.communityURL + "/tradeoffer/new/?partner=" + partnerAccountID
	return c.sendOffer(ctx, itemsFromMe, itemsFromThem, partnerSteamID, message, "{}", referer)
}

// MakeOfferWithURL creates a trade offer through a trade URL, carrying
// the access token so the offer reaches accounts outside the friend
// list.
func (c *Client) MakeOfferWithURL(ctx context.Context, itemsFromMe, itemsFromThem []core.Asset, tradeOfferURL, message string) (map[string]interface{}, error) {
	if err := c.checkSession(); err != nil {
		return nil, err
	}

	parsed, err := url.Parse(tradeOfferURL)
	if err != nil {
		return nil, fmt.Errorf("invalid trade offer url %q: %w", tradeOfferURL, err)
	}
	token := parsed.Query().Get("token")
	partnerAccountID := parsed.Query().Get("partner")
	if token == "" || partnerAccountID == "" {
		return nil, fmt.Errorf("trade offer url %q carries no partner/token", tradeOfferURL)
	}
	partnerSteamID, err := accountIDToSteamID(partnerAccountID)
	if err != nil {
		return nil, err
	}

	createParams, err := json.Marshal(map[string]string{"trade_offer_access_token": token})
	if err != nil {
		return nil, err
	}

	referer := c.communityURL + parsed.Path
	return c.sendOffer(ctx, itemsFromMe, itemsFromThem, partnerSteamID, message, string(createParams), referer)
}

// sendOffer submits a built offer to the new-offer endpoint and resolves
// the mobile confirmation when the provider requires one.
func (c *Client) sendOffer(ctx context.Context, itemsFromMe, itemsFromThem []core.Asset, partnerSteamID, message, createParams, referer string) (map[string]interface{}, error) {
	sessionID, err := c.SessionID()
	if err != nil {
		return nil, err
	}

	offer, err := json.Marshal(newOfferPayload(itemsFromMe, itemsFromThem))
	if err != nil {
		return nil, err
	}

	data := url.Values{
		"sessionid":                 {sessionID},
		"serverid":                  {"1"},
		"partner":                   {partnerSteamID},
		"tradeoffermessage":         {message},
		"json_tradeoffer":           {string(offer)},
		"captcha":                   {""},
		"trade_offer_create_params": {createParams},
	}
	headers := map[string]string{
		"Referer": referer,
		"Origin":  c.communityURL,
	}
	resp, err := c.postForm(ctx, c.communityURL+"/tradeoffer/new/send", data, headers)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := decodeJSON(resp, &result); err != nil {
		return nil, err
	}

	if needsConfirmation(result) {
		offerID, _ := result["tradeofferid"].(string)
		confirmed, err := c.ConfirmTradeOffer(ctx, offerID)
		if err != nil {
			return nil, err
		}
		result["confirmation_status"] = confirmed.Status
	}
	return result, nil
}

// IsTradeLinkCorrect reports whether a trade link belongs to the given
// account by scraping the partner id off the linked offer page.
func (c *Client) IsTradeLinkCorrect(ctx context.Context, tradeLink, steamID string) (bool, error) {
	if err := c.checkSession(); err != nil {
		return false, err
	}

	parsed, err := url.Parse(tradeLink)
	if err != nil {
		return false, fmt.Errorf("invalid trade link %q: %w", tradeLink, err)
	}
	headers := map[string]string{
		"Referer": c.communityURL + parsed.Path,
		"Origin":  c.communityURL,
	}
	resp, err := c.get(ctx, tradeLink, nil, headers)
	if err != nil {
		return false, err
	}
	body, err := drainBody(resp)
	if err != nil {
		return false, err
	}

	theirSteamID, err := textBetween(string(body), "var g_ulTradePartnerSteamID = '", "';")
	if err != nil {
		return false, fmt.Errorf("unexpected trade link page shape: %w", err)
	}
	return theirSteamID == steamID, nil
}

// GetProfile returns the public profile summary of an account.
func (c *Client) GetProfile(ctx context.Context, steamID string) (map[string]interface{}, error) {
	body, err := c.apiCall(ctx, http.MethodGet, "ISteamUser", "GetPlayerSummaries", "v0002", url.Values{
		"key":      {c.apiKey},
		"steamids": {steamID},
	})
	if err != nil {
		return nil, err
	}

	var response struct {
		Response struct {
			Players []map[string]interface{} `json:"players"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}
	if len(response.Response.Players) == 0 {
		return nil, fmt.Errorf("no profile returned for %s", steamID)
	}
	return response.Response.Players[0], nil
}

// newOfferPayload builds the wire shape of a new trade offer.
func newOfferPayload(itemsFromMe, itemsFromThem []core.Asset) map[string]interface{} {
	side := func(items []core.Asset) map[string]interface{} {
		assets := make([]map[string]interface{}, 0, len(items))
		for _, item := range items {
			assets = append(assets, item.ToMap())
		}
		return map[string]interface{}{
			"assets":   assets,
			"currency": []interface{}{},
			"ready":    false,
		}
	}
	return map[string]interface{}{
		"newversion": true,
		"version":    4,
		"me":         side(itemsFromMe),
		"them":       side(itemsFromThem),
	}
}

// GetEscrowDuration scrapes the escrow hold in days off a trade offer
// page; the longer of the two parties' holds applies.
func (c *Client) GetEscrowDuration(ctx context.Context, tradeOfferURL string) (int, error) {
	if err := c.checkSession(); err != nil {
		return 0, err
	}

	headers := map[string]string{
		"Referer": tradeOfferURL,
		"Origin":  c.communityURL,
	}
	resp, err := c.get(ctx, tradeOfferURL, nil, headers)
	if err != nil {
		return 0, err
	}
	body, err := drainBody(resp)
	if err != nil {
		return 0, err
	}

	mine, err := textBetween(string(body), "var g_daysMyEscrow = ", ";")
	if err != nil {
		return 0, err
	}
	theirs, err := textBetween(string(body), "var g_daysTheirEscrow = ", ";")
	if err != nil {
		return 0, err
	}

	myDays, err := strconv.Atoi(strings.TrimSpace(mine))
	if err != nil {
		return 0, err
	}
	theirDays, err := strconv.Atoi(strings.TrimSpace(theirs))
	if err != nil {
		return 0, err
	}
	if theirDays > myDays {
		return theirDays, nil
	}
	return myDays, nil
}

// needsConfirmation reports whether a provider response asks for a
// mobile confirmation.
func needsConfirmation(result map[string]interface{}) bool {
	needs, _ := result["needs_mobile_confirmation"].(bool)
	return needs
}
