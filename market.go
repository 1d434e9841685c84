package steamauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/tradegate/steamauth/core"
)

// PriceOverview is the provider's market price summary for an item.
type PriceOverview struct {
	Success     bool   `json:"success"`
	LowestPrice string `json:"lowest_price"`
	MedianPrice string `json:"median_price"`
	Volume      string `json:"volume"`
}

// MarketListings holds the authenticated user's active sell listings
// with the raw asset descriptions the market page embeds.
type MarketListings struct {
	Assets      map[string]interface{}
	Showing     int
	Total       int
	ResultsHTML string
}

// FetchPrice returns the price overview for an item. Does not require a
// session, but is rate limited by the provider.
func (c *Client) FetchPrice(ctx context.Context, itemHashName string, game core.GameOptions, currency core.Currency) (PriceOverview, error) {
	params := url.Values{
		"country":          {"PL"},
		"currency":         {strconv.Itoa(int(currency))},
		"appid":            {game.AppID},
		"market_hash_name": {itemHashName},
	}
	resp, err := c.get(ctx, c.communityURL+"/market/priceoverview/", params, nil)
	if err != nil {
		return PriceOverview{}, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return PriceOverview{}, ErrTooManyRequests
	}

	var overview PriceOverview
	if err := decodeJSON(resp, &overview); err != nil {
		return PriceOverview{}, err
	}
	return overview, nil
}

// GetMyMarketListings returns the active sell listings, following the
// pagination endpoint when the first page shows fewer listings than the
// account has.
func (c *Client) GetMyMarketListings(ctx context.Context) (MarketListings, error) {
	if err := c.checkSession(); err != nil {
		return MarketListings{}, err
	}

	resp, err := c.get(ctx, c.communityURL+"/market", nil, nil)
	if err != nil {
		return MarketListings{}, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return MarketListings{}, fmt.Errorf("market page returned status %d", resp.StatusCode)
	}
	body, err := drainBody(resp)
	if err != nil {
		return MarketListings{}, err
	}
	page := string(body)

	rawAssets, err := textBetween(page, "var g_rgAssets = ", ";\r\n")
	if err != nil {
		return MarketListings{}, fmt.Errorf("unexpected market page shape: %w", err)
	}
	listings := MarketListings{}
	if err := json.Unmarshal([]byte(rawAssets), &listings.Assets); err != nil {
		return MarketListings{}, err
	}

	showing, total, err := listingCounts(page)
	if err != nil {
		return MarketListings{}, err
	}
	listings.Showing = showing
	listings.Total = total

	if total > showing {
		endpoint := fmt.Sprintf("%s/market/mylistings/render/?query=&start=%d&count=-1", c.communityURL, showing)
		pageResp, err := c.get(ctx, endpoint, nil, nil)
		if err != nil {
			return MarketListings{}, err
		}
		if pageResp.StatusCode != http.StatusOK {
			pageResp.Body.Close()
			return MarketListings{}, fmt.Errorf("market pagination returned status %d", pageResp.StatusCode)
		}

		// Read the pagination response, not the first page again
		var paged struct {
			ResultsHTML string                 `json:"results_html"`
			Assets      map[string]interface{} `json:"assets"`
		}
		if err := decodeJSON(pageResp, &paged); err != nil {
			return MarketListings{}, err
		}
		listings.ResultsHTML = paged.ResultsHTML
		for key, value := range paged.Assets {
			listings.Assets[key] = value
		}
	}

	return listings, nil
}

// listingCounts extracts the showing/total counters from the market
// page, when present.
func listingCounts(page string) (showing, total int, err error) {
	const endMarker = `<span id="tabContentsMyActiveMarketListings_end">`
	const totalMarker = `<span id="tabContentsMyActiveMarketListings_total">`

	rawShowing, err := textBetween(page, endMarker, "</span>")
	if err != nil {
		// No counters at all means a single page of listings
		return 0, 0, nil
	}
	rawTotal, err := textBetween(page, totalMarker, "</span>")
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected market page shape: %w", err)
	}

	showing, err = strconv.Atoi(rawShowing)
	if err != nil {
		return 0, 0, err
	}
	total, err = strconv.Atoi(rawTotal)
	if err != nil {
		return 0, 0, err
	}
	return showing, total, nil
}

// CreateSellOrder lists an item for sale and resolves the mobile
// confirmation when required.
func (c *Client) CreateSellOrder(ctx context.Context, assetID string, game core.GameOptions, moneyToReceive string) (map[string]interface{}, error) {
	if err := c.checkSession(); err != nil {
		return nil, err
	}

	sessionID, err := c.SessionID()
	if err != nil {
		return nil, err
	}
	data := url.Values{
		"assetid":   {assetID},
		"sessionid": {sessionID},
		"contextid": {game.ContextID},
		"appid":     {game.AppID},
		"amount":    {"1"},
		"price":     {moneyToReceive},
	}
	headers := map[string]string{
		"Referer": fmt.Sprintf("%s/profiles/%s/inventory", c.communityURL, c.secrets.SteamID),
	}
	resp, err := c.postForm(ctx, c.communityURL+"/market/sellitem/", data, headers)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := decodeJSON(resp, &result); err != nil {
		return nil, err
	}

	if needsConfirmation(result) {
		confirmed, err := c.ConfirmSellListing(ctx, assetID)
		if err != nil {
			return nil, err
		}
		result["confirmation_status"] = confirmed.Status
	}
	return result, nil
}

// CreateBuyOrder places a buy order; the total is exact decimal money
// math, never floats.
func (c *Client) CreateBuyOrder(ctx context.Context, marketName, priceSingleItem string, quantity int, game core.GameOptions, currency core.Currency) (map[string]interface{}, error) {
	if err := c.checkSession(); err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(priceSingleItem)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", priceSingleItem, err)
	}
	total := price.Mul(decimal.NewFromInt(int64(quantity)))

	sessionID, err := c.SessionID()
	if err != nil {
		return nil, err
	}
	data := url.Values{
		"sessionid":        {sessionID},
		"currency":         {strconv.Itoa(int(currency))},
		"appid":            {game.AppID},
		"market_hash_name": {marketName},
		"price_total":      {total.String()},
		"quantity":         {strconv.Itoa(quantity)},
	}
	headers := map[string]string{
		"Referer": fmt.Sprintf("%s/market/listings/%s/%s", c.communityURL, game.AppID, marketName),
	}
	resp, err := c.postForm(ctx, c.communityURL+"/market/createbuyorder/", data, headers)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := decodeJSON(resp, &result); err != nil {
		return nil, err
	}
	if success, _ := result["success"].(float64); success != 1 {
		return nil, fmt.Errorf("buy order rejected, success: %v", result["success"])
	}
	return result, nil
}

// CancelSellOrder removes an active sell listing.
func (c *Client) CancelSellOrder(ctx context.Context, sellListingID string) error {
	if err := c.checkSession(); err != nil {
		return err
	}

	sessionID, err := c.SessionID()
	if err != nil {
		return err
	}
	data := url.Values{"sessionid": {sessionID}}
	headers := map[string]string{"Referer": c.communityURL + "/market/"}
	resp, err := c.postForm(ctx, c.communityURL+"/market/removelisting/"+sellListingID, data, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remove listing returned status %d", resp.StatusCode)
	}
	return nil
}

// CancelBuyOrder cancels an active buy order.
func (c *Client) CancelBuyOrder(ctx context.Context, buyOrderID string) (map[string]interface{}, error) {
	if err := c.checkSession(); err != nil {
		return nil, err
	}

	sessionID, err := c.SessionID()
	if err != nil {
		return nil, err
	}
	data := url.Values{
		"sessionid":   {sessionID},
		"buy_orderid": {buyOrderID},
	}
	headers := map[string]string{"Referer": c.communityURL + "/market"}
	resp, err := c.postForm(ctx, c.communityURL+"/market/cancelbuyorder/", data, headers)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := decodeJSON(resp, &result); err != nil {
		return nil, err
	}
	if success, _ := result["success"].(float64); success != 1 {
		return nil, fmt.Errorf("cancel buy order rejected, success: %v", result["success"])
	}
	return result, nil
}
