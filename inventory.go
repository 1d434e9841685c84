package steamauth

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tradegate/steamauth/core"
)

// GetMyInventory fetches the authenticated user's inventory for a game
// and returns the provider JSON as-is; description merging is the
// caller's concern.
func (c *Client) GetMyInventory(ctx context.Context, game core.GameOptions) (map[string]interface{}, error) {
	if err := c.checkSession(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/my/inventory/json/%s/%s", c.communityURL, game.AppID, game.ContextID)
	resp, err := c.get(ctx, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}

	var inventory map[string]interface{}
	if err := decodeJSON(resp, &inventory); err != nil {
		return nil, err
	}
	return inventory, nil
}

// GetPartnerInventory fetches a trade partner's inventory through the
// new-offer endpoint.
func (c *Client) GetPartnerInventory(ctx context.Context, partnerSteamID string, game core.GameOptions) (map[string]interface{}, error) {
	if err := c.checkSession(); err != nil {
		return nil, err
	}

	sessionID, err := c.SessionID()
	if err != nil {
		return nil, err
	}
	partnerAccountID, err := steamIDToAccountID(partnerSteamID)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"sessionid": {sessionID},
		"partner":   {partnerSteamID},
		"appid":     {game.AppID},
		"contextid": {game.ContextID},
	}
	headers := map[string]string{
		"X-Requested-With":    "XMLHttpRequest",
		"Referer":             fmt.Sprintf("%s/tradeoffer/new/?partner=%s", c.communityURL, partnerAccountID),
		"X-Prototype-Version": "1.7",
	}
	resp, err := c.get(ctx, c.communityURL+"/tradeoffer/new/partnerinventory/", params, headers)
	if err != nil {
		return nil, err
	}

	var inventory map[string]interface{}
	if err := decodeJSON(resp, &inventory); err != nil {
		return nil, err
	}
	return inventory, nil
}
