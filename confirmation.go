package steamauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tradegate/steamauth/core"
	"github.com/tradegate/steamauth/guard"
)

const (
	confirmationPlatform = "android"

	tagConf  = "conf"
	tagAllow = "allow"

	// invalidGuardMarker appears on the list page when the provider
	// rejects the confirmation signing key
	invalidGuardMarker = "Steam Guard Mobile Authenticator is providing incorrect Steam Guard codes."
)

// ConfirmationStatus is the terminal outcome of a resolve-and-confirm
// call.
type ConfirmationStatus int

const (
	// StatusConfirmed means the matching confirmation was allowed
	StatusConfirmed ConfirmationStatus = iota

	// StatusNoPending means no confirmations were pending at all; this is
	// a valid outcome, distinct from ErrConfirmationNotFound
	StatusNoPending
)

// ConfirmationResult reports what a resolve-and-confirm call did.
type ConfirmationResult struct {
	Status       ConfirmationStatus
	Confirmation core.Confirmation // matched entry, zero value when none pending
}

// ConfirmTradeOffer finds the pending confirmation for the given trade
// offer id and allows it.
func (c *Client) ConfirmTradeOffer(ctx context.Context, tradeOfferID string) (ConfirmationResult, error) {
	return c.resolveAndConfirm(ctx, core.ConfirmationTradeOffer, tradeOfferID)
}

// ConfirmSellListing finds the pending confirmation for the given market
// listing asset id and allows it.
func (c *Client) ConfirmSellListing(ctx context.Context, assetID string) (ConfirmationResult, error) {
	return c.resolveAndConfirm(ctx, core.ConfirmationSellListing, assetID)
}

// resolveAndConfirm lists pending confirmations, fetches a detail view
// per entry to extract the embedded business identifier, stops at the
// first entry (in list order) matching the target, and issues the allow
// action signed with a fresh key.
func (c *Client) resolveAndConfirm(ctx context.Context, kind core.ConfirmationKind, targetID string) (ConfirmationResult, error) {
	if err := c.checkSession(); err != nil {
		return ConfirmationResult{}, err
	}

	confirmations, err := c.fetchConfirmations(ctx)
	if err != nil {
		return ConfirmationResult{}, err
	}
	if len(confirmations) == 0 {
		return ConfirmationResult{Status: StatusNoPending}, nil
	}

	for _, confirmation := range confirmations {
		extractedID, err := c.fetchConfirmationTargetID(ctx, kind, confirmation)
		if err != nil {
			return ConfirmationResult{}, err
		}
		if extractedID == targetID {
			if err := c.sendAllowRequest(ctx, confirmation); err != nil {
				return ConfirmationResult{}, err
			}
			if c.events != nil {
				_ = c.events.PublishConfirmation(ctx, kindString(kind), targetID, confirmation.ID)
			}
			return ConfirmationResult{Status: StatusConfirmed, Confirmation: confirmation}, nil
		}
	}

	return ConfirmationResult{}, ErrConfirmationNotFound
}

// fetchConfirmations retrieves and parses the pending confirmation list.
// Entries are never cached; the provider reissues the tamper tokens on
// every page load.
func (c *Client) fetchConfirmations(ctx context.Context) ([]core.Confirmation, error) {
	params, err := c.confirmationParams(tagConf)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{"X-Requested-With": "com.valvesoftware.android.steam.community"}
	resp, err := c.get(ctx, c.communityURL+"/mobileconf/conf", params, headers)
	if err != nil {
		return nil, err
	}
	body, err := drainBody(resp)
	if err != nil {
		return nil, err
	}

	if strings.Contains(string(body), invalidGuardMarker) {
		return nil, ErrInvalidGuardSecret
	}

	return parseConfirmationList(string(body))
}

// fetchConfirmationTargetID fetches the detail view of a confirmation
// and extracts the business identifier it corresponds to.
func (c *Client) fetchConfirmationTargetID(ctx context.Context, kind core.ConfirmationKind, confirmation core.Confirmation) (string, error) {
	params, err := c.confirmationParams("details" + confirmation.ID)
	if err != nil {
		return "", err
	}

	resp, err := c.get(ctx, c.communityURL+"/mobileconf/details/"+confirmation.ID, params, nil)
	if err != nil {
		return "", err
	}

	var details struct {
		Success bool   `json:"success"`
		HTML    string `json:"html"`
	}
	if err := decodeJSON(resp, &details); err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfirmationPageParseError, err)
	}
	if !details.Success {
		return "", ErrConfirmationPageParseError
	}

	switch kind {
	case core.ConfirmationSellListing:
		return extractSellListingID(details.HTML)
	default:
		return extractTradeOfferID(details.HTML)
	}
}

// sendAllowRequest issues the allow action for a matched confirmation.
// The signature is generated here, at send time: signatures are
// single-use within the provider's tolerance window, so the one computed
// for the list fetch must not be reused.
func (c *Client) sendAllowRequest(ctx context.Context, confirmation core.Confirmation) error {
	params, err := c.confirmationParams(tagAllow)
	if err != nil {
		return err
	}
	params.Set("op", tagAllow)
	params.Set("cid", confirmation.ConfID)
	params.Set("ck", confirmation.Key)

	headers := map[string]string{"X-Requested-With": "XMLHttpRequest"}
	resp, err := c.get(ctx, c.communityURL+"/mobileconf/ajaxop", params, headers)
	if err != nil {
		return err
	}

	var result struct {
		Success bool `json:"success"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return fmt.Errorf("%w: %v", ErrConfirmationPageParseError, err)
	}
	if !result.Success {
		return ErrConfirmationRejected
	}
	return nil
}

// confirmationParams builds the signed query parameters every
// confirmation-protocol request carries.
func (c *Client) confirmationParams(tag string) (url.Values, error) {
	timestamp := time.Now().Unix()
	key, err := guard.GenerateConfirmationKey(c.secrets.IdentitySecret, tag, timestamp)
	if err != nil {
		return nil, err
	}

	return url.Values{
		"p":   {guard.GenerateDeviceID(c.secrets.SteamID)},
		"a":   {c.secrets.SteamID},
		"k":   {key},
		"t":   {strconv.FormatInt(timestamp, 10)},
		"m":   {confirmationPlatform},
		"tag": {tag},
	}, nil
}

// parseConfirmationList extracts the pending entries from the list page.
func parseConfirmationList(page string) ([]core.Confirmation, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfirmationPageParseError, err)
	}

	if doc.Find("#mobileconf_empty").Length() > 0 {
		return nil, nil
	}

	var confirmations []core.Confirmation
	var parseErr error
	doc.Find("#mobileconf_list .mobileconf_list_entry").Each(func(_ int, entry *goquery.Selection) {
		id, okID := entry.Attr("id")
		confID, okConf := entry.Attr("data-confid")
		key, okKey := entry.Attr("data-key")
		if !okID || !okConf || !okKey || !strings.Contains(id, "conf") {
			parseErr = ErrConfirmationPageParseError
			return
		}
		confirmations = append(confirmations, core.Confirmation{
			ID:     strings.SplitN(id, "conf", 2)[1],
			ConfID: confID,
			Key:    key,
		})
	})
	if parseErr != nil {
		return nil, parseErr
	}
	if len(confirmations) == 0 {
		// Neither the empty marker nor any entry: unexpected page shape
		return nil, ErrConfirmationPageParseError
	}

	return confirmations, nil
}

// extractTradeOfferID pulls the trade offer id embedded in the detail
// page's tradeoffer element id.
func extractTradeOfferID(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfirmationPageParseError, err)
	}

	id, ok := doc.Find(".tradeoffer").First().Attr("id")
	if !ok {
		return "", ErrConfirmationPageParseError
	}
	parts := strings.SplitN(id, "_", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", ErrConfirmationPageParseError
	}
	return parts[1], nil
}

// sellListingDelimiters bound the JSON item payload embedded in a sell
// listing detail page's inline script.
const (
	sellListingStart = "'confiteminfo', "
	sellListingEnd   = ", UserYou"
)

// extractSellListingID pulls the asset id out of the inline script
// payload of a sell listing detail page.
func extractSellListingID(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfirmationPageParseError, err)
	}

	var payload string
	doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		text := script.Text()
		start := strings.Index(text, sellListingStart)
		if start < 0 {
			return true
		}
		text = text[start+len(sellListingStart):]
		end := strings.Index(text, sellListingEnd)
		if end < 0 {
			return true
		}
		payload = strings.ReplaceAll(text[:end], "\n", "")
		return false
	})
	if payload == "" {
		return "", ErrConfirmationPageParseError
	}

	// The embedded id is a string on some pages and a bare number on
	// others
	var item struct {
		ID interface{} `json:"id"`
	}
	decoder := json.NewDecoder(strings.NewReader(payload))
	decoder.UseNumber()
	if err := decoder.Decode(&item); err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfirmationPageParseError, err)
	}
	switch id := item.ID.(type) {
	case string:
		return id, nil
	case json.Number:
		return id.String(), nil
	default:
		return "", ErrConfirmationPageParseError
	}
}

// kindString renders a confirmation kind for event payloads.
func kindString(kind core.ConfirmationKind) string {
	if kind == core.ConfirmationSellListing {
		return "sell_listing"
	}
	return "trade_offer"
}
