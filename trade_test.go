package steamauth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradegate/steamauth/core"
)

func TestGetTradeOffersFiltersActive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/IEconService/GetTradeOffers/v1", r.URL.Path)
		fmt.Fprint(w, `{"response": {
			"trade_offers_received": [
				{"tradeofferid": "1", "trade_offer_state": 2},
				{"tradeofferid": "2", "trade_offer_state": 3}
			],
			"trade_offers_sent": [
				{"tradeofferid": "3", "trade_offer_state": 6}
			]
		}}`)
	}))
	defer server.Close()

	client, err := NewClient("key", nil, nil)
	require.NoError(t, err)
	client.apiURL = server.URL

	offers, err := client.GetTradeOffers(context.Background())
	require.NoError(t, err)
	require.Len(t, offers.Received, 1)
	assert.Equal(t, "1", offers.Received[0].TradeOfferID)
	assert.Equal(t, core.TradeOfferActive, offers.Received[0].State)
	assert.Empty(t, offers.Sent)
}

func TestAPICallDetectsInvalidKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>Access is denied. Retrying will not help. Please verify your <pre>key=</pre> parameter.</html>`)
	}))
	defer server.Close()

	client, err := NewClient("bad-key", nil, nil)
	require.NoError(t, err)
	client.apiURL = server.URL

	_, err = client.GetTradeOffers(context.Background())
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestAcceptTradeOfferRunsConfirmation(t *testing.T) {
	var acceptForm url.Values

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response": {"offer": {"tradeofferid": "42", "trade_offer_state": 2}}}`)
	}))
	defer api.Close()

	community := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tradeoffer/42":
			fmt.Fprint(w, `<script>var g_ulTradePartnerSteamID = '76561198100000000';</script>`)
		case "/tradeoffer/42/accept":
			_ = r.ParseForm()
			acceptForm = r.PostForm
			fmt.Fprint(w, `{"tradeid": "t1", "needs_mobile_confirmation": true}`)
		case "/mobileconf/conf":
			fmt.Fprint(w, `<div id="mobileconf_list"><div class="mobileconf_list_entry" id="conf8" data-confid="c8" data-key="k8"></div></div>`)
		case "/mobileconf/details/8":
			fmt.Fprintf(w, `{"success": true, "html": %q}`,
				`<div class="tradeoffer" id="tradeofferid_42"></div>`)
		case "/mobileconf/ajaxop":
			fmt.Fprint(w, `{"success": true}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer community.Close()

	client, err := NewClient("key", nil, nil)
	require.NoError(t, err)
	client.apiURL = api.URL
	client.communityURL = community.URL
	client.username = "jakub"
	client.authenticated = true
	client.secrets = core.GuardSecrets{
		SteamID:        "76561197960265728",
		SharedSecret:   "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ",
		IdentitySecret: "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ",
	}
	u, _ := url.Parse(community.URL)
	client.jar.SetCookies(u, []*http.Cookie{{Name: "sessionid", Value: "s1", Path: "/"}})

	result, err := client.AcceptTradeOffer(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, result["confirmation_status"])
	assert.Equal(t, "76561198100000000", acceptForm.Get("partner"))
	assert.Equal(t, "s1", acceptForm.Get("sessionid"))
}

func TestAcceptTradeOfferRejectsInactiveState(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response": {"offer": {"tradeofferid": "42", "trade_offer_state": 3}}}`)
	}))
	defer api.Close()

	client, err := NewClient("key", nil, nil)
	require.NoError(t, err)
	client.apiURL = api.URL
	client.authenticated = true
	client.username = "jakub"

	_, err = client.AcceptTradeOffer(context.Background(), "42")
	assert.ErrorContains(t, err, "invalid trade offer state")
}

func TestFetchTradePartnerDetectsSevenDaysHold(t *testing.T) {
	community := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>You have logged in from a new device. In order to protect the items in your inventory trading is unavailable.</html>`)
	}))
	defer community.Close()

	client, err := NewClient("key", nil, nil)
	require.NoError(t, err)
	client.communityURL = community.URL

	_, err = client.fetchTradePartnerID(context.Background(), "42")
	assert.ErrorIs(t, err, ErrSevenDaysHold)
}

func TestMakeOfferWithURL(t *testing.T) {
	var offerForm url.Values
	var referer string

	community := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tradeoffer/new/send", r.URL.Path)
		_ = r.ParseForm()
		offerForm = r.PostForm
		referer = r.Header.Get("Referer")
		fmt.Fprint(w, `{"tradeofferid": "77"}`)
	}))
	defer community.Close()

	client, err := NewClient("key", nil, nil)
	require.NoError(t, err)
	client.communityURL = community.URL
	client.username = "jakub"
	client.authenticated = true
	u, _ := url.Parse(community.URL)
	client.jar.SetCookies(u, []*http.Cookie{{Name: "sessionid", Value: "s1", Path: "/"}})

	tradeURL := community.URL + "/tradeoffer/new/?partner=139734272&token=abc123"
	result, err := client.MakeOfferWithURL(
		context.Background(),
		[]core.Asset{{AssetID: "a1", Game: core.GameCSGO}},
		nil,
		tradeURL,
		"hello",
	)
	require.NoError(t, err)
	assert.Equal(t, "77", result["tradeofferid"])

	// The partner account id from the link resolves to the 64-bit id and
	// the access token rides in the create params
	assert.Equal(t, "76561198100000000", offerForm.Get("partner"))
	assert.Contains(t, offerForm.Get("trade_offer_create_params"), `"trade_offer_access_token":"abc123"`)
	assert.Equal(t, "hello", offerForm.Get("tradeoffermessage"))
	assert.Equal(t, community.URL+"/tradeoffer/new/", referer)
}

func TestMakeOfferWithURLRejectsLinkWithoutToken(t *testing.T) {
	client, err := NewClient("key", nil, nil)
	require.NoError(t, err)
	client.username = "jakub"
	client.authenticated = true

	_, err = client.MakeOfferWithURL(
		context.Background(), nil, nil,
		"https://steamcommunity.com/tradeoffer/new/?partner=139734272", "",
	)
	assert.ErrorContains(t, err, "partner/token")
}

func TestIsTradeLinkCorrect(t *testing.T) {
	community := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<script>var g_ulTradePartnerSteamID = '76561198100000000';</script>`)
	}))
	defer community.Close()

	client, err := NewClient("key", nil, nil)
	require.NoError(t, err)
	client.communityURL = community.URL
	client.username = "jakub"
	client.authenticated = true

	link := community.URL + "/tradeoffer/new/?partner=139734272&token=abc123"
	equal, err := client.IsTradeLinkCorrect(context.Background(), link, "76561198100000000")
	require.NoError(t, err)
	assert.True(t, equal)

	equal, err = client.IsTradeLinkCorrect(context.Background(), link, "76561198100000001")
	require.NoError(t, err)
	assert.False(t, equal)
}

func TestGetProfile(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ISteamUser/GetPlayerSummaries/v0002", r.URL.Path)
		assert.Equal(t, "76561198100000000", r.URL.Query().Get("steamids"))
		fmt.Fprint(w, `{"response": {"players": [{"steamid": "76561198100000000", "personaname": "jakub"}]}}`)
	}))
	defer api.Close()

	client, err := NewClient("key", nil, nil)
	require.NoError(t, err)
	client.apiURL = api.URL

	profile, err := client.GetProfile(context.Background(), "76561198100000000")
	require.NoError(t, err)
	assert.Equal(t, "jakub", profile["personaname"])
}

func TestMakeOfferPayload(t *testing.T) {
	payload := newOfferPayload(
		[]core.Asset{{AssetID: "a1", Game: core.GameCSGO}},
		nil,
	)
	assert.Equal(t, true, payload["newversion"])
	assert.Equal(t, 4, payload["version"])

	me := payload["me"].(map[string]interface{})
	assets := me["assets"].([]map[string]interface{})
	require.Len(t, assets, 1)
	assert.Equal(t, "a1", assets[0]["assetid"])
	assert.Equal(t, "730", assets[0]["appid"])
	assert.Equal(t, 1, assets[0]["amount"])

	them := payload["them"].(map[string]interface{})
	assert.Len(t, them["assets"].([]map[string]interface{}), 0)
}
