package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tradegate/steamauth"
	"github.com/tradegate/steamauth/core"
)

// Handlers contains HTTP handlers exposing the client over the sidecar
// API
type Handlers struct {
	client *steamauth.Client
}

// NewHandlers creates new sidecar handlers
func NewHandlers(client *steamauth.Client) *Handlers {
	return &Handlers{
		client: client,
	}
}

// Login handles the login request
func (h *Handlers) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		Guard    string `json:"guard" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.client.Login(c.Request.Context(), req.Username, req.Password, req.Guard); err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Login failed"

		// Map specific errors to appropriate status codes
		switch {
		case errors.Is(err, core.ErrMalformedGuardFile), errors.Is(err, core.ErrInvalidSecret):
			statusCode = http.StatusBadRequest
			errorMsg = "Malformed guard secrets"
		case errors.Is(err, steamauth.ErrCaptchaRequired):
			statusCode = http.StatusForbidden
			errorMsg = "Captcha required"
		case errors.Is(err, steamauth.ErrInvalidCredentials):
			statusCode = http.StatusUnauthorized
			errorMsg = "Invalid credentials"
		case errors.Is(err, steamauth.ErrTwoFactorExhausted):
			statusCode = http.StatusUnauthorized
			errorMsg = "Two-factor code rejected"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged in"})
}

// Logout handles the logout request
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.client.Logout(c.Request.Context()); err != nil {
		switch {
		case errors.Is(err, steamauth.ErrNotAuthenticated):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		case errors.Is(err, steamauth.ErrLogoutFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Provider did not end the session"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Session handles the session surface request
func (h *Handlers) Session(c *gin.Context) {
	sessionID, err := h.client.SessionID()
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No session"})
		return
	}
	steamID, err := h.client.SteamID()
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"steamid":    steamID,
	})
}

// ConfirmTradeOffer handles confirmation of a pending trade offer
func (h *Handlers) ConfirmTradeOffer(c *gin.Context) {
	result, err := h.client.ConfirmTradeOffer(c.Request.Context(), c.Param("offer_id"))
	h.writeConfirmationResponse(c, result, err)
}

// ConfirmSellListing handles confirmation of a pending sell listing
func (h *Handlers) ConfirmSellListing(c *gin.Context) {
	result, err := h.client.ConfirmSellListing(c.Request.Context(), c.Param("asset_id"))
	h.writeConfirmationResponse(c, result, err)
}

// writeConfirmationResponse maps confirmation outcomes onto the HTTP
// surface; "nothing pending" is a success, "no match" is a 404
func (h *Handlers) writeConfirmationResponse(c *gin.Context, result steamauth.ConfirmationResult, err error) {
	if err != nil {
		switch {
		case errors.Is(err, steamauth.ErrNotAuthenticated):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		case errors.Is(err, steamauth.ErrConfirmationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "No confirmation matches the target"})
		case errors.Is(err, steamauth.ErrInvalidGuardSecret):
			c.JSON(http.StatusForbidden, gin.H{"error": "Identity secret rejected"})
		case errors.Is(err, steamauth.ErrConfirmationPageParseError):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Cannot parse confirmation page"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Confirmation failed"})
		}
		return
	}

	if result.Status == steamauth.StatusNoPending {
		c.JSON(http.StatusOK, gin.H{"status": "no_pending_confirmations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "confirmed",
		"confirmation_id": result.Confirmation.ID,
	})
}

// MarketPrice handles the market price overview request
func (h *Handlers) MarketPrice(c *gin.Context) {
	hashName := c.Query("hash_name")
	if hashName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hash_name is required"})
		return
	}

	game := core.GameOptions{
		AppID:     c.DefaultQuery("appid", core.GameCSGO.AppID),
		ContextID: c.DefaultQuery("contextid", core.GameCSGO.ContextID),
	}
	currency := core.CurrencyUSD
	if raw := c.Query("currency"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid currency"})
			return
		}
		currency = core.Currency(parsed)
	}

	overview, err := h.client.FetchPrice(c.Request.Context(), hashName, game, currency)
	if err != nil {
		if errors.Is(err, steamauth.ErrTooManyRequests) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limited by provider"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Price fetch failed"})
		return
	}

	c.JSON(http.StatusOK, overview)
}
