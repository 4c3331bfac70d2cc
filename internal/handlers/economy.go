package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pylearnhq/pylearn-backend/internal/http/response"
	"github.com/pylearnhq/pylearn-backend/internal/services"
)

type EconomyHandler struct {
	economyService services.EconomyService
}

func NewEconomyHandler(economyService services.EconomyService) *EconomyHandler {
	return &EconomyHandler{economyService: economyService}
}

func (eh *EconomyHandler) GetWallet(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	wallet, err := eh.economyService.GetOrCreateWallet(c.Request.Context(), nil, userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, wallet)
}

func (eh *EconomyHandler) CreateReferral(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		InvitedEmail *string `json:"invited_email"`
	}
	// Body is optional.
	_ = c.ShouldBindJSON(&req)
	invite, err := eh.economyService.CreateReferral(c.Request.Context(), userID, req.InvitedEmail)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"code":           invite.Code,
		"status":         invite.Status,
		"reward_xp":      invite.RewardXP,
		"reward_credits": invite.RewardCredits,
	})
}

func (eh *EconomyHandler) RedeemReferral(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		response.RespondError(c, http.StatusBadRequest, "bad_request", errors.New("code is required"))
		return
	}
	if err := eh.economyService.RedeemReferral(c.Request.Context(), userID, req.Code); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "detail": "Referral redeemed successfully"})
}

func (eh *EconomyHandler) UnlockPremium(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Days int `json:"days"`
	}
	// Body is optional; days falls back to the configured default.
	_ = c.ShouldBindJSON(&req)
	grant, err := eh.economyService.GrantPremiumFromWallet(c.Request.Context(), userID, req.Days)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"success":    true,
		"granted_at": grant.GrantedAt,
		"expires_at": grant.ExpiresAt,
	})
}

func (eh *EconomyHandler) ListTransactions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	txns, err := eh.economyService.ListTransactions(c.Request.Context(), userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, txns)
}
