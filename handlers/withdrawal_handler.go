package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roamfund/roamfund-backend/models/withdrawal"
	"github.com/roamfund/roamfund-backend/types"
)

// WithdrawalHandler serves the trip wallet and its unanimous-approval
// payout cycle.
type WithdrawalHandler struct {
	withdrawalService *withdrawal.Service
}

func NewWithdrawalHandler(withdrawalService *withdrawal.Service) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalService: withdrawalService}
}

// GetTripWalletHandler returns the pooled trip wallet, including any
// pending withdrawal's approval set.
func (h *WithdrawalHandler) GetTripWalletHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	tripID, ok := requireUUIDParam(c, "id")
	if !ok {
		return
	}

	wallet, err := h.withdrawalService.GetTripWallet(c.Request.Context(), tripID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, wallet)
}

// InitiateWithdrawalHandler opens a withdrawal cycle. Trip author only.
func (h *WithdrawalHandler) InitiateWithdrawalHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	tripID, ok := requireUUIDParam(c, "id")
	if !ok {
		return
	}

	var req types.WithdrawalInitiateRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.withdrawalService.InitiateWithdrawal(c.Request.Context(), tripID, userID, req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ApproveWithdrawalHandler records the caller's approval; the approval
// completing the unanimous set also performs the payout.
func (h *WithdrawalHandler) ApproveWithdrawalHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	tripID, ok := requireUUIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.withdrawalService.Approve(c.Request.Context(), tripID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
