package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roamfund/roamfund-backend/models/wallet"
	"github.com/roamfund/roamfund-backend/types"
)

// WalletHandler serves the personal wallet: balance, history and the
// two-phase gateway deposit flow.
type WalletHandler struct {
	walletService *wallet.Service
}

func NewWalletHandler(walletService *wallet.Service) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// GetWalletHandler returns the caller's wallet balance.
func (h *WalletHandler) GetWalletHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	walletData, err := h.walletService.GetWallet(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, walletData)
}

// ListTransactionsHandler returns a page of the caller's transaction
// history, optionally filtered by trip, type and status.
func (h *WalletHandler) ListTransactionsHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	limit, offset := parsePagination(c)
	filter := types.TransactionFilter{
		UserID: userID,
		Limit:  limit,
		Offset: offset,
	}
	if v := c.Query("tripId"); v != "" {
		filter.TripID = &v
	}
	if v := c.Query("type"); v != "" {
		txnType := types.TransactionType(v)
		filter.Type = &txnType
	}
	if v := c.Query("status"); v != "" {
		status := types.TransactionStatus(v)
		filter.Status = &status
	}

	txns, total, err := h.walletService.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": txns,
		"pagination": types.PageInfo{
			Limit:  limit,
			Offset: offset,
			Total:  total,
		},
	})
}

// InitiateDepositHandler opens a gateway deposit. The response carries
// the provider's client parameters; no balance changes until the deposit
// is confirmed.
func (h *WalletHandler) InitiateDepositHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req types.DepositInitiateRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.walletService.InitiateDeposit(c.Request.Context(), userID, req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ConfirmDepositHandler verifies a completed gateway payment and credits
// the wallet. Safe to retry; terminal transactions replay their stored
// outcome.
func (h *WalletHandler) ConfirmDepositHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	txnID, ok := requireUUIDParam(c, "txnID")
	if !ok {
		return
	}

	var proof types.GatewayProof
	if !bindJSON(c, &proof) {
		return
	}

	resp, err := h.walletService.ConfirmDeposit(c.Request.Context(), userID, txnID, proof)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
