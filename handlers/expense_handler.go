package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roamfund/roamfund-backend/models/expense"
	"github.com/roamfund/roamfund-backend/types"
)

// ExpenseHandler serves trip expenses and the settlement of member
// shares.
type ExpenseHandler struct {
	expenseService *expense.Service
}

func NewExpenseHandler(expenseService *expense.Service) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

// CreateExpenseHandler logs an expense, split equally across the trip's
// accepted members.
func (h *ExpenseHandler) CreateExpenseHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	tripID, ok := requireUUIDParam(c, "id")
	if !ok {
		return
	}

	var req types.ExpenseCreateRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.expenseService.CreateExpense(c.Request.Context(), tripID, userID, req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// GetExpenseHandler returns an expense with its shares.
func (h *ExpenseHandler) GetExpenseHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	tripID, ok := requireUUIDParam(c, "id")
	if !ok {
		return
	}
	expenseID, ok := requireUUIDParam(c, "expenseID")
	if !ok {
		return
	}

	found, err := h.expenseService.GetExpense(c.Request.Context(), tripID, expenseID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, found)
}

// PayShareHandler applies a payment against the caller's share, from
// their wallet or through a gateway.
func (h *ExpenseHandler) PayShareHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	tripID, ok := requireUUIDParam(c, "id")
	if !ok {
		return
	}
	expenseID, ok := requireUUIDParam(c, "expenseID")
	if !ok {
		return
	}

	var req types.SharePaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.expenseService.PayShare(c.Request.Context(), tripID, expenseID, userID, req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	status := http.StatusOK
	if resp.Status == types.TransactionStatusPending {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}

// ConfirmSharePaymentHandler verifies a gateway-paid share with the
// provider and applies it.
func (h *ExpenseHandler) ConfirmSharePaymentHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	tripID, ok := requireUUIDParam(c, "id")
	if !ok {
		return
	}
	expenseID, ok := requireUUIDParam(c, "expenseID")
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

	resp, err := h.expenseService.ConfirmSharePayment(c.Request.Context(), tripID, expenseID, userID, txnID, proof)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
