package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/roamfund/roamfund-backend/internal/payment"
	"github.com/roamfund/roamfund-backend/internal/store"
	"github.com/roamfund/roamfund-backend/middleware"
	"github.com/roamfund/roamfund-backend/models/expense"
	"github.com/roamfund/roamfund-backend/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testExpenseID = "4f8a2b6c-1d3e-4a5b-9c7d-2e4f6a8b0c1d"

func expenseTestRouter(trips *mockTripStore, expenses *mockExpenseStore, txns *mockTransactionStore, gw *mockGateway) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := expense.NewService(trips, expenses, txns, payment.NewRegistry(gw), "USD", 48, types.SplitExcessDonate)
	h := NewExpenseHandler(svc)

	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.Use(func(c *gin.Context) {
		c.Set(string(middleware.UserIDKey), testUserID)
		c.Next()
	})

	trip := router.Group("/v1/trips/:id")
	trip.POST("/expenses", h.CreateExpenseHandler)
	trip.GET("/expenses/:expenseID", h.GetExpenseHandler)
	trip.POST("/expenses/:expenseID/payments", h.PayShareHandler)
	trip.POST("/expenses/:expenseID/payments/:txnID/confirm", h.ConfirmSharePaymentHandler)
	return router
}

func TestCreateExpenseHandler(t *testing.T) {
	t.Run("creates and returns the split", func(t *testing.T) {
		trips := new(mockTripStore)
		expenses := new(mockExpenseStore)
		txns := new(mockTransactionStore)
		gw := &mockGateway{name: types.GatewayRazorpay}
		router := expenseTestRouter(trips, expenses, txns, gw)

		trips.On("IsAcceptedMember", mock.Anything, testTripID, testUserID).Return(true, nil)
		trips.On("ListAcceptedMemberIDs", mock.Anything, testTripID).
			Return([]string{testUserID, "member-2", "member-3"}, nil)
		expenses.On("CreateExpense", mock.Anything, mock.MatchedBy(func(e *types.Expense) bool {
			return len(e.Shares) == 3 && e.Shares[0].Amount.Equal(decimal.RequireFromString("33.34"))
		})).Return(&types.Expense{
			ID:       testExpenseID,
			TripID:   testTripID,
			Title:    "Hotel",
			Amount:   decimal.RequireFromString("100.00"),
			Currency: "USD",
		}, nil)

		body, _ := json.Marshal(gin.H{"title": "Hotel", "amount": "100.00"})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/v1/trips/"+testTripID+"/expenses", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), testExpenseID)
	})

	t.Run("non-members get a 403", func(t *testing.T) {
		trips := new(mockTripStore)
		expenses := new(mockExpenseStore)
		txns := new(mockTransactionStore)
		gw := &mockGateway{name: types.GatewayRazorpay}
		router := expenseTestRouter(trips, expenses, txns, gw)

		trips.On("IsAcceptedMember", mock.Anything, testTripID, testUserID).Return(false, nil)

		body, _ := json.Marshal(gin.H{"title": "Hotel", "amount": "100.00"})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/v1/trips/"+testTripID+"/expenses", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		expenses.AssertNotCalled(t, "CreateExpense", mock.Anything, mock.Anything)
	})

	t.Run("a missing title fails binding", func(t *testing.T) {
		trips := new(mockTripStore)
		expenses := new(mockExpenseStore)
		txns := new(mockTransactionStore)
		gw := &mockGateway{name: types.GatewayRazorpay}
		router := expenseTestRouter(trips, expenses, txns, gw)

		trips.On("IsAcceptedMember", mock.Anything, testTripID, testUserID).Return(true, nil)

		body, _ := json.Marshal(gin.H{"amount": "100.00"})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/v1/trips/"+testTripID+"/expenses", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPayShareHandler(t *testing.T) {
	futureTrip := &types.Trip{
		ID:        testTripID,
		StartDate: time.Now().Add(30 * 24 * time.Hour),
		CreatedBy: "author-1",
	}
	shareAmount := decimal.RequireFromString("33.34")

	t.Run("wallet payment settles with a 200", func(t *testing.T) {
		trips := new(mockTripStore)
		expenses := new(mockExpenseStore)
		txns := new(mockTransactionStore)
		gw := &mockGateway{name: types.GatewayRazorpay}
		router := expenseTestRouter(trips, expenses, txns, gw)

		trips.On("GetTrip", mock.Anything, testTripID).Return(futureTrip, nil)
		trips.On("IsAcceptedMember", mock.Anything, testTripID, testUserID).Return(true, nil)
		expenses.On("GetExpense", mock.Anything, testTripID, testExpenseID).Return(&types.Expense{
			ID:     testExpenseID,
			TripID: testTripID,
			Amount: decimal.RequireFromString("100.00"),
		}, nil)
		expenses.On("GetShare", mock.Anything, testExpenseID, testUserID).Return(&types.ExpenseShare{
			ID:         "share-1",
			ExpenseID:  testExpenseID,
			UserID:     testUserID,
			Amount:     shareAmount,
			AmountPaid: decimal.Zero,
			Status:     types.ShareStatusPending,
		}, nil)
		expenses.On("ApplySharePayment", mock.Anything, mock.MatchedBy(func(p store.SharePaymentParams) bool {
			return p.DebitWallet && p.TransactionID == "" && p.Amount.Equal(shareAmount)
		})).Return(&store.SharePaymentResult{
			TransactionID: testTxnID,
			Share: types.ExpenseShare{
				ID:         "share-1",
				AmountPaid: shareAmount,
				Amount:     shareAmount,
				Status:     types.ShareStatusCompleted,
			},
			Settled: false,
		}, nil)

		body, _ := json.Marshal(gin.H{"amount": "33.34", "method": "wallet"})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost,
			"/v1/trips/"+testTripID+"/expenses/"+testExpenseID+"/payments", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp types.SharePaymentResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, types.TransactionStatusCompleted, resp.Status)
		require.NotNil(t, resp.Share)
		assert.Equal(t, types.ShareStatusCompleted, resp.Share.Status)
	})

	t.Run("gateway payment opens a pending transaction with a 201", func(t *testing.T) {
		trips := new(mockTripStore)
		expenses := new(mockExpenseStore)
		txns := new(mockTransactionStore)
		gw := &mockGateway{name: types.GatewayRazorpay}
		router := expenseTestRouter(trips, expenses, txns, gw)

		trips.On("GetTrip", mock.Anything, testTripID).Return(futureTrip, nil)
		trips.On("IsAcceptedMember", mock.Anything, testTripID, testUserID).Return(true, nil)
		expenses.On("GetExpense", mock.Anything, testTripID, testExpenseID).Return(&types.Expense{
			ID:     testExpenseID,
			TripID: testTripID,
			Amount: decimal.RequireFromString("100.00"),
		}, nil)
		expenses.On("GetShare", mock.Anything, testExpenseID, testUserID).Return(&types.ExpenseShare{
			ID:         "share-1",
			ExpenseID:  testExpenseID,
			UserID:     testUserID,
			Amount:     shareAmount,
			AmountPaid: decimal.Zero,
			Status:     types.ShareStatusPending,
		}, nil)
		txns.On("CreateTransaction", mock.Anything, mock.Anything).Return(&types.Transaction{
			ID:       testTxnID,
			UserID:   testUserID,
			Type:     types.TransactionTypePayment,
			Status:   types.TransactionStatusPending,
			Amount:   shareAmount,
			Currency: "USD",
			Gateway:  types.GatewayRazorpay,
		}, nil)
		gw.On("CreateIntent", mock.Anything, mock.MatchedBy(func(p payment.CreateIntentParams) bool {
			return p.AmountMinor == 3334
		})).Return(&payment.Intent{
			Ref:          "order_abc",
			ClientParams: map[string]string{"orderId": "order_abc"},
		}, nil)
		txns.On("SetMetadata", mock.Anything, testTxnID, mock.Anything).Return(nil)

		body, _ := json.Marshal(gin.H{"amount": "33.34", "method": "gateway", "gateway": "razorpay"})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost,
			"/v1/trips/"+testTripID+"/expenses/"+testExpenseID+"/payments", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), "order_abc")
	})

	t.Run("a closed payment window is a 409", func(t *testing.T) {
		trips := new(mockTripStore)
		expenses := new(mockExpenseStore)
		txns := new(mockTransactionStore)
		gw := &mockGateway{name: types.GatewayRazorpay}
		router := expenseTestRouter(trips, expenses, txns, gw)

		trips.On("GetTrip", mock.Anything, testTripID).Return(&types.Trip{
			ID:        testTripID,
			StartDate: time.Now().Add(12 * time.Hour),
		}, nil)
		trips.On("IsAcceptedMember", mock.Anything, testTripID, testUserID).Return(true, nil)

		body, _ := json.Marshal(gin.H{"amount": "33.34", "method": "wallet"})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost,
			"/v1/trips/"+testTripID+"/expenses/"+testExpenseID+"/payments", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "payment window is closed")
		expenses.AssertNotCalled(t, "ApplySharePayment", mock.Anything, mock.Anything)
	})
}

func TestConfirmSharePaymentHandler(t *testing.T) {
	shareAmount := decimal.RequireFromString("33.34")
	expenseID := testExpenseID

	t.Run("verifies and applies the payment", func(t *testing.T) {
		trips := new(mockTripStore)
		expenses := new(mockExpenseStore)
		txns := new(mockTransactionStore)
		gw := &mockGateway{name: types.GatewayRazorpay}
		router := expenseTestRouter(trips, expenses, txns, gw)

		shareID := "share-1"
		txns.On("GetTransaction", mock.Anything, testTxnID).Return(&types.Transaction{
			ID:        testTxnID,
			UserID:    testUserID,
			ExpenseID: &expenseID,
			ShareID:   &shareID,
			Type:      types.TransactionTypePayment,
			Status:    types.TransactionStatusPending,
			Amount:    shareAmount,
			Currency:  "USD",
			Gateway:   types.GatewayRazorpay,
			Metadata:  map[string]string{types.MetaIntentRef: "order_abc"},
		}, nil)
		gw.On("VerifyCompletion", mock.Anything, mock.Anything).Return(&payment.VerificationResult{
			Succeeded:   true,
			AmountMinor: 3334,
			PaymentRef:  "pay_1",
		}, nil)
		expenses.On("ApplySharePayment", mock.Anything, mock.MatchedBy(func(p store.SharePaymentParams) bool {
			return p.TransactionID == testTxnID && !p.DebitWallet && p.PaymentRef == "pay_1"
		})).Return(&store.SharePaymentResult{
			TransactionID: testTxnID,
			Share: types.ExpenseShare{
				ID:         shareID,
				AmountPaid: shareAmount,
				Amount:     shareAmount,
				Status:     types.ShareStatusCompleted,
			},
			Settled: true,
		}, nil)

		body, _ := json.Marshal(gin.H{"paymentId": "pay_1", "signature": "sig"})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost,
			"/v1/trips/"+testTripID+"/expenses/"+testExpenseID+"/payments/"+testTxnID+"/confirm",
			bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp types.SharePaymentResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, types.TransactionStatusCompleted, resp.Status)
		assert.True(t, resp.Settled)
	})

	t.Run("another user's transaction reads as not found", func(t *testing.T) {
		trips := new(mockTripStore)
		expenses := new(mockExpenseStore)
		txns := new(mockTransactionStore)
		gw := &mockGateway{name: types.GatewayRazorpay}
		router := expenseTestRouter(trips, expenses, txns, gw)

		shareID := "share-1"
		txns.On("GetTransaction", mock.Anything, testTxnID).Return(&types.Transaction{
			ID:        testTxnID,
			UserID:    "someone-else",
			ExpenseID: &expenseID,
			ShareID:   &shareID,
			Type:      types.TransactionTypePayment,
			Status:    types.TransactionStatusPending,
		}, nil)

		body, _ := json.Marshal(gin.H{"paymentId": "pay_1"})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost,
			"/v1/trips/"+testTripID+"/expenses/"+testExpenseID+"/payments/"+testTxnID+"/confirm",
			bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		expenses.AssertNotCalled(t, "ApplySharePayment", mock.Anything, mock.Anything)
	})
}
