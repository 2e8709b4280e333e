package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/roamfund/roamfund-backend/internal/store"
	"github.com/roamfund/roamfund-backend/middleware"
	"github.com/roamfund/roamfund-backend/models/withdrawal"
	"github.com/roamfund/roamfund-backend/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const testTripID = "9b2d6f4a-3c1e-4b7d-8e5a-0f1c2d3e4b5a"

func withdrawalTestRouter(trips *mockTripStore, withdrawals *mockWithdrawalStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := withdrawal.NewService(trips, withdrawals, "USD")
	h := NewWithdrawalHandler(svc)

	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.Use(func(c *gin.Context) {
		c.Set(string(middleware.UserIDKey), testUserID)
		c.Next()
	})

	v1 := router.Group("/v1")
	v1.GET("/trips/:id/wallet", h.GetTripWalletHandler)
	v1.POST("/trips/:id/wallet/withdrawals", h.InitiateWithdrawalHandler)
	v1.POST("/trips/:id/wallet/withdrawals/approve", h.ApproveWithdrawalHandler)
	return router
}

func TestGetTripWalletHandler(t *testing.T) {
	trips := new(mockTripStore)
	withdrawals := new(mockWithdrawalStore)
	router := withdrawalTestRouter(trips, withdrawals)

	trips.On("IsAcceptedMember", mock.Anything, testTripID, testUserID).Return(true, nil)
	trips.On("GetTripWallet", mock.Anything, testTripID).Return(&types.TripWallet{
		TripID:   testTripID,
		Balance:  decimal.RequireFromString("300.02"),
		Currency: "USD",
	}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/trips/"+testTripID+"/wallet", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "300.02")
}

func TestGetTripWalletHandlerForbidsNonMembers(t *testing.T) {
	trips := new(mockTripStore)
	withdrawals := new(mockWithdrawalStore)
	router := withdrawalTestRouter(trips, withdrawals)

	trips.On("IsAcceptedMember", mock.Anything, testTripID, testUserID).Return(false, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/trips/"+testTripID+"/wallet", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestInitiateWithdrawalHandler(t *testing.T) {
	trips := new(mockTripStore)
	withdrawals := new(mockWithdrawalStore)
	router := withdrawalTestRouter(trips, withdrawals)

	trips.On("GetTrip", mock.Anything, testTripID).Return(&types.Trip{
		ID:        testTripID,
		CreatedBy: testUserID,
	}, nil)
	withdrawals.On("InitiateWithdrawal", mock.Anything, testTripID, testUserID, mock.Anything, "USD").
		Return(&store.WithdrawalOutcome{
			TransactionID: testTxnID,
			Amount:        decimal.RequireFromString("300.00"),
			AuthorID:      testUserID,
			Approvals:     []string{testUserID},
			Required:      3,
		}, nil)

	body, _ := json.Marshal(gin.H{"amount": "300.00"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/v1/trips/"+testTripID+"/wallet/withdrawals", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp types.WithdrawalStatusResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Required)
	assert.False(t, resp.Finalized)
}

func TestApproveWithdrawalHandler(t *testing.T) {
	trips := new(mockTripStore)
	withdrawals := new(mockWithdrawalStore)
	router := withdrawalTestRouter(trips, withdrawals)

	trips.On("IsAcceptedMember", mock.Anything, testTripID, testUserID).Return(true, nil)
	withdrawals.On("Approve", mock.Anything, testTripID, testUserID).Return(&store.WithdrawalOutcome{
		TransactionID: testTxnID,
		Amount:        decimal.RequireFromString("300.00"),
		AuthorID:      "author-1",
		Approvals:     []string{"author-1", testUserID},
		Required:      2,
		Finalized:     true,
	}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/v1/trips/"+testTripID+"/wallet/withdrawals/approve", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp types.WithdrawalStatusResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Finalized)
}
