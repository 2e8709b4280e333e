package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/roamfund/roamfund-backend/errors"
	"github.com/roamfund/roamfund-backend/logger"
	"github.com/roamfund/roamfund-backend/types"
)

// RazorpayGateway charges through order objects. The client completes the
// checkout against the order and hands back a payment id plus an HMAC
// signature; nothing about the payment is trusted until the signature
// verifies against our key secret.
type RazorpayGateway struct {
	keyID     string
	keySecret string
	apiBase   string
	client    *http.Client
}

var _ Gateway = (*RazorpayGateway)(nil)

func NewRazorpayGateway(keyID, keySecret, apiBase string, timeout time.Duration) *RazorpayGateway {
	return &RazorpayGateway{
		keyID:     keyID,
		keySecret: keySecret,
		apiBase:   strings.TrimRight(apiBase, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (g *RazorpayGateway) Name() types.PaymentGateway {
	return types.GatewayRazorpay
}

type razorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type razorpayPayment struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	Status  string `json:"status"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (g *RazorpayGateway) CreateIntent(ctx context.Context, p CreateIntentParams) (*Intent, error) {
	payload := map[string]interface{}{
		"amount":   p.AmountMinor,
		"currency": strings.ToUpper(p.Currency),
		"receipt":  p.Receipt,
	}
	if len(p.Metadata) > 0 {
		payload["notes"] = p.Metadata
	}

	var order razorpayOrder
	err := g.do(ctx, http.MethodPost, "/v1/orders", payload, &order)
	observeRequest(string(types.GatewayRazorpay), "create_order", err)
	if err != nil {
		return nil, err
	}

	logger.GetLogger().Infow("Created payment order",
		"gateway", types.GatewayRazorpay,
		"order", order.ID,
		"amount_minor", p.AmountMinor)

	return &Intent{
		Ref: order.ID,
		ClientParams: map[string]string{
			"orderId": order.ID,
			"keyId":   g.keyID,
		},
	}, nil
}

// VerifyCompletion checks the client-supplied signature before anything
// else; only a signed payment id is worth a provider round trip. The
// payment is then fetched and must be captured.
func (g *RazorpayGateway) VerifyCompletion(ctx context.Context, p VerifyParams) (*VerificationResult, error) {
	if !g.signatureValid(p.IntentRef, p.PaymentID, p.Signature) {
		observeVerificationFailure(string(types.GatewayRazorpay), "signature")
		return &VerificationResult{
			Succeeded:     false,
			PaymentRef:    p.PaymentID,
			FailureReason: "payment signature verification failed",
		}, nil
	}

	var payment razorpayPayment
	err := g.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(p.PaymentID), nil, &payment)
	observeRequest(string(types.GatewayRazorpay), "verify", err)
	if err != nil {
		return nil, err
	}

	if payment.Status != "captured" {
		observeVerificationFailure(string(types.GatewayRazorpay), "status")
		return &VerificationResult{
			Succeeded:     false,
			PaymentRef:    payment.ID,
			FailureReason: fmt.Sprintf("payment status is %q", payment.Status),
		}, nil
	}
	if payment.OrderID != p.IntentRef {
		observeVerificationFailure(string(types.GatewayRazorpay), "order_mismatch")
		return &VerificationResult{
			Succeeded:     false,
			PaymentRef:    payment.ID,
			FailureReason: "payment does not belong to the expected order",
		}, nil
	}

	return &VerificationResult{
		Succeeded:   true,
		AmountMinor: payment.Amount,
		PaymentRef:  payment.ID,
	}, nil
}

// signatureValid recomputes HMAC-SHA256(secret, orderID + "|" + paymentID)
// and compares in constant time.
func (g *RazorpayGateway) signatureValid(orderID, paymentID, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(g.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (g *RazorpayGateway) do(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var body *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return apperrors.GatewayError(err, "failed to encode gateway request")
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.apiBase+path, body)
	if err != nil {
		return apperrors.GatewayError(err, "failed to build gateway request")
	}

	req.SetBasicAuth(g.keyID, g.keySecret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return apperrors.GatewayError(err, "gateway request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr razorpayError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error.Description != "" {
			return apperrors.GatewayError(
				fmt.Errorf("%s: %s", apiErr.Error.Code, apiErr.Error.Description),
				"gateway rejected the request",
			)
		}
		return apperrors.GatewayError(
			fmt.Errorf("gateway returned status %d", resp.StatusCode),
			"gateway rejected the request",
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.GatewayError(err, "failed to decode gateway response")
	}

	return nil
}
