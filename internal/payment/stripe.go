package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/roamfund/roamfund-backend/errors"
	"github.com/roamfund/roamfund-backend/logger"
	"github.com/roamfund/roamfund-backend/types"
)

// StripeGateway charges through client-confirmed payment intents. The
// caller's frontend completes the intent with the client secret; we
// verify by fetching the intent and checking its status server-side.
type StripeGateway struct {
	secretKey string
	apiBase   string
	client    *http.Client
}

var _ Gateway = (*StripeGateway)(nil)

func NewStripeGateway(secretKey, apiBase string, timeout time.Duration) *StripeGateway {
	return &StripeGateway{
		secretKey: secretKey,
		apiBase:   strings.TrimRight(apiBase, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (g *StripeGateway) Name() types.PaymentGateway {
	return types.GatewayStripe
}

type stripeIntent struct {
	ID             string `json:"id"`
	ClientSecret   string `json:"client_secret"`
	Status         string `json:"status"`
	Amount         int64  `json:"amount"`
	AmountReceived int64  `json:"amount_received"`
	Currency       string `json:"currency"`
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *StripeGateway) CreateIntent(ctx context.Context, p CreateIntentParams) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(p.AmountMinor, 10))
	form.Set("currency", strings.ToLower(p.Currency))
	form.Set("description", p.Receipt)
	for k, v := range p.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var intent stripeIntent
	err := g.do(ctx, http.MethodPost, "/v1/payment_intents", strings.NewReader(form.Encode()), &intent)
	observeRequest(string(types.GatewayStripe), "create_intent", err)
	if err != nil {
		return nil, err
	}

	logger.GetLogger().Infow("Created payment intent",
		"gateway", types.GatewayStripe,
		"intent", intent.ID,
		"amount_minor", p.AmountMinor)

	return &Intent{
		Ref: intent.ID,
		ClientParams: map[string]string{
			"intentId":     intent.ID,
			"clientSecret": intent.ClientSecret,
		},
	}, nil
}

// VerifyCompletion fetches the intent by id and trusts only the
// provider-reported status and captured amount, never the client.
func (g *StripeGateway) VerifyCompletion(ctx context.Context, p VerifyParams) (*VerificationResult, error) {
	var intent stripeIntent
	err := g.do(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(p.IntentRef), nil, &intent)
	observeRequest(string(types.GatewayStripe), "verify", err)
	if err != nil {
		return nil, err
	}

	if intent.Status != "succeeded" {
		observeVerificationFailure(string(types.GatewayStripe), "status")
		return &VerificationResult{
			Succeeded:     false,
			PaymentRef:    intent.ID,
			FailureReason: fmt.Sprintf("payment intent status is %q", intent.Status),
		}, nil
	}

	captured := intent.AmountReceived
	if captured == 0 {
		captured = intent.Amount
	}

	return &VerificationResult{
		Succeeded:   true,
		AmountMinor: captured,
		PaymentRef:  intent.ID,
	}, nil
}

func (g *StripeGateway) do(ctx context.Context, method, path string, body *strings.Reader, out interface{}) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, g.apiBase+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, g.apiBase+path, nil)
	}
	if err != nil {
		return apperrors.GatewayError(err, "failed to build gateway request")
	}

	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return apperrors.GatewayError(err, "gateway request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr stripeError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error.Message != "" {
			return apperrors.GatewayError(
				fmt.Errorf("%s: %s", apiErr.Error.Type, apiErr.Error.Message),
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
