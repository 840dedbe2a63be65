package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/iameddypro/furaha-surfing/internal/config"
	"github.com/iameddypro/furaha-surfing/internal/model"
)

// Gateway talks to each provider's REST API and maps the responses onto
// the normalized contract.
type Gateway struct {
	gateways map[model.PaymentProvider]config.GatewayConfig
	client   *http.Client
	log      *zap.SugaredLogger
}

func NewGateway(gateways map[model.PaymentProvider]config.GatewayConfig, log *zap.SugaredLogger) *Gateway {
	return &Gateway{
		gateways: gateways,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

type chargeRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Contact  string `json:"contact"`
}

type chargeResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

func (g *Gateway) Initiate(ctx context.Context, p model.PaymentProvider, amount int64, currency, contact string) (*InitiateResult, error) {
	if err := ValidateContact(p, contact); err != nil {
		return nil, err
	}
	gw, ok := g.gateways[p]
	if !ok || gw.BaseURL == "" {
		return nil, ErrUnknownProvider
	}

	if p.ContactKind() == model.ContactPhone {
		contact = NormalizePhone(contact)
	}

	body, err := json.Marshal(chargeRequest{Amount: amount, Currency: currency, Contact: contact})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gw.BaseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+gw.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Warnf("[Provider] %s initiate request failed: %v", p, err)
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: gateway returned %d", ErrUnreachable, resp.StatusCode)
	}

	var charge chargeResponse
	if err := json.Unmarshal(respBody, &charge); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", p, err)
	}

	switch normalizeStatus(charge.Status) {
	case StatusFailed:
		if charge.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrRejected, charge.Message)
		}
		return nil, ErrRejected
	}

	if charge.Reference == "" {
		return nil, fmt.Errorf("%s returned no charge reference", p)
	}

	return &InitiateResult{
		ProviderRef: charge.Reference,
		NextAction:  nextAction(p, charge.Message),
	}, nil
}

func (g *Gateway) CheckStatus(ctx context.Context, p model.PaymentProvider, providerRef string) (Status, error) {
	gw, ok := g.gateways[p]
	if !ok || gw.BaseURL == "" {
		return StatusPending, ErrUnknownProvider
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gw.BaseURL+"/charges/"+providerRef, nil)
	if err != nil {
		return StatusPending, err
	}
	req.Header.Set("Authorization", "Bearer "+gw.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return StatusPending, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return StatusPending, fmt.Errorf("%w: gateway returned %d", ErrUnreachable, resp.StatusCode)
	}

	var charge chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&charge); err != nil {
		return StatusPending, fmt.Errorf("failed to decode %s status: %w", p, err)
	}

	return normalizeStatus(charge.Status), nil
}

// normalizeStatus folds each provider's status vocabulary into the three
// states the orchestrator understands.
func normalizeStatus(s string) Status {
	switch s {
	case "confirmed", "completed", "successful", "success", "paid":
		return StatusConfirmed
	case "failed", "rejected", "declined", "cancelled":
		return StatusFailed
	}
	return StatusPending
}

func nextAction(p model.PaymentProvider, message string) string {
	if message != "" {
		return message
	}
	if p.ConfirmationMode() == model.ConfirmPoll {
		return "Approve the payment prompt sent to your phone."
	}
	return "Complete the payment in the provider checkout."
}
