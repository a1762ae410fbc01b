package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Klinik-Sehat/service-appointment/internal/domain/apperror"
	"github.com/Klinik-Sehat/service-appointment/internal/domain/notification"
)

// GatewayChannel sends messages through the clinic's messaging gateway over
// HTTP. The gateway's wire format is its own concern; this client only POSTs
// a recipient and a body and records whatever comes back.
type GatewayChannel struct {
	url    string
	token  string
	client *http.Client
}

// NewGatewayChannel creates a GatewayChannel for the given endpoint.
func NewGatewayChannel(url, token string) *GatewayChannel {
	return &GatewayChannel{
		url:   url,
		token: token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name identifies the channel in notification log entries.
func (g *GatewayChannel) Name() string { return "gateway" }

// Send delivers body to the recipient through the gateway. The receipt
// carries the gateway's status code and raw response even on failure.
func (g *GatewayChannel) Send(ctx context.Context, recipient, body string) (notification.SendReceipt, error) {
	payload, err := json.Marshal(map[string]string{
		"to":      recipient,
		"message": body,
	})
	if err != nil {
		return notification.SendReceipt{}, fmt.Errorf("failed to marshal gateway payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return notification.SendReceipt{}, fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return notification.SendReceipt{}, apperror.NewChannelUnavailable(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	receipt := notification.SendReceipt{
		StatusCode: resp.StatusCode,
		Body:       string(raw),
	}

	if resp.StatusCode >= 300 {
		return receipt, apperror.NewChannelUnavailable(fmt.Errorf("gateway returned status %d", resp.StatusCode))
	}
	return receipt, nil
}
