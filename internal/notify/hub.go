package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cuongbtq/iot-notifier/internal/worker/domain"
)

// HubClient posts notifications to the hub's REST endpoint
type HubClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// hubPayload is the body of POST /notification
type hubPayload struct {
	Message string `json:"message"`
	Subject string `json:"subject"`
	ARN     string `json:"arn"`
}

// NewHubClient builds a client for endpoint; a bare host:port gets http://
func NewHubClient(endpoint string, timeout time.Duration, logger *slog.Logger) *HubClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HubClient{
		endpoint:   NormalizeEndpoint(endpoint),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// NormalizeEndpoint adds a scheme and drops the trailing slash
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "http://" + endpoint
	}
	return endpoint
}

// URL is the notification callback address
func (h *HubClient) URL() string {
	return h.endpoint + "/notification"
}

// Send posts n to the hub. Any non-2xx status is an error.
func (h *HubClient) Send(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(hubPayload{
		Message: n.Body,
		Subject: n.Subject,
		ARN:     n.Target,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal hub payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build hub request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to notify hub %s: %w", h.endpoint, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	h.logger.Debug("Hub responded",
		slog.String("url", h.URL()),
		slog.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("hub %s returned status %d", h.endpoint, resp.StatusCode)
	}
	return nil
}
