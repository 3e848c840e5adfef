package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// SlackClient sends alerts to a Slack incoming webhook
type SlackClient struct {
	webhookURL string
	client     *http.Client
	logger     zerolog.Logger
}

func NewSlackClient(webhookURL string, timeout time.Duration, logger zerolog.Logger) *SlackClient {
	return &SlackClient{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *SlackClient) Name() string { return "slack" }

func (c *SlackClient) Enabled() bool { return c.webhookURL != "" }

func (c *SlackClient) Send(ctx context.Context, alert Alert) error {
	if !c.Enabled() {
		c.logger.Debug().Msg("Slack notifications disabled (no webhook URL)")
		return nil
	}

	jsonData, err := json.Marshal(map[string]string{"text": alert.Text()})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}

	return nil
}
