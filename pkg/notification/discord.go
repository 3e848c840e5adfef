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

// DiscordNotificationService sends alerts to a Discord webhook
type DiscordNotificationService struct {
	webhookURL string
	enabled    bool
	client     *http.Client
	logger     zerolog.Logger
}

// DiscordWebhookPayload represents the payload sent to Discord webhook
type DiscordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []DiscordEmbed `json:"embeds,omitempty"`
}

type DiscordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Fields      []DiscordEmbedField `json:"fields,omitempty"`
	Footer      *DiscordEmbedFooter `json:"footer,omitempty"`
}

type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

// NewDiscordNotificationService creates a new Discord notification service
func NewDiscordNotificationService(webhookURL string, timeout time.Duration, logger zerolog.Logger) *DiscordNotificationService {
	return &DiscordNotificationService{
		webhookURL: webhookURL,
		enabled:    webhookURL != "",
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (d *DiscordNotificationService) Name() string { return "discord" }

func (d *DiscordNotificationService) Enabled() bool { return d.enabled }

// NewEmbed renders an alert as a Discord embed
func NewEmbed(alert Alert) DiscordEmbed {
	embed := DiscordEmbed{
		Title:       alert.Title,
		Description: alert.Description,
		Color:       alert.Color,
	}
	if !alert.Timestamp.IsZero() {
		embed.Timestamp = alert.Timestamp.UTC().Format(time.RFC3339)
	}
	for _, f := range alert.Fields {
		embed.Fields = append(embed.Fields, DiscordEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if alert.Footer != "" {
		embed.Footer = &DiscordEmbedFooter{Text: alert.Footer}
	}
	return embed
}

// Send posts the alert as a single embed
func (d *DiscordNotificationService) Send(ctx context.Context, alert Alert) error {
	return d.sendNotification(ctx, DiscordWebhookPayload{Content: alert.Content, Embeds: []DiscordEmbed{NewEmbed(alert)}})
}

// sendNotification sends a payload to Discord
func (d *DiscordNotificationService) sendNotification(ctx context.Context, payload DiscordWebhookPayload) error {
	if !d.enabled {
		d.logger.Debug().Msg("Discord notifications disabled (no webhook URL)")
		return nil
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create Discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Discord notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// NotifyError sends a notification for errors
func (d *DiscordNotificationService) NotifyError(ctx context.Context, errorType string, message string, details string) error {
	errorMessage := fmt.Sprintf("⚠️ **Error Alert**\n"+
		"**%s**\n"+
		"%s\n"+
		"Details: %s",
		errorType, message, details)

	return d.sendNotification(ctx, DiscordWebhookPayload{Content: errorMessage})
}

// NotifyRunComplete sends a summary when a scheduled refresh finishes
func (d *DiscordNotificationService) NotifyRunComplete(ctx context.Context, level string, confidence float64, tradingSignals int, alerts int) error {
	message := fmt.Sprintf("✅ **Bond Stress Refresh Complete**\n"+
		"Stress Level: %s\n"+
		"Confidence: %.1f/10\n"+
		"Trading Signals: %d\n"+
		"Alerts Sent: %d",
		level, confidence, tradingSignals, alerts)

	return d.sendNotification(ctx, DiscordWebhookPayload{Content: message})
}

// NotifyMarketClosed sends a notification when the market is closed
func (d *DiscordNotificationService) NotifyMarketClosed(ctx context.Context) error {
	message := "🏛️ Market Closed\nBond stress refresh skipped, the market is closed today"
	return d.sendNotification(ctx, DiscordWebhookPayload{Content: message})
}
