package config

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/vignesh-goutham/bondstress/pkg/logger"
	"github.com/vignesh-goutham/bondstress/pkg/notification"
	"github.com/vignesh-goutham/bondstress/pkg/pipeline"
	"github.com/vignesh-goutham/bondstress/pkg/signals"
	"github.com/vignesh-goutham/bondstress/pkg/sizing"
	"github.com/vignesh-goutham/bondstress/pkg/stress"
)

func (c *Config) NewLogger(out io.Writer) (zerolog.Logger, error) {
	return logger.New(c.Log, out)
}

// NewGenerator wires the scorer, translator and sizer into a signal generator
func (c *Config) NewGenerator(log zerolog.Logger) (*pipeline.Generator, error) {
	scorer, err := stress.NewScorer(c.StressConfig(), log.With().Str("component", "stress").Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create stress scorer: %w", err)
	}
	translator, err := signals.NewTranslator(c.SignalsConfig(), log.With().Str("component", "signals").Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create signal translator: %w", err)
	}
	sizer, err := sizing.New(c.SizingConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create position sizer: %w", err)
	}
	return pipeline.NewGenerator(c.PipelineConfig(), scorer, translator, sizer, log.With().Str("component", "pipeline").Logger())
}

// NewDispatcher wires the configured webhooks. The Discord service is also
// returned for run status messages.
func (c *Config) NewDispatcher(log zerolog.Logger) (*notification.Dispatcher, *notification.DiscordNotificationService, error) {
	log = log.With().Str("component", "notification").Logger()
	discord := notification.NewDiscordNotificationService(c.Alerts.DiscordWebhookURL, c.Alerts.Timeout, log)
	slack := notification.NewSlackClient(c.Alerts.SlackWebhookURL, c.Alerts.Timeout, log)

	dispatcher, err := notification.NewDispatcher(c.NotificationConfig(), log, discord, slack)
	if err != nil {
		return nil, nil, err
	}
	return dispatcher, discord, nil
}
