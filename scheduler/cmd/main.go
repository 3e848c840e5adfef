package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	"github.com/vignesh-goutham/bondstress/pkg/alpaca"
	"github.com/vignesh-goutham/bondstress/pkg/config"
	"github.com/vignesh-goutham/bondstress/pkg/dynamodb"
	"github.com/vignesh-goutham/bondstress/pkg/fred"
	"github.com/vignesh-goutham/bondstress/scheduler/internal"
)

// Lambda handler for AWS Lambda triggered by EventBridge Scheduler
func handler(ctx context.Context, request events.CloudWatchEvent) error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}
	// CloudWatch keeps structured logs
	cfg.Log.Format = "json"
	cfg.Log.File = ""
	logger, err := cfg.NewLogger(os.Stdout)
	if err != nil {
		return err
	}
	logger.Info().Str("event_id", request.ID).Msg("Bond stress refresh triggered by EventBridge Scheduler")

	// Create context with timeout (5 minutes for Lambda)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	scheduler, err := build(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create scheduler")
		return err
	}

	if _, err := scheduler.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Bond stress refresh failed")
		return err
	}
	return nil
}

func build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*internal.Scheduler, error) {
	bars, err := alpaca.NewMarketData(cfg.Alpaca.APIKey, cfg.Alpaca.SecretKey, logger.With().Str("component", "alpaca").Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create Alpaca client: %w", err)
	}
	yields, err := fred.NewClient(cfg.FREDConfig(), logger.With().Str("component", "fred").Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create FRED client: %w", err)
	}
	db, err := dynamodb.NewService(ctx, cfg.Store.Region, cfg.Store.TableName, logger.With().Str("component", "dynamodb").Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB service: %w", err)
	}
	generator, err := cfg.NewGenerator(logger)
	if err != nil {
		return nil, err
	}
	dispatcher, discord, err := cfg.NewDispatcher(logger)
	if err != nil {
		return nil, err
	}

	return internal.NewScheduler(internal.Config{
		Symbols:      cfg.Symbols,
		LookbackDays: cfg.Pipeline.LookbackDays,
		Threshold:    cfg.Alerts.Threshold,
	}, internal.Deps{
		Calendar:   bars,
		Bars:       bars,
		Yields:     yields,
		Generator:  generator,
		Store:      db,
		Dispatcher: dispatcher,
		Status:     discord,
	}, logger)
}

func main() {
	lambda.Start(handler)
}
