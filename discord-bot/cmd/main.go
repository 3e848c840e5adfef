package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	"github.com/vignesh-goutham/bondstress/discord-bot/internal"
	"github.com/vignesh-goutham/bondstress/pkg/config"
	"github.com/vignesh-goutham/bondstress/pkg/discord"
	"github.com/vignesh-goutham/bondstress/pkg/dynamodb"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cfg.Log.Format = "json"
	cfg.Log.File = ""
	configured, err := cfg.NewLogger(os.Stdout)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create logger")
	}
	logger = configured

	verifier, err := discord.NewVerifier(cfg.Alerts.DiscordPublicKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("DISCORD_PUBLIC_KEY must be set")
	}
	db, err := dynamodb.NewService(context.Background(), cfg.Store.Region, cfg.Store.TableName, logger.With().Str("component", "dynamodb").Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create DynamoDB service")
	}

	handler := internal.NewHandler(verifier, db, cfg.Symbols[0], logger)
	lambda.Start(handler.Handle)
}
