package internal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/vignesh-goutham/bondstress/pkg/discord"
	"github.com/vignesh-goutham/bondstress/pkg/notification"
	"github.com/vignesh-goutham/bondstress/pkg/regime"
	"github.com/vignesh-goutham/bondstress/pkg/series"
	"github.com/vignesh-goutham/bondstress/pkg/store"
)

const recentSignals = 5

// Handler answers the bot's slash commands from the signal store:
// /stress, /signals symbol:<SYMBOL> and /regime
type Handler struct {
	verifier      *discord.Verifier
	store         store.SignalStore
	classifier    *regime.Classifier
	defaultSymbol string
	now           func() time.Time
	logger        zerolog.Logger
}

func NewHandler(verifier *discord.Verifier, signalStore store.SignalStore, defaultSymbol string, logger zerolog.Logger) *Handler {
	return &Handler{
		verifier:      verifier,
		store:         signalStore,
		classifier:    regime.NewDefault(),
		defaultSymbol: defaultSymbol,
		now:           time.Now,
		logger:        logger,
	}
}

func (h *Handler) Handle(ctx context.Context, req events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	// Get exact bytes Discord signed
	raw := []byte(req.Body)
	if req.IsBase64Encoded {
		b, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			h.logger.Warn().Err(err).Msg("Failed to decode base64 body")
			return errorResponse(http.StatusBadRequest, "invalid body"), nil
		}
		raw = b
	}

	signature, timestamp, err := discord.ExtractSignatureHeaders(req.Headers)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Rejected interaction")
		return errorResponse(http.StatusUnauthorized, "Missing signature headers"), nil
	}
	if err := h.verifier.VerifyRequest(raw, signature, timestamp); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to verify Discord signature")
		return errorResponse(http.StatusUnauthorized, "Invalid signature"), nil
	}

	var interaction Interaction
	if err := json.Unmarshal(raw, &interaction); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body"), nil
	}

	switch interaction.Type {
	case InteractionTypePing:
		return createResponse(Response{Type: ResponseTypePong})
	case InteractionTypeApplicationCommand:
		if interaction.Data == nil {
			return errorResponse(http.StatusBadRequest, "No command data"), nil
		}
		data, err := h.command(ctx, interaction.Data)
		if err != nil {
			h.logger.Error().Err(err).Str("command", interaction.Data.Name).Msg("Command failed")
			data = &ResponseData{Content: "❌ Error: " + userMessage(err), Flags: ResponseFlagEphemeral}
		}
		return createResponse(Response{Type: ResponseTypeChannelMessageWithSource, Data: data})
	default:
		h.logger.Warn().Int("type", interaction.Type).Msg("Unhandled interaction type")
		return errorResponse(http.StatusBadRequest, "Unhandled interaction type"), nil
	}
}

var errUnknownCommand = errors.New("unknown command")

// storeError keeps the store failure for the logs and shows users only msg
type storeError struct {
	msg string
	err error
}

func (e *storeError) Error() string { return e.msg + ": " + e.err.Error() }
func (e *storeError) Unwrap() error { return e.err }

func userMessage(err error) string {
	var se *storeError
	if errors.As(err, &se) {
		return se.msg
	}
	return err.Error()
}

func (h *Handler) command(ctx context.Context, data *InteractionData) (*ResponseData, error) {
	switch data.Name {
	case "stress":
		return h.latestStress(ctx)
	case "signals":
		symbol := strings.ToUpper(strings.TrimSpace(data.option("symbol")))
		if symbol == "" {
			symbol = h.defaultSymbol
		}
		return h.recentTrading(ctx, symbol)
	case "regime":
		return h.currentRegime(), nil
	default:
		return nil, fmt.Errorf("%w %q", errUnknownCommand, data.Name)
	}
}

func (h *Handler) latestStress(ctx context.Context) (*ResponseData, error) {
	recent, err := h.store.RecentStress(ctx, 1)
	if err != nil {
		return nil, &storeError{msg: "failed to read stress signals", err: err}
	}
	if len(recent) == 0 {
		return &ResponseData{Content: "No stress signals recorded yet"}, nil
	}
	embed := notification.NewEmbed(notification.StressAlert(recent[0].Signal()))
	return &ResponseData{Embeds: []notification.DiscordEmbed{embed}}, nil
}

func (h *Handler) recentTrading(ctx context.Context, symbol string) (*ResponseData, error) {
	recs, err := h.store.RecentTrading(ctx, symbol, recentSignals)
	if err != nil {
		return nil, &storeError{msg: fmt.Sprintf("failed to read %s signals", symbol), err: err}
	}
	if len(recs) == 0 {
		return &ResponseData{Content: fmt.Sprintf("No signals recorded for %s", symbol)}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 **%s** latest signals\n", symbol)
	for _, r := range recs {
		fmt.Fprintf(&b, "%s  **%s**  %s  confidence %.1f/10  size %.1f%%\n",
			r.Timestamp.Format(series.DateLayout), r.Action, r.Level, r.Confidence, r.PositionSize*100)
	}
	return &ResponseData{Content: strings.TrimRight(b.String(), "\n")}, nil
}

func (h *Handler) currentRegime() *ResponseData {
	a := h.classifier.Current(series.Day(h.now()))
	if a.Regime == regime.Unknown {
		return &ResponseData{Content: "🧭 Current regime: unknown"}
	}
	return &ResponseData{Content: fmt.Sprintf("🧭 **%s** (%d days in)\n%s\n%s",
		a.Description, a.DaysInRegime, a.Regime, a.Characteristics)}
}

func errorResponse(status int, message string) events.LambdaFunctionURLResponse {
	body, _ := json.Marshal(map[string]string{"error": message})
	return events.LambdaFunctionURLResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func createResponse(response any) (events.LambdaFunctionURLResponse, error) {
	responseBody, err := json.Marshal(response)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Failed to marshal response"), nil
	}
	return events.LambdaFunctionURLResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(responseBody),
	}, nil
}
