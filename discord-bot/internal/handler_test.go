package internal

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vignesh-goutham/bondstress/pkg/discord"
	"github.com/vignesh-goutham/bondstress/pkg/signals"
	"github.com/vignesh-goutham/bondstress/pkg/store"
	"github.com/vignesh-goutham/bondstress/pkg/stress"
	"github.com/vignesh-goutham/bondstress/pkg/types"
)

type fixture struct {
	handler *Handler
	store   *store.Memory
	priv    ed25519.PrivateKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	verifier, err := discord.NewVerifier(hex.EncodeToString(pub))
	require.NoError(t, err)

	mem := store.NewMemory()
	h := NewHandler(verifier, mem, "NVDA", zerolog.Nop())
	h.now = func() time.Time { return time.Date(2020, 3, 11, 12, 0, 0, 0, time.UTC) }
	return &fixture{handler: h, store: mem, priv: priv}
}

func (f *fixture) request(t *testing.T, interaction Interaction, base64Body bool) events.LambdaFunctionURLRequest {
	t.Helper()
	body, err := json.Marshal(interaction)
	require.NoError(t, err)
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig := hex.EncodeToString(ed25519.Sign(f.priv, append([]byte(ts), body...)))

	req := events.LambdaFunctionURLRequest{
		Headers: map[string]string{"x-signature-ed25519": sig, "x-signature-timestamp": ts},
		Body:    string(body),
	}
	if base64Body {
		req.Body = base64.StdEncoding.EncodeToString(body)
		req.IsBase64Encoded = true
	}
	return req
}

func decode(t *testing.T, resp events.LambdaFunctionURLResponse) Response {
	t.Helper()
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	var out Response
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &out))
	return out
}

func command(name string, options ...CommandOption) Interaction {
	return Interaction{Type: InteractionTypeApplicationCommand, Data: &InteractionData{Name: name, Options: options}}
}

func TestHandle_Ping(t *testing.T) {
	f := newFixture(t)
	resp, err := f.handler.Handle(context.Background(), f.request(t, Interaction{Type: InteractionTypePing}, true))
	require.NoError(t, err)
	assert.Equal(t, ResponseTypePong, decode(t, resp).Type)
}

func TestHandle_RejectsUnsigned(t *testing.T) {
	f := newFixture(t)
	req := f.request(t, Interaction{Type: InteractionTypePing}, false)

	delete(req.Headers, "x-signature-ed25519")
	resp, err := f.handler.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = f.request(t, Interaction{Type: InteractionTypePing}, false)
	req.Body = `{"type":2}`
	resp, err = f.handler.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandle_Stress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out := decode(t, mustHandle(t, f, command("stress")))
	assert.Equal(t, "No stress signals recorded yet", out.Data.Content)

	_, err := f.store.SaveStress(ctx, stress.Signal{
		Timestamp:  time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC),
		Spread:     -40,
		Level:      stress.LevelSoon,
		Confidence: 7,
		Action:     "PREPARE",
	})
	require.NoError(t, err)

	out = decode(t, mustHandle(t, f, command("stress")))
	require.Len(t, out.Data.Embeds, 1)
	assert.Equal(t, "Bond Market Stress Alert - SOON", out.Data.Embeds[0].Title)
	assert.Equal(t, 0xFF8C00, out.Data.Embeds[0].Color)
}

func TestHandle_Signals(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.SaveTrading(context.Background(), []signals.TradingSignal{
		{Timestamp: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), Symbol: "AMD", Action: signals.ActionBuy, Level: stress.LevelNow, Confidence: 8.5, PositionSize: 0.02},
	})
	require.NoError(t, err)

	out := decode(t, mustHandle(t, f, command("signals", CommandOption{Name: "symbol", Type: 3, Value: " amd "})))
	assert.Contains(t, out.Data.Content, "**AMD** latest signals")
	assert.Contains(t, out.Data.Content, "2024-08-01  **BUY**  NOW  confidence 8.5/10  size 2.0%")

	out = decode(t, mustHandle(t, f, command("signals")))
	assert.Equal(t, "No signals recorded for NVDA", out.Data.Content)
}

func TestHandle_Regime(t *testing.T) {
	f := newFixture(t)
	out := decode(t, mustHandle(t, f, command("regime")))
	assert.Contains(t, out.Data.Content, "COVID-19 Market Crash")
	assert.Contains(t, out.Data.Content, "(39 days in)")
}

func TestHandle_UnknownCommand(t *testing.T) {
	f := newFixture(t)
	out := decode(t, mustHandle(t, f, command("addsignal")))
	assert.Contains(t, out.Data.Content, "unknown command")
	assert.Equal(t, ResponseFlagEphemeral, out.Data.Flags)
}

type brokenStore struct{ store.SignalStore }

func (brokenStore) RecentStress(context.Context, int) ([]types.StressRecord, error) {
	return nil, errors.New("ProvisionedThroughputExceededException")
}

func (brokenStore) RecentTrading(context.Context, string, int) ([]types.TradingRecord, error) {
	return nil, errors.New("ProvisionedThroughputExceededException")
}

func TestHandle_StoreFailureIsLoggedNotShown(t *testing.T) {
	f := newFixture(t)
	var logs bytes.Buffer
	f.handler.store = brokenStore{}
	f.handler.logger = zerolog.New(&logs)

	tests := []struct {
		name        string
		interaction Interaction
		want        string
	}{
		{name: "stress", interaction: command("stress"), want: "❌ Error: failed to read stress signals"},
		{name: "signals", interaction: command("signals", CommandOption{Name: "symbol", Type: 3, Value: "AMD"}), want: "❌ Error: failed to read AMD signals"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs.Reset()
			out := decode(t, mustHandle(t, f, tt.interaction))
			assert.Equal(t, tt.want, out.Data.Content)
			assert.Equal(t, ResponseFlagEphemeral, out.Data.Flags)
			assert.Contains(t, logs.String(), "ProvisionedThroughputExceededException")
		})
	}
}

func mustHandle(t *testing.T, f *fixture, interaction Interaction) events.LambdaFunctionURLResponse {
	t.Helper()
	resp, err := f.handler.Handle(context.Background(), f.request(t, interaction, false))
	require.NoError(t, err)
	return resp
}
