package types

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/vignesh-goutham/bondstress/pkg/signals"
	"github.com/vignesh-goutham/bondstress/pkg/stress"
)

// ItemType represents the type of item in the unified table
type ItemType string

const (
	ItemTypeStress  ItemType = "STRESS"
	ItemTypeTrading ItemType = "TRADING"
)

// UnifiedItem represents a single item in the unified DynamoDB table
type UnifiedItem struct {
	PK        string    `json:"pk" dynamodbav:"pk"`     // Partition key
	SK        string    `json:"sk" dynamodbav:"sk"`     // Sort key
	Type      ItemType  `json:"type" dynamodbav:"type"` // Item type
	Data      string    `json:"data" dynamodbav:"data"` // JSON data
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
}

// StressRecord is a persisted stress signal. Undefined readings are stored
// as null rather than NaN, which JSON cannot carry.
type StressRecord struct {
	ID               uuid.UUID    `json:"id"`
	Timestamp        time.Time    `json:"timestamp"`
	Spread           *float64     `json:"spread"`
	SpreadZShort     *float64     `json:"spread_z_short"`
	SpreadZLong      *float64     `json:"spread_z_long"`
	Volatility       *float64     `json:"volatility"`
	VolatilityZ      *float64     `json:"volatility_z"`
	Credit           *float64     `json:"credit"`
	CreditZ          *float64     `json:"credit_z"`
	Score            int          `json:"score"`
	Level            stress.Level `json:"level"`
	Confidence       float64      `json:"confidence"`
	Factors          []string     `json:"factors,omitempty"`
	Action           string       `json:"action"`
	InsufficientData bool         `json:"insufficient_data"`
	CreatedAt        time.Time    `json:"created_at"`
}

// TradingRecord is a persisted trading signal
type TradingRecord struct {
	ID           uuid.UUID      `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Symbol       string         `json:"symbol"`
	Action       signals.Action `json:"action"`
	Level        stress.Level   `json:"level"`
	Confidence   float64        `json:"confidence"`
	HorizonDays  int            `json:"horizon_days"`
	Correlation  float64        `json:"correlation"`
	PositionSize float64        `json:"position_size"`
	EntryPrice   float64        `json:"entry_price"`
	StopLoss     float64        `json:"stop_loss"`
	TakeProfit   float64        `json:"take_profit"`
	Reasoning    string         `json:"reasoning"`
	CreatedAt    time.Time      `json:"created_at"`
}

func NewStressRecord(sig stress.Signal, now time.Time) StressRecord {
	return StressRecord{
		ID:               uuid.New(),
		Timestamp:        sig.Timestamp.UTC(),
		Spread:           optional(sig.Spread),
		SpreadZShort:     optional(sig.SpreadZShort),
		SpreadZLong:      optional(sig.SpreadZLong),
		Volatility:       optional(sig.Volatility),
		VolatilityZ:      optional(sig.VolatilityZ),
		Credit:           optional(sig.Credit),
		CreditZ:          optional(sig.CreditZ),
		Score:            sig.Score,
		Level:            sig.Level,
		Confidence:       sig.Confidence,
		Factors:          sig.Factors,
		Action:           sig.Action,
		InsufficientData: sig.InsufficientData,
		CreatedAt:        now.UTC(),
	}
}

// Signal restores the stress signal, with NaN for undefined readings
func (r StressRecord) Signal() stress.Signal {
	return stress.Signal{
		Timestamp:        r.Timestamp,
		Spread:           value(r.Spread),
		SpreadZShort:     value(r.SpreadZShort),
		SpreadZLong:      value(r.SpreadZLong),
		Volatility:       value(r.Volatility),
		VolatilityZ:      value(r.VolatilityZ),
		Credit:           value(r.Credit),
		CreditZ:          value(r.CreditZ),
		Score:            r.Score,
		Level:            r.Level,
		Confidence:       r.Confidence,
		Factors:          r.Factors,
		Action:           r.Action,
		InsufficientData: r.InsufficientData,
	}
}

func NewTradingRecord(sig signals.TradingSignal, now time.Time) TradingRecord {
	return TradingRecord{
		ID:           uuid.New(),
		Timestamp:    sig.Timestamp.UTC(),
		Symbol:       sig.Symbol,
		Action:       sig.Action,
		Level:        sig.Level,
		Confidence:   sig.Confidence,
		HorizonDays:  sig.HorizonDays,
		Correlation:  sig.Correlation,
		PositionSize: sig.PositionSize,
		EntryPrice:   sig.EntryPrice,
		StopLoss:     sig.StopLoss,
		TakeProfit:   sig.TakeProfit,
		Reasoning:    sig.Reasoning,
		CreatedAt:    now.UTC(),
	}
}

func (r TradingRecord) Signal() signals.TradingSignal {
	return signals.TradingSignal{
		Timestamp:    r.Timestamp,
		Symbol:       r.Symbol,
		Action:       r.Action,
		Level:        r.Level,
		Confidence:   r.Confidence,
		HorizonDays:  r.HorizonDays,
		Correlation:  r.Correlation,
		PositionSize: r.PositionSize,
		EntryPrice:   r.EntryPrice,
		StopLoss:     r.StopLoss,
		TakeProfit:   r.TakeProfit,
		Reasoning:    r.Reasoning,
	}
}

func optional(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func value(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
