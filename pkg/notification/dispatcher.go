package notification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vignesh-goutham/bondstress/pkg/signals"
	"github.com/vignesh-goutham/bondstress/pkg/stress"
)

var ErrInvalidConfig = errors.New("invalid notification config")

// Notifier delivers an alert to one channel
type Notifier interface {
	Name() string
	Enabled() bool
	Send(ctx context.Context, alert Alert) error
}

type Config struct {
	Threshold        float64       // minimum confidence, 0-10
	MaxTradingAlerts int           // per offer
	Cooldown         time.Duration // per alert key, zero disables
}

func DefaultConfig() Config {
	return Config{
		Threshold:        7.0,
		MaxTradingAlerts: 3,
		Cooldown:         4 * time.Hour,
	}
}

func (c Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 10 {
		return fmt.Errorf("%w: threshold must be within [0, 10], got %f", ErrInvalidConfig, c.Threshold)
	}
	if c.MaxTradingAlerts < 0 {
		return fmt.Errorf("%w: max trading alerts must not be negative, got %d", ErrInvalidConfig, c.MaxTradingAlerts)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("%w: cooldown must not be negative, got %s", ErrInvalidConfig, c.Cooldown)
	}
	return nil
}

// Dispatcher fans qualifying signals out to every enabled notifier. An alert
// key that fired within the cooldown is suppressed.
type Dispatcher struct {
	cfg       Config
	notifiers []Notifier
	logger    zerolog.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time
	now      func() time.Time
}

func NewDispatcher(cfg Config, logger zerolog.Logger, notifiers ...Notifier) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Dispatcher{
		cfg:       cfg,
		notifiers: notifiers,
		logger:    logger,
		lastSent:  make(map[string]time.Time),
		now:       time.Now,
	}, nil
}

// Threshold is the configured confidence threshold
func (d *Dispatcher) Threshold() float64 { return d.cfg.Threshold }

// Offer dispatches a stress alert when the signal's confidence reaches
// threshold. It reports whether the alert reached at least one channel.
func (d *Dispatcher) Offer(ctx context.Context, sig stress.Signal, threshold float64) (bool, error) {
	if sig.InsufficientData || sig.Confidence < threshold {
		d.logger.Debug().Float64("confidence", sig.Confidence).Float64("threshold", threshold).Msg("Stress signal below alert threshold")
		return false, nil
	}
	return d.dispatch(ctx, "stress#"+string(sig.Level), StressAlert(sig))
}

// OfferTrading alerts on the strongest directional signals reaching threshold,
// most urgent level first then highest confidence, capped at MaxTradingAlerts.
// It returns the number of alerts delivered.
func (d *Dispatcher) OfferTrading(ctx context.Context, sigs []signals.TradingSignal, threshold float64) (int, error) {
	var candidates []signals.TradingSignal
	for _, s := range sigs {
		if s.IsDirectional() && s.Confidence >= threshold {
			candidates = append(candidates, s)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := priority(candidates[i].Level), priority(candidates[j].Level)
		if pi != pj {
			return pi < pj
		}
		return candidates[i].Confidence > candidates[j].Confidence
	})
	if len(candidates) > d.cfg.MaxTradingAlerts {
		candidates = candidates[:d.cfg.MaxTradingAlerts]
	}

	var (
		sent int
		errs []error
	)
	for _, s := range candidates {
		ok, err := d.dispatch(ctx, fmt.Sprintf("trading#%s#%s", s.Symbol, s.Action), TradingAlert(s))
		if err != nil {
			errs = append(errs, err)
		}
		if ok {
			sent++
		}
	}
	return sent, errors.Join(errs...)
}

func (d *Dispatcher) dispatch(ctx context.Context, key string, alert Alert) (bool, error) {
	if d.coolingDown(key) {
		d.logger.Debug().Str("key", key).Msg("Alert suppressed by cooldown")
		return false, nil
	}

	var (
		delivered bool
		errs      []error
	)
	for _, n := range d.notifiers {
		if !n.Enabled() {
			continue
		}
		if err := n.Send(ctx, alert); err != nil {
			d.logger.Error().Err(err).Str("channel", n.Name()).Msg("Failed to send alert")
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		delivered = true
	}

	if delivered {
		d.mu.Lock()
		d.lastSent[key] = d.now()
		d.mu.Unlock()
		d.logger.Info().Str("key", key).Str("title", alert.Title).Msg("Alert sent")
	}
	return delivered, errors.Join(errs...)
}

func (d *Dispatcher) coolingDown(key string) bool {
	if d.cfg.Cooldown == 0 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.lastSent[key]
	return ok && d.now().Sub(last) < d.cfg.Cooldown
}

func priority(level stress.Level) int {
	switch level {
	case stress.LevelNow:
		return 0
	case stress.LevelSoon:
		return 1
	case stress.LevelWatch:
		return 2
	default:
		return 3
	}
}
