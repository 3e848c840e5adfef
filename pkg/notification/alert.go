package notification

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/vignesh-goutham/bondstress/pkg/signals"
	"github.com/vignesh-goutham/bondstress/pkg/stress"
)

const footer = "AI Chip Trading Signal System | Bond Stress Monitor"

// Embed colours
const (
	ColorNow     = 0xFF0000
	ColorSoon    = 0xFF8C00
	ColorWatch   = 0xFFD700
	ColorNeutral = 0x808080
	ColorBuy     = 0x00FF00
	ColorSell    = 0xFF0000
)

// Field is one labelled value of an alert
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Alert is a channel independent message. Discord renders it as an embed,
// Slack as plain text.
type Alert struct {
	Content     string
	Title       string
	Description string
	Color       int
	Timestamp   time.Time
	Fields      []Field
	Footer      string
}

// Text renders the alert as markdown for text only channels
func (a Alert) Text() string {
	var b strings.Builder
	if a.Content != "" {
		b.WriteString(a.Content)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "*%s*\n", a.Title)
	if a.Description != "" {
		b.WriteString(a.Description)
		b.WriteString("\n")
	}
	for _, f := range a.Fields {
		fmt.Fprintf(&b, "%s: %s\n", f.Name, f.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}

func levelColor(level stress.Level) int {
	switch level {
	case stress.LevelNow:
		return ColorNow
	case stress.LevelSoon:
		return ColorSoon
	case stress.LevelWatch:
		return ColorWatch
	default:
		return ColorNeutral
	}
}

// formatFloat prints n/a for undefined readings
func formatFloat(format string, v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf(format, v)
}

// StressAlert builds the alert for a bond stress reading
func StressAlert(sig stress.Signal) Alert {
	return Alert{
		Content:     fmt.Sprintf("🚨 **BOND STRESS ALERT** - %s", sig.Level),
		Title:       fmt.Sprintf("Bond Market Stress Alert - %s", sig.Level),
		Description: sig.Action,
		Color:       levelColor(sig.Level),
		Timestamp:   sig.Timestamp,
		Fields: []Field{
			{Name: "📈 Yield Curve Spread", Value: formatFloat("%.2f bps", sig.Spread), Inline: true},
			{Name: "📊 Z-Score", Value: formatFloat("%.2f", sig.SpreadZShort), Inline: true},
			{Name: "🎯 Confidence", Value: fmt.Sprintf("%.1f/10", sig.Confidence), Inline: true},
			{Name: "📉 Bond Volatility", Value: formatFloat("%.4f", sig.Volatility), Inline: true},
			{Name: "💰 Credit Spreads", Value: formatFloat("%.4f", sig.Credit), Inline: true},
			{Name: "⏰ Timestamp", Value: sig.Timestamp.UTC().Format("2006-01-02 15:04:05"), Inline: true},
		},
		Footer: footer,
	}
}

// TradingAlert builds the alert for a directional chip signal
func TradingAlert(sig signals.TradingSignal) Alert {
	color := ColorSell
	if sig.Action == signals.ActionBuy {
		color = ColorBuy
	}
	return Alert{
		Content:     fmt.Sprintf("📊 **TRADING SIGNAL** - %s", sig.Symbol),
		Title:       fmt.Sprintf("🔗 Correlation Signal - %s", sig.Symbol),
		Description: fmt.Sprintf("**Action:** %s", sig.Action),
		Color:       color,
		Timestamp:   sig.Timestamp,
		Fields: []Field{
			{Name: "📈 Symbol", Value: sig.Symbol, Inline: true},
			{Name: "🔗 Correlation", Value: formatFloat("%.3f", sig.Correlation), Inline: true},
			{Name: "🎯 Signal Type", Value: string(sig.Level), Inline: true},
			{Name: "⚖️ Position Size", Value: fmt.Sprintf("%.1f%%", sig.PositionSize*100), Inline: true},
			{Name: "🎯 Confidence", Value: fmt.Sprintf("%.1f/10", sig.Confidence), Inline: true},
			{Name: "💡 Reasoning", Value: sig.Reasoning},
		},
		Footer: footer,
	}
}
