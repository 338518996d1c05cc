package insurance

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/veriyield/neuralchain/ledger"
)

// Severity levels.
const (
	SeverityNormal   = "Normal"
	SeverityModerate = "MODERATE FLOOD"
	SeverityFlood    = "CRITICAL FLOOD"
	SeverityCritical = "CRITICAL"
)

// Payout amounts per tier.
const (
	PayoutFull    = "1.0 ETH (100% Coverage)"
	PayoutPartial = "0.5 ETH (50% Partial Payout)"
	PayoutNone    = "0.0 ETH"
)

// Assessment is the oracle's verdict for a location.
type Assessment struct {
	Condition    string  `json:"condition"`
	RainfallMM   float64 `json:"rainfall_mm"`
	TriggerMet   bool    `json:"trigger_met"`
	Severity     string  `json:"severity"`
	PayoutAmount string  `json:"payout_amount"`
	Source       string  `json:"source"`
}

// Thresholds are the rainfall limits in millimetres. Rain strictly above
// Moderate pays half; strictly above Critical pays in full.
type Thresholds struct {
	Moderate float64
	Critical float64
}

// DefaultThresholds returns 50 mm and 100 mm.
func DefaultThresholds() Thresholds {
	return Thresholds{Moderate: 50, Critical: 100}
}

// PayoutReceipt is the result of a mock payout.
type PayoutReceipt struct {
	TxHash string `json:"tx_hash"`
	Status string `json:"status"`
}

// Oracle evaluates weather against the policy and executes payouts.
type Oracle struct {
	weather    WeatherSource
	history    *ledger.History
	thresholds Thresholds
	logger     *slog.Logger
}

// NewOracle creates an oracle. history may be nil, in which case payouts are
// not logged.
func NewOracle(weather WeatherSource, history *ledger.History, thresholds Thresholds, logger *slog.Logger) *Oracle {
	if thresholds.Moderate <= 0 || thresholds.Critical <= thresholds.Moderate {
		thresholds = DefaultThresholds()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Oracle{weather: weather, history: history, thresholds: thresholds, logger: logger}
}

// Check assesses location. simulate forces an extreme drought without
// consulting the weather service.
func (o *Oracle) Check(ctx context.Context, location string, simulate bool) Assessment {
	if simulate {
		return Assessment{
			Condition:    "🔥 Extreme Drought (Simulated)",
			RainfallMM:   0,
			TriggerMet:   true,
			Severity:     SeverityCritical,
			PayoutAmount: PayoutFull,
			Source:       "Simulated Override",
		}
	}

	reading := FallbackReading()
	if o.weather != nil {
		reading = o.weather.Current(ctx, location)
	}

	a := Assessment{
		Condition:    reading.Condition + " (Live)",
		RainfallMM:   reading.RainMM,
		Severity:     SeverityNormal,
		PayoutAmount: PayoutNone,
		Source:       "OpenWeatherMap API",
	}
	if !reading.Live {
		a.Condition = reading.Condition
		a.Source = "Fallback"
	}

	switch {
	case reading.RainMM > o.thresholds.Critical:
		a.TriggerMet, a.Severity, a.PayoutAmount = true, SeverityFlood, PayoutFull
	case reading.RainMM > o.thresholds.Moderate:
		a.TriggerMet, a.Severity, a.PayoutAmount = true, SeverityModerate, PayoutPartial
	}

	o.logger.Info("Oracle check", "location", location, "rain_mm", a.RainfallMM, "severity", a.Severity)
	return a
}

// Payout sends a mock transaction to wallet and logs it.
func (o *Oracle) Payout(ctx context.Context, wallet, amount string) (PayoutReceipt, error) {
	r := PayoutReceipt{TxHash: ledger.RandomTxHash(), Status: "Confirmed"}
	if o.history != nil {
		if _, err := o.history.Append(ctx, ledger.TypePayout, map[string]any{
			"amount": amount,
			"tx":     r.TxHash,
			"wallet": wallet,
		}); err != nil {
			return PayoutReceipt{}, fmt.Errorf("log payout: %w", err)
		}
	}
	return r, nil
}

// PolicyTerms renders the smart policy document.
func (o *Oracle) PolicyTerms(farmer, location string, now time.Time) string {
	rule := strings.Repeat("-", 55)
	var b strings.Builder
	b.WriteString("VERIYIELD PARAMETRIC INSURANCE POLICY\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Policy ID: %d\n", 10000+rand.IntN(90000))
	fmt.Fprintf(&b, "Date: %s\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "Insured: %s\n", farmer)
	fmt.Fprintf(&b, "Location: %s\n\n", location)
	b.WriteString("COVERAGE TERMS (SMART CONTRACT):\n")
	fmt.Fprintf(&b, "1. CRITICAL RISK (>%gmm Rain): 1.0 ETH Payout\n", o.thresholds.Critical)
	fmt.Fprintf(&b, "2. MODERATE RISK (>%gmm Rain): 0.5 ETH Payout\n", o.thresholds.Moderate)
	b.WriteString("3. TRIGGER SOURCE: OpenWeatherMap Oracle\n\n")
	b.WriteString("This policy is active and monitoring real-time weather conditions.\n")
	b.WriteString("Automatic execution enabled via Polygon Smart Contract.\n")
	b.WriteString(rule + "\n")
	return b.String()
}
