// Package classifier annotates individual vital signs with a color tier.
//
// The tiers are a visual aid only. The aggregate risk level and score of a
// reading come from the backend and are never derived here.
package classifier

import (
	"errors"
	"fmt"
	"math"
)

type Metric string

const (
	MetricHeartRate   Metric = "heart_rate"
	MetricSpO2        Metric = "spo2"
	MetricTemperature Metric = "temperature"
)

type Status string

const (
	StatusNormal   Status = "normal"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	// StatusUnknown marks a value that cannot be classified (NaN, Inf, negative).
	StatusUnknown Status = "unknown"
)

var (
	ErrInvalidValue  = errors.New("invalid vital value")
	ErrUnknownMetric = errors.New("unknown metric")
)

// band holds the inclusive warning and normal ranges of a metric. Anything
// outside the warning range is critical.
type band struct {
	warnLow, warnHigh     float64
	normalLow, normalHigh float64
}

var bands = map[Metric]band{
	MetricHeartRate:   {warnLow: 40, warnHigh: 140, normalLow: 60, normalHigh: 100},
	MetricSpO2:        {warnLow: 90, warnHigh: math.Inf(1), normalLow: 95, normalHigh: math.Inf(1)},
	MetricTemperature: {warnLow: 35, warnHigh: 39, normalLow: 36.1, normalHigh: 37.2},
}

// Classify returns the tier of a single metric value. Critical is checked
// first, then warning, else normal.
func Classify(metric Metric, value float64) (Status, error) {
	b, ok := bands[metric]
	if !ok {
		return StatusUnknown, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}

	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return StatusUnknown, fmt.Errorf("%w: %s=%v", ErrInvalidValue, metric, value)
	}

	switch {
	case value < b.warnLow || value > b.warnHigh:
		return StatusCritical, nil
	case value < b.normalLow || value > b.normalHigh:
		return StatusWarning, nil
	default:
		return StatusNormal, nil
	}
}

type MetricStatuses struct {
	HeartRate   Status `json:"heart_rate"`
	SpO2        Status `json:"spo2"`
	Temperature Status `json:"temperature"`
}

// ClassifyVitals classifies the three locally tiered metrics of one reading.
// Invalid values come back as StatusUnknown.
func ClassifyVitals(heartRate, spo2, temperature float64) MetricStatuses {
	hr, _ := Classify(MetricHeartRate, heartRate)
	ox, _ := Classify(MetricSpO2, spo2)
	temp, _ := Classify(MetricTemperature, temperature)

	return MetricStatuses{
		HeartRate:   hr,
		SpO2:        ox,
		Temperature: temp,
	}
}

// Worst returns the most severe tier across the three metrics.
func (s MetricStatuses) Worst() Status {
	worst := StatusUnknown
	for _, st := range []Status{s.HeartRate, s.SpO2, s.Temperature} {
		if severity(st) > severity(worst) {
			worst = st
		}
	}
	return worst
}

func severity(s Status) int {
	switch s {
	case StatusCritical:
		return 3
	case StatusWarning:
		return 2
	case StatusNormal:
		return 1
	default:
		return 0
	}
}

// RiskScoreTier maps an averaged risk score onto a tier for stat cards.
func RiskScoreTier(score float64) Status {
	switch {
	case math.IsNaN(score):
		return StatusUnknown
	case score > 70:
		return StatusCritical
	case score > 40:
		return StatusWarning
	default:
		return StatusNormal
	}
}
